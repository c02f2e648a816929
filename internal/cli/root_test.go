package cli

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/mimic/internal/progress"
)

func TestCollectVideoRefs_FlagValues(t *testing.T) {
	refs, err := collectVideoRefs([]string{
		"https://youtu.be/aaaaaaaaaaa",
		"bbbbbbbbbbb,ccccccccccc",
		"ddddddddddd\neeeeeeeeeee",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://youtu.be/aaaaaaaaaaa",
		"bbbbbbbbbbb",
		"ccccccccccc",
		"ddddddddddd",
		"eeeeeeeeeee",
	}, refs)
}

func TestCollectVideoRefs_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.txt")
	content := "https://www.youtube.com/watch?v=aaaaaaaaaaa\r\n\n  bbbbbbbbbbb  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	refs, err := collectVideoRefs(nil, path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.youtube.com/watch?v=aaaaaaaaaaa",
		"bbbbbbbbbbb",
	}, refs)
}

func TestCollectVideoRefs_FlagsBeforeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.txt")
	require.NoError(t, os.WriteFile(path, []byte("ccccccccccc\n"), 0o644))

	refs, err := collectVideoRefs([]string{"aaaaaaaaaaa"}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaaaaaaaaa", "ccccccccccc"}, refs)
}

func TestCollectVideoRefs_MissingFile(t *testing.T) {
	_, err := collectVideoRefs(nil, filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read videos file")
}

func TestLogProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cb := logProgress(logger)

	cb(progress.Event{Stage: progress.StageFetch, Message: "Fetching transcript 1/2...", Percent: 0})
	cb(progress.Event{Stage: progress.StageSynthesize, Error: errors.New("quota exceeded")})

	out := buf.String()
	assert.Contains(t, out, "stage=fetch")
	assert.Contains(t, out, "Fetching transcript 1/2...")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "quota exceeded")
}

func TestCollectVideoRefs_Empty(t *testing.T) {
	refs, err := collectVideoRefs([]string{"", "  ", "\n,\n"}, "")
	require.NoError(t, err)
	assert.Empty(t, refs)
}
