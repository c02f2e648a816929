package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultWatchBase = "https://www.youtube.com"

	// maxPageSize caps how much of the watch page we read (2 MB is
	// plenty; the caption track list appears in the first ~1 MB).
	maxPageSize = 2 * 1024 * 1024

	// maxCaptionSize caps the caption payload itself.
	maxCaptionSize = 10 * 1024 * 1024
)

// ErrNoCaptions marks a video that exists but exposes no caption tracks.
var ErrNoCaptions = errors.New("no captions available")

// Client fetches transcripts from YouTube's caption endpoints.
type Client struct {
	httpClient *http.Client
	watchBase  string
}

// NewClient creates a transcript client with a 30-second request timeout.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		watchBase:  defaultWatchBase,
	}
}

// captionTrack is one entry of the watch page's "captionTracks" list.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" for auto-generated
}

// timedText is YouTube's json3 caption format. Only the text runs are
// consumed; start and duration are ignored.
type timedText struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// Transcript fetches all caption segments for a video and joins their text
// with single spaces, preserving temporal order.
func (c *Client) Transcript(ctx context.Context, videoID string) (string, error) {
	track, err := c.captionTrack(ctx, videoID)
	if err != nil {
		return "", err
	}

	text, err := c.captionText(ctx, track.BaseURL)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w for %s: empty caption track", ErrNoCaptions, videoID)
	}
	return text, nil
}

// captionTrack loads the watch page and extracts the first caption track.
func (c *Client) captionTrack(ctx context.Context, videoID string) (*captionTrack, error) {
	pageURL := c.watchBase + "/watch?v=" + videoID

	body, err := c.get(ctx, pageURL, maxPageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch watch page for %s: %w", videoID, err)
	}

	tracks, err := parseCaptionTracks(body)
	if err != nil {
		return nil, fmt.Errorf("%w for %s", ErrNoCaptions, videoID)
	}

	// Prefer a manually authored track over auto-generated captions.
	for i := range tracks {
		if tracks[i].Kind != "asr" {
			return &tracks[i], nil
		}
	}
	return &tracks[0], nil
}

// parseCaptionTracks pulls the "captionTracks" JSON array out of the watch
// page's embedded player response.
func parseCaptionTracks(page string) ([]captionTrack, error) {
	const marker = `"captionTracks":`
	idx := strings.Index(page, marker)
	if idx < 0 {
		return nil, errors.New("no captionTracks in player response")
	}

	dec := json.NewDecoder(strings.NewReader(page[idx+len(marker):]))
	var tracks []captionTrack
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("decode captionTracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, errors.New("captionTracks list is empty")
	}
	return tracks, nil
}

// captionText fetches a caption track in json3 format and flattens it.
func (c *Client) captionText(ctx context.Context, trackURL string) (string, error) {
	sep := "?"
	if strings.Contains(trackURL, "?") {
		sep = "&"
	}

	body, err := c.get(ctx, trackURL+sep+"fmt=json3", maxCaptionSize)
	if err != nil {
		return "", fmt.Errorf("fetch caption track: %w", err)
	}

	var tt timedText
	if err := json.Unmarshal([]byte(body), &tt); err != nil {
		return "", fmt.Errorf("decode caption track: %w", err)
	}

	var segments []string
	for _, ev := range tt.Events {
		var b strings.Builder
		for _, seg := range ev.Segs {
			b.WriteString(seg.UTF8)
		}
		text := strings.TrimSpace(strings.ReplaceAll(b.String(), "\n", " "))
		if text != "" {
			segments = append(segments, text)
		}
	}
	return strings.Join(segments, " "), nil
}

func (c *Client) get(ctx context.Context, url string, limit int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "en-US,en")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
