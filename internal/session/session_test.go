package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/mimic/internal/llm"
	"github.com/apresai/mimic/internal/progress"
)

type fakeFetcher struct {
	transcripts map[string]string
	errs        map[string]error
	calls       []string
}

func (f *fakeFetcher) Transcript(_ context.Context, videoID string) (string, error) {
	f.calls = append(f.calls, videoID)
	if err, ok := f.errs[videoID]; ok {
		return "", err
	}
	if text, ok := f.transcripts[videoID]; ok {
		return text, nil
	}
	return "", errors.New("no such video")
}

type scripted struct {
	reply string
	err   error
}

type fakeLLM struct {
	requests []llm.Request
	script   []scripted
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	if len(f.script) > 0 {
		next := f.script[0]
		f.script = f.script[1:]
		return next.reply, next.err
	}
	return "ok", nil
}

func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

const (
	idA = "aaaaaaaaaaa"
	idB = "bbbbbbbbbbb"
	idC = "ccccccccccc"
)

func newTestManager(client llm.Client, fetcher *fakeFetcher, cb progress.Callback) *Manager {
	if fetcher == nil {
		fetcher = &fakeFetcher{}
	}
	return NewManager(client, fetcher, cb)
}

func TestInitialize_PartialBatchSuccess(t *testing.T) {
	fetcher := &fakeFetcher{
		transcripts: map[string]string{idA: "alpha talk", idC: "gamma talk"},
		errs:        map[string]error{idB: errors.New("captions disabled")},
	}
	client := &fakeLLM{script: []scripted{{reply: "ANALYSIS"}}}
	mgr := newTestManager(client, fetcher, nil)

	res, err := mgr.Initialize(context.Background(), []string{
		watchURL(idA), watchURL(idB), watchURL(idC),
	}, "Jane")

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.VideosUsed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, watchURL(idB), res.Failures[0].Reference)
	assert.Contains(t, res.Failures[0].Reason, "captions disabled")

	assert.True(t, mgr.Session().Initialized())
	assert.Equal(t, "Jane", mgr.Session().Subject())

	// Synthesis saw the surviving transcripts joined in input order.
	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].Messages[0].Content, "alpha talk gamma talk")
}

func TestInitialize_InvalidReferenceIsItemFailure(t *testing.T) {
	fetcher := &fakeFetcher{transcripts: map[string]string{idA: "alpha"}}
	client := &fakeLLM{script: []scripted{{reply: "ANALYSIS"}}}
	mgr := newTestManager(client, fetcher, nil)

	res, err := mgr.Initialize(context.Background(), []string{
		"definitely not a video", watchURL(idA),
	}, "Jane")

	require.NoError(t, err)
	assert.Equal(t, 1, res.VideosUsed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "definitely not a video", res.Failures[0].Reference)
}

func TestInitialize_AllFailSkipsSynthesis(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		idA: errors.New("boom"),
		idB: errors.New("boom"),
	}}
	client := &fakeLLM{}
	mgr := newTestManager(client, fetcher, nil)

	res, err := mgr.Initialize(context.Background(), []string{watchURL(idA), watchURL(idB)}, "Jane")

	assert.ErrorIs(t, err, ErrNoTranscripts)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.VideosUsed)
	assert.Len(t, res.Failures, 2)
	assert.Empty(t, client.requests, "synthesis must not run on empty input")
	assert.False(t, mgr.Session().Initialized())
}

func TestInitialize_NoClient(t *testing.T) {
	mgr := newTestManager(nil, nil, nil)

	_, err := mgr.Initialize(context.Background(), []string{watchURL(idA)}, "Jane")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestInitialize_SynthesisFailureIsDestructive(t *testing.T) {
	fetcher := &fakeFetcher{transcripts: map[string]string{idA: "alpha"}}
	client := &fakeLLM{script: []scripted{
		{reply: "ANALYSIS"},        // first init: analysis
		{err: errors.New("quota")}, // second init: analysis fails
	}}
	mgr := newTestManager(client, fetcher, nil)

	_, err := mgr.Initialize(context.Background(), []string{watchURL(idA)}, "Jane")
	require.NoError(t, err)
	require.True(t, mgr.Session().Initialized())

	_, err = mgr.Initialize(context.Background(), []string{watchURL(idA)}, "Jane")
	require.Error(t, err)

	// The working persona is gone, not restored.
	assert.False(t, mgr.Session().Initialized())
	assert.Equal(t, NotInitializedReply, mgr.Converse(context.Background(), "hello"))
}

func TestInitialize_ProgressEventsMonotone(t *testing.T) {
	fetcher := &fakeFetcher{transcripts: map[string]string{
		idA: "a", idB: "b", idC: "c",
	}}
	client := &fakeLLM{script: []scripted{{reply: "ANALYSIS"}}}

	var events []progress.Event
	mgr := newTestManager(client, fetcher, func(ev progress.Event) {
		events = append(events, ev)
	})

	_, err := mgr.Initialize(context.Background(), []string{
		watchURL(idA), watchURL(idB), watchURL(idC),
	}, "Jane")
	require.NoError(t, err)

	require.NotEmpty(t, events)
	last := -1.0
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.Percent, last)
		last = ev.Percent
	}
	final := events[len(events)-1]
	assert.Equal(t, progress.StageComplete, final.Stage)
	assert.Equal(t, "Jane", final.Subject)
	assert.Equal(t, 3, final.VideosUsed)
}

func TestConverse_BeforeInitialize(t *testing.T) {
	client := &fakeLLM{}
	mgr := newTestManager(client, nil, nil)

	reply := mgr.Converse(context.Background(), "hello")
	assert.Equal(t, NotInitializedReply, reply)
	assert.Empty(t, client.requests, "no model call before initialization")
	assert.Empty(t, mgr.Session().History())
}

func initialized(t *testing.T, client *fakeLLM) *Manager {
	t.Helper()
	fetcher := &fakeFetcher{transcripts: map[string]string{idA: "alpha talk"}}
	client.script = append(client.script, scripted{reply: "ANALYSIS"})
	mgr := newTestManager(client, fetcher, nil)
	_, err := mgr.Initialize(context.Background(), []string{watchURL(idA)}, "Jane")
	require.NoError(t, err)
	client.requests = nil // drop the synthesis request; tests inspect chat calls
	return mgr
}

func TestConverse_SlidingWindow(t *testing.T) {
	client := &fakeLLM{}
	mgr := initialized(t, client)

	for i := 0; i < 12; i++ {
		mgr.Converse(context.Background(), fmt.Sprintf("message %d", i))
	}
	require.Len(t, mgr.Session().History(), 24)

	mgr.Converse(context.Background(), "message 12")

	last := client.requests[len(client.requests)-1]
	require.Len(t, last.Messages, 11, "last 10 retained turns plus the new user message")
	assert.NotEmpty(t, last.System)

	// The oldest retained entries fell out of the window.
	history := mgr.Session().History()
	require.Len(t, history, 26)
	assert.Equal(t, history[14].Content, last.Messages[0].Content)
	assert.Equal(t, "message 12", last.Messages[10].Content)
	assert.Equal(t, llm.RoleUser, last.Messages[10].Role)
}

func TestConverse_RequestShape(t *testing.T) {
	client := &fakeLLM{}
	mgr := initialized(t, client)

	mgr.Converse(context.Background(), "hi there")

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, int64(500), req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
	assert.Contains(t, req.System, "Jane")
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "hi there", req.Messages[0].Content)
}

func TestConverse_ErrorKeepsTurnBalance(t *testing.T) {
	client := &fakeLLM{}
	mgr := initialized(t, client)
	client.script = []scripted{{err: errors.New("overloaded")}}

	reply := mgr.Converse(context.Background(), "hello")
	assert.Equal(t, "Error: overloaded", reply)

	history := mgr.Session().History()
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
	assert.Equal(t, "Error: overloaded", history[1].Content)

	// The session stays usable.
	assert.Equal(t, "ok", mgr.Converse(context.Background(), "still there?"))
}

func TestInitialize_ReplacesPersonaAndHistory(t *testing.T) {
	fetcher := &fakeFetcher{transcripts: map[string]string{idA: "alpha", idB: "beta"}}
	client := &fakeLLM{script: []scripted{{reply: "FIRST ANALYSIS"}}}
	mgr := newTestManager(client, fetcher, nil)

	_, err := mgr.Initialize(context.Background(), []string{watchURL(idA)}, "Jane")
	require.NoError(t, err)
	mgr.Converse(context.Background(), "hello jane")
	require.Len(t, mgr.Session().History(), 2)

	client.script = []scripted{{reply: "SECOND ANALYSIS"}}
	_, err = mgr.Initialize(context.Background(), []string{watchURL(idB)}, "Alex")
	require.NoError(t, err)

	assert.Equal(t, "Alex", mgr.Session().Subject())
	assert.Empty(t, mgr.Session().History(), "re-initialization clears the conversation")

	client.requests = nil
	mgr.Converse(context.Background(), "hello alex")
	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].System, "SECOND ANALYSIS")
	assert.NotContains(t, client.requests[0].System, "FIRST ANALYSIS")
}

func TestClearHistory_KeepsPersona(t *testing.T) {
	client := &fakeLLM{}
	mgr := initialized(t, client)

	mgr.Converse(context.Background(), "hello")
	require.Len(t, mgr.Session().History(), 2)

	mgr.ClearHistory()
	assert.Empty(t, mgr.Session().History())
	assert.True(t, mgr.Session().Initialized())
	assert.Equal(t, "ok", mgr.Converse(context.Background(), "again"))
}

func TestReset_DropsEverything(t *testing.T) {
	client := &fakeLLM{}
	mgr := initialized(t, client)

	mgr.Converse(context.Background(), "hello")
	mgr.Reset()

	assert.False(t, mgr.Session().Initialized())
	assert.Empty(t, mgr.Session().History())
	assert.Equal(t, NotInitializedReply, mgr.Converse(context.Background(), "hello"))
}

func TestHistory_ReturnsCopy(t *testing.T) {
	client := &fakeLLM{}
	mgr := initialized(t, client)

	mgr.Converse(context.Background(), "hello")
	history := mgr.Session().History()
	history[0].Content = "tampered"

	assert.Equal(t, "hello", mgr.Session().History()[0].Content)
}
