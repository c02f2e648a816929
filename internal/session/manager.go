package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apresai/mimic/internal/llm"
	"github.com/apresai/mimic/internal/persona"
	"github.com/apresai/mimic/internal/progress"
	"github.com/apresai/mimic/internal/youtube"
)

const (
	// historyWindow is the number of retained turns sent to the model on
	// each chat call. Older turns are forgotten by the model, not
	// summarized, and stay in the retained history for display.
	historyWindow = 10

	chatMaxTokens   = 500
	chatTemperature = 0.7
)

// Manager drives one interactive persona session. Operations are
// serialized by the caller (one user, one action at a time); Manager does
// no locking of its own.
type Manager struct {
	llm         llm.Client
	transcripts youtube.TranscriptFetcher
	onProgress  progress.Callback
	session     Session
}

// NewManager creates a session manager. client may be nil when no API key
// is configured; Initialize then fails with ErrNotConfigured.
func NewManager(client llm.Client, transcripts youtube.TranscriptFetcher, onProgress progress.Callback) *Manager {
	if onProgress == nil {
		onProgress = progress.NopCallback
	}
	return &Manager{
		llm:         client,
		transcripts: transcripts,
		onProgress:  onProgress,
	}
}

// Initialize resolves and fetches every reference, synthesizes a persona
// from the transcripts that succeeded, and replaces the session state.
//
// Per-item failures do not abort the batch; they are returned in the
// result for display. The returned InitResult is non-nil even when the
// error is ErrNoTranscripts, so callers can show what went wrong per item.
//
// A failed attempt is destructive: any previously working persona is gone
// and the session is left uninitialized.
func (m *Manager) Initialize(ctx context.Context, refs []string, subject string) (*InitResult, error) {
	if m.llm == nil {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	res := &InitResult{}
	total := len(refs)
	var parts []string

	for i, ref := range refs {
		ev := progress.NewEvent(progress.StageFetch,
			fmt.Sprintf("Fetching transcript %d/%d...", i+1, total),
			float64(i)/float64(total), start)
		ev.VideoNum = i + 1
		ev.VideoTotal = total
		m.onProgress(ev)

		text, err := m.fetchOne(ctx, ref)
		if err != nil {
			res.Failures = append(res.Failures, FetchFailure{
				Reference: ref,
				Reason:    err.Error(),
			})
			continue
		}
		parts = append(parts, text)
		res.VideosUsed++
	}

	if len(parts) == 0 {
		m.onProgress(progress.Event{Stage: progress.StageFetch, Error: ErrNoTranscripts})
		return res, ErrNoTranscripts
	}

	m.onProgress(progress.NewEvent(progress.StageSynthesize,
		fmt.Sprintf("Analyzing %s's speaking style...", subject), 1.0, start))

	prompt, err := persona.Synthesize(ctx, m.llm, strings.Join(parts, " "), subject)
	if err != nil {
		// Destructive on failure: the prior persona, if any, is not
		// restored. The session must be re-initialized to chat again.
		m.session = Session{}
		m.onProgress(progress.Event{Stage: progress.StageSynthesize, Error: err})
		return res, err
	}

	m.session = Session{
		subject:       subject,
		personaPrompt: prompt,
		initialized:   true,
	}

	done := progress.NewEvent(progress.StageComplete, "Persona ready", 1.0, start)
	done.Subject = subject
	done.VideosUsed = res.VideosUsed
	m.onProgress(done)

	return res, nil
}

func (m *Manager) fetchOne(ctx context.Context, ref string) (string, error) {
	id, err := youtube.ResolveVideoID(ref)
	if err != nil {
		return "", err
	}
	return m.transcripts.Transcript(ctx, id)
}

// Converse sends one user message and returns the assistant reply.
//
// Before initialization it returns NotInitializedReply without calling the
// model. On a provider error the error text becomes the reply, so one user
// turn always produces exactly one stored assistant turn.
func (m *Manager) Converse(ctx context.Context, message string) string {
	if !m.session.initialized || m.llm == nil {
		return NotInitializedReply
	}

	window := m.session.history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}

	msgs := make([]llm.Message, 0, len(window)+1)
	for _, t := range window {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	reply, err := m.llm.Complete(ctx, llm.Request{
		System:      m.session.personaPrompt,
		Messages:    msgs,
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	})
	if err != nil {
		reply = fmt.Sprintf("Error: %v", err)
	}

	m.session.append(message, reply)
	return reply
}

// Session returns a read view of the current session.
func (m *Manager) Session() *Session { return &m.session }

// Reset replaces the session with a fresh empty one.
func (m *Manager) Reset() {
	m.session = Session{}
}

// ClearHistory drops the conversation but keeps the persona.
func (m *Manager) ClearHistory() {
	m.session.history = nil
}
