// Package session owns the persona-session lifecycle: batch transcript
// collection, persona synthesis, and bounded-memory turn taking.
package session

import (
	"errors"

	"github.com/apresai/mimic/internal/llm"
)

// NotInitializedReply is returned by Converse before a successful
// Initialize. It is a fixed sentinel, not an error: an uninitialized chat
// is a user-visible state, not a fault.
const NotInitializedReply = "Persona not initialized. Set up a subject and video list first."

var (
	// ErrNotConfigured means no LLM client is available. Checked before
	// any network work.
	ErrNotConfigured = errors.New("no LLM client configured: set the provider API key")

	// ErrNoTranscripts means every video in the batch failed; synthesis
	// is never attempted on empty input.
	ErrNoTranscripts = errors.New("no transcripts could be extracted from the provided videos")
)

// Turn is one entry of the conversation history.
type Turn struct {
	Role    string // llm.RoleUser or llm.RoleAssistant
	Content string
}

// FetchFailure records a single video that could not contribute a
// transcript. Failures are data, not control flow: the batch continues.
type FetchFailure struct {
	Reference string
	Reason    string
}

// InitResult summarizes an initialization attempt.
type InitResult struct {
	VideosUsed int
	Failures   []FetchFailure
}

// Session aggregates the synthesized persona and the running conversation.
// The zero value is an empty, uninitialized session.
type Session struct {
	subject       string
	personaPrompt string
	history       []Turn
	initialized   bool
}

// Initialized reports whether a persona has been synthesized.
func (s *Session) Initialized() bool { return s.initialized }

// Subject returns the persona's display name.
func (s *Session) Subject() string { return s.subject }

// History returns a copy of the full retained conversation. The window cap
// applies only to what is sent to the model, never to what is kept here.
func (s *Session) History() []Turn {
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) append(userMsg, reply string) {
	s.history = append(s.history,
		Turn{Role: llm.RoleUser, Content: userMsg},
		Turn{Role: llm.RoleAssistant, Content: reply},
	)
}
