// Package llm abstracts chat-completion providers behind a single interface.
package llm

import "context"

// Message roles on the provider wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat-style message list.
type Message struct {
	Role    string
	Content string
}

// Request is a single bounded completion call.
type Request struct {
	// System is the system directive, empty when not needed.
	System      string
	Messages    []Message
	MaxTokens   int64
	Temperature float64
}

// Client sends one completion request and returns the assistant text.
type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}
