package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/mimic/internal/llm"
	"github.com/apresai/mimic/internal/session"
	"github.com/apresai/mimic/internal/youtube"
)

var tracer = otel.Tracer("mimic-mcp")

// ToolDefs returns the MCP tool definitions.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "create_persona",
			Description: "Build a chat persona from a creator's YouTube videos. Fetches transcripts, synthesizes a speaking-style profile, and returns a session ID for the chat tool. Videos that fail (private, no captions, bad URL) are skipped and reported.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"subject": map[string]any{
						"type":        "string",
						"description": "Name of the person the persona should mimic",
					},
					"videos": map[string]any{
						"type":        "string",
						"description": "Video URLs or IDs, separated by newlines or commas",
					},
					"provider": map[string]any{
						"type":        "string",
						"description": "LLM provider: anthropic or openai (default: server default)",
					},
					"model": map[string]any{
						"type":        "string",
						"description": "Model alias or ID (default: provider default)",
					},
				},
				Required: []string{"subject", "videos"},
			},
		},
		{
			Name:        "chat",
			Description: "Send one message to a persona session and get the in-character reply. The session keeps the full conversation; the model sees the most recent turns.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"session_id": map[string]any{
						"type":        "string",
						"description": "Session ID returned from create_persona",
					},
					"message": map[string]any{
						"type":        "string",
						"description": "The user message",
					},
				},
				Required: []string{"session_id", "message"},
			},
		},
		{
			Name:        "get_session",
			Description: "Get a session's subject, status, and conversation history.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"session_id": map[string]any{
						"type":        "string",
						"description": "Session ID returned from create_persona",
					},
				},
				Required: []string{"session_id"},
			},
		},
		{
			Name:        "list_sessions",
			Description: "List all live persona sessions, newest first.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]any{},
			},
		},
		{
			Name:        "clear_history",
			Description: "Drop a session's conversation history but keep its persona.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"session_id": map[string]any{
						"type":        "string",
						"description": "Session ID returned from create_persona",
					},
				},
				Required: []string{"session_id"},
			},
		},
		{
			Name:        "reset_session",
			Description: "Discard a session entirely, including its persona and history.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"session_id": map[string]any{
						"type":        "string",
						"description": "Session ID returned from create_persona",
					},
				},
				Required: []string{"session_id"},
			},
		},
	}
}

// Handlers contains tool handler implementations.
type Handlers struct {
	store           *Store
	transcripts     youtube.TranscriptFetcher
	defaultProvider string
	defaultModel    string
	log             *slog.Logger
}

// NewHandlers creates tool handlers.
func NewHandlers(store *Store, transcripts youtube.TranscriptFetcher, provider, model string, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:           store,
		transcripts:     transcripts,
		defaultProvider: provider,
		defaultModel:    model,
		log:             logger,
	}
}

// HandleCreatePersona runs the full initialization workflow synchronously.
func (h *Handlers) HandleCreatePersona(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.create_persona")
	defer span.End()

	subject := strings.TrimSpace(mcp.ParseString(req, "subject", ""))
	videos := mcp.ParseString(req, "videos", "")
	provider := mcp.ParseString(req, "provider", h.defaultProvider)
	model := mcp.ParseString(req, "model", h.defaultModel)

	span.SetAttributes(
		attribute.String("subject", subject),
		attribute.String("provider", provider),
	)

	if subject == "" {
		span.SetStatus(codes.Error, "missing subject")
		return mcp.NewToolResultError("subject is required"), nil
	}

	refs := splitRefs(videos)
	if len(refs) == 0 {
		span.SetStatus(codes.Error, "missing videos")
		return mcp.NewToolResultError("videos is required: pass URLs or IDs separated by newlines or commas"), nil
	}

	client, err := llm.New(provider, model)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad provider")
		return mcp.NewToolResultError(err.Error()), nil
	}

	// A tool call may name a provider other than the server default, whose
	// key was never checked at startup. Fail here, before any fetch.
	if envVar := llm.APIKeyEnvVar(provider); os.Getenv(envVar) == "" {
		span.SetStatus(codes.Error, "missing api key")
		return mcp.NewToolResultError(fmt.Sprintf("%s environment variable is required for provider %s", envVar, provider)), nil
	}

	mgr := session.NewManager(client, h.transcripts, nil)
	res, err := mgr.Initialize(ctx, refs, subject)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "initialize failed")
		msg := fmt.Sprintf("initialization failed: %v", err)
		if res != nil && len(res.Failures) > 0 {
			msg += "\n" + failureLines(res.Failures)
		}
		return mcp.NewToolResultError(msg), nil
	}

	entry, err := h.store.Create(mgr, subject, res.VideosUsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store session failed")
		return mcp.NewToolResultError(err.Error()), nil
	}

	span.SetAttributes(attribute.String("session_id", entry.ID))
	h.log.InfoContext(ctx, "Persona session created",
		"session_id", entry.ID, "subject", subject,
		"videos_used", res.VideosUsed, "videos_failed", len(res.Failures))

	result := map[string]any{
		"session_id":  entry.ID,
		"subject":     subject,
		"videos_used": res.VideosUsed,
	}
	if len(res.Failures) > 0 {
		result["skipped"] = res.Failures
	}
	return jsonResult(result)
}

// HandleChat relays one turn to a persona session.
func (h *Handlers) HandleChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.chat")
	defer span.End()

	id := mcp.ParseString(req, "session_id", "")
	message := mcp.ParseString(req, "message", "")
	span.SetAttributes(attribute.String("session_id", id))

	if id == "" || message == "" {
		span.SetStatus(codes.Error, "missing arguments")
		return mcp.NewToolResultError("session_id and message are required"), nil
	}

	entry := h.store.Get(id)
	if entry == nil {
		span.SetStatus(codes.Error, "not found")
		return mcp.NewToolResultError(fmt.Sprintf("session %s not found", id)), nil
	}

	mgr, unlock := entry.Lock()
	reply := mgr.Converse(ctx, message)
	turns := len(mgr.Session().History())
	unlock()

	h.log.InfoContext(ctx, "Chat turn", "session_id", id, "turns", turns)

	return jsonResult(map[string]any{
		"session_id": id,
		"reply":      reply,
		"turns":      turns,
	})
}

// HandleGetSession returns session status and history.
func (h *Handlers) HandleGetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.get_session")
	defer span.End()

	id := mcp.ParseString(req, "session_id", "")
	if id == "" {
		span.SetStatus(codes.Error, "missing session_id")
		return mcp.NewToolResultError("session_id is required"), nil
	}
	span.SetAttributes(attribute.String("session_id", id))

	entry := h.store.Get(id)
	if entry == nil {
		span.SetStatus(codes.Error, "not found")
		return mcp.NewToolResultError(fmt.Sprintf("session %s not found", id)), nil
	}

	mgr, unlock := entry.Lock()
	initialized := mgr.Session().Initialized()
	history := mgr.Session().History()
	unlock()

	turns := make([]map[string]string, 0, len(history))
	for _, t := range history {
		turns = append(turns, map[string]string{"role": t.Role, "content": t.Content})
	}

	return jsonResult(map[string]any{
		"session_id":  entry.ID,
		"subject":     entry.Subject,
		"initialized": initialized,
		"videos_used": entry.VideosUsed,
		"created_at":  entry.CreatedAt,
		"history":     turns,
	})
}

// HandleListSessions lists live sessions.
func (h *Handlers) HandleListSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, span := tracer.Start(ctx, "tool.list_sessions")
	defer span.End()

	entries := h.store.List()
	sessions := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		sessions = append(sessions, map[string]any{
			"session_id":  e.ID,
			"subject":     e.Subject,
			"videos_used": e.VideosUsed,
			"created_at":  e.CreatedAt,
		})
	}
	return jsonResult(map[string]any{"sessions": sessions})
}

// HandleClearHistory drops a session's conversation.
func (h *Handlers) HandleClearHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.clear_history")
	defer span.End()

	id := mcp.ParseString(req, "session_id", "")
	if id == "" {
		span.SetStatus(codes.Error, "missing session_id")
		return mcp.NewToolResultError("session_id is required"), nil
	}
	span.SetAttributes(attribute.String("session_id", id))

	entry := h.store.Get(id)
	if entry == nil {
		span.SetStatus(codes.Error, "not found")
		return mcp.NewToolResultError(fmt.Sprintf("session %s not found", id)), nil
	}

	mgr, unlock := entry.Lock()
	mgr.ClearHistory()
	unlock()

	h.log.InfoContext(ctx, "History cleared", "session_id", id)
	return jsonResult(map[string]any{"session_id": id, "cleared": true})
}

// HandleResetSession discards a session entirely.
func (h *Handlers) HandleResetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.reset_session")
	defer span.End()

	id := mcp.ParseString(req, "session_id", "")
	if id == "" {
		span.SetStatus(codes.Error, "missing session_id")
		return mcp.NewToolResultError("session_id is required"), nil
	}
	span.SetAttributes(attribute.String("session_id", id))

	entry := h.store.Get(id)
	if entry == nil {
		span.SetStatus(codes.Error, "not found")
		return mcp.NewToolResultError(fmt.Sprintf("session %s not found", id)), nil
	}

	mgr, unlock := entry.Lock()
	mgr.Reset()
	unlock()
	h.store.Remove(id)

	h.log.InfoContext(ctx, "Session reset", "session_id", id)
	return jsonResult(map[string]any{"session_id": id, "reset": true})
}

func splitRefs(s string) []string {
	var refs []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == ',' || r == '\r'
	}) {
		part = strings.TrimSpace(part)
		if part != "" {
			refs = append(refs, part)
		}
	}
	return refs
}

func failureLines(failures []session.FetchFailure) string {
	var b strings.Builder
	for _, f := range failures {
		fmt.Fprintf(&b, "  %s: %s\n", f.Reference, f.Reason)
	}
	return strings.TrimRight(b.String(), "\n")
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
