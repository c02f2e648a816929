// Package mcpserver exposes persona sessions over the Model Context
// Protocol so agent hosts can build and talk to personas as tools.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/mark3labs/mcp-go/server"

	"github.com/apresai/mimic/internal/llm"
	"github.com/apresai/mimic/internal/youtube"
)

// Config holds server configuration.
type Config struct {
	Port        int
	Provider    string // default LLM provider for create_persona
	Model       string // default model alias
	MaxSessions int
}

// DefaultConfig returns a Config populated from environment variables.
func DefaultConfig() Config {
	port := 8000
	if v, err := strconv.Atoi(os.Getenv("PORT")); err == nil && v > 0 {
		port = v
	}
	return Config{
		Port:        port,
		Provider:    envOr("MIMIC_PROVIDER", "anthropic"),
		Model:       envOr("MIMIC_MODEL", ""),
		MaxSessions: 50,
	}
}

// Server is the MCP server for persona chat sessions.
type Server struct {
	cfg      Config
	mcp      *server.MCPServer
	handlers *Handlers
	log      *slog.Logger
}

// New creates and configures the MCP server. It fails fast when the
// default provider's API key is missing: every tool depends on the LLM.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	envVar := llm.APIKeyEnvVar(cfg.Provider)
	if os.Getenv(envVar) == "" {
		return nil, fmt.Errorf("%s environment variable is required", envVar)
	}

	store := NewStore(cfg.MaxSessions)
	handlers := NewHandlers(store, youtube.NewClient(), cfg.Provider, cfg.Model, logger)

	mcpServer := server.NewMCPServer(
		"mimic",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	tools := ToolDefs()
	mcpServer.AddTool(tools[0], handlers.HandleCreatePersona)
	mcpServer.AddTool(tools[1], handlers.HandleChat)
	mcpServer.AddTool(tools[2], handlers.HandleGetSession)
	mcpServer.AddTool(tools[3], handlers.HandleListSessions)
	mcpServer.AddTool(tools[4], handlers.HandleClearHistory)
	mcpServer.AddTool(tools[5], handlers.HandleResetSession)

	return &Server{
		cfg:      cfg,
		mcp:      mcpServer,
		handlers: handlers,
		log:      logger,
	}, nil
}

// Start runs the HTTP MCP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("Starting MCP server", "addr", addr)

	httpServer := server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true),
	)
	return httpServer.Start(addr)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
