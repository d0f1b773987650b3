// Package mcp exposes a read-only operator surface over the Model Context
// Protocol: analysis status, approval queues, and the document corpus.
// Dispositions stay on the HTTP API; MCP clients can observe but not approve.
package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/doclens/doclens/internal/domain/document"
	"github.com/doclens/doclens/internal/service"
)

// SessionReader provides access to analysis sessions.
type SessionReader interface {
	Current() *service.Session
	Status(id string) (service.SessionStatus, error)
}

// DocumentLister provides access to the document corpus.
type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]document.Document, error)
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string // bearer token; empty disables auth
}

// ServerDeps holds the collaborators the MCP tools read from.
type ServerDeps struct {
	Sessions  SessionReader
	Documents DocumentLister
}

// Server serves MCP over SSE.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	sse       *mcpserver.SSEServer
	httpSrv   *http.Server
	tools     map[string]mcpserver.ServerTool
}

// NewServer creates the MCP server with all tools and resources registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:       cfg,
		deps:      deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version),
		tools:     make(map[string]mcpserver.ServerTool),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// Tools returns the registered tools by name.
func (s *Server) Tools() map[string]mcpserver.ServerTool { return s.tools }

// Start serves MCP over SSE on the configured address. It does not block.
func (s *Server) Start() error {
	s.sse = mcpserver.NewSSEServer(s.mcpServer)
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           AuthMiddleware(s.cfg.APIKey, s.sse),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mcp server failed", "error", err)
		}
	}()
	slog.Info("mcp server started", "addr", s.cfg.Addr)
	return nil
}

// Stop gracefully shuts down the MCP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
