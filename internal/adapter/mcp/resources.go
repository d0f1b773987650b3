package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"doclens://documents",
			"Document Corpus",
			mcplib.WithResourceDescription("List of all analyzed documents"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleDocumentsResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"doclens://analyses/current",
			"Current Analysis",
			mcplib.WithResourceDescription("Status of the current analysis session"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleCurrentAnalysisResource,
	)
}

func (s *Server) handleDocumentsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Documents == nil {
		return resourceError(req, "document lister not configured"), nil
	}
	docs, err := s.deps.Documents.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return nil, err
	}
	return resourceJSON(req, data), nil
}

func (s *Server) handleCurrentAnalysisResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Sessions == nil {
		return resourceError(req, "session reader not configured"), nil
	}
	cur := s.deps.Sessions.Current()
	if cur == nil {
		return resourceError(req, "no analysis has been started"), nil
	}
	status, err := s.deps.Sessions.Status(cur.ID)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(status)
	if err != nil {
		return nil, err
	}
	return resourceJSON(req, data), nil
}

func resourceJSON(req mcplib.ReadResourceRequest, data []byte) []mcplib.ResourceContents {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}
}

func resourceError(req mcplib.ReadResourceRequest, msg string) []mcplib.ResourceContents {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     `{"error":"` + msg + `"}`,
		},
	}
}
