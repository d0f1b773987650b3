package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/doclens/doclens/internal/service"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	for _, t := range []mcpserver.ServerTool{
		s.getAnalysisStatusTool(),
		s.listPendingApprovalsTool(),
		s.listApprovalHistoryTool(),
		s.listDocumentsTool(),
		s.listWorkspaceFilesTool(),
	} {
		s.tools[t.Tool.Name] = t
		s.mcpServer.AddTools(t)
	}
}

func (s *Server) getAnalysisStatusTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_analysis_status",
		mcplib.WithDescription("Get the status of an analysis session, including its todo list and pending approval count"),
		mcplib.WithString("session_id",
			mcplib.Description("The session ID to check; omit for the current session"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetAnalysisStatus,
	}
}

func (s *Server) listPendingApprovalsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_pending_approvals",
		mcplib.WithDescription("List approval requests waiting for an operator decision, oldest first"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListPendingApprovals,
	}
}

func (s *Server) listApprovalHistoryTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_approval_history",
		mcplib.WithDescription("List resolved approval requests in resolution order, newest last"),
		mcplib.WithNumber("limit",
			mcplib.Description("Return only the most recent N entries; omit for the full retained window"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListApprovalHistory,
	}
}

func (s *Server) listDocumentsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_documents",
		mcplib.WithDescription("List all documents in the analyzed corpus"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListDocuments,
	}
}

func (s *Server) listWorkspaceFilesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_workspace_files",
		mcplib.WithDescription("List the files the current analysis session has written to its workspace"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListWorkspaceFiles,
	}
}

func (s *Server) handleGetAnalysisStatus(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.deps.Sessions == nil {
		return mcplib.NewToolResultError("session reader not configured"), nil
	}
	id, _ := req.GetArguments()["session_id"].(string)
	if id == "" {
		cur := s.deps.Sessions.Current()
		if cur == nil {
			return mcplib.NewToolResultError("no analysis has been started"), nil
		}
		id = cur.ID
	}
	status, err := s.deps.Sessions.Status(id)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to get analysis status", err), nil
	}
	return toolResultJSON(status)
}

func (s *Server) handleListPendingApprovals(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	gate, errResult := s.currentGate()
	if errResult != nil {
		return errResult, nil
	}
	return toolResultJSON(gate.ListPending())
}

func (s *Server) handleListApprovalHistory(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	gate, errResult := s.currentGate()
	if errResult != nil {
		return errResult, nil
	}
	limit := 0
	if n, ok := req.GetArguments()["limit"].(float64); ok {
		limit = int(n)
	}
	return toolResultJSON(gate.History(limit))
}

func (s *Server) handleListDocuments(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.deps.Documents == nil {
		return mcplib.NewToolResultError("document lister not configured"), nil
	}
	docs, err := s.deps.Documents.ListDocuments(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list documents", err), nil
	}
	return toolResultJSON(docs)
}

func (s *Server) handleListWorkspaceFiles(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.deps.Sessions == nil {
		return mcplib.NewToolResultError("session reader not configured"), nil
	}
	cur := s.deps.Sessions.Current()
	if cur == nil {
		return mcplib.NewToolResultError("no analysis has been started"), nil
	}
	files, err := cur.Workspace.ListFiles()
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list workspace files", err), nil
	}
	return toolResultJSON(files)
}

func (s *Server) currentGate() (*service.Gate, *mcplib.CallToolResult) {
	if s.deps.Sessions == nil {
		return nil, mcplib.NewToolResultError("session reader not configured")
	}
	cur := s.deps.Sessions.Current()
	if cur == nil {
		return nil, mcplib.NewToolResultError("no analysis has been started")
	}
	return cur.Gate, nil
}

func toolResultJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
