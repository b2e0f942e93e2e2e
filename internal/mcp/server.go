// Package mcpserver exposes the dashboard layout engine to AI agents over
// the Model Context Protocol. Every geometry change an agent makes goes
// through the same Controller a pointer would, so the grid and collision
// rules hold for both.
package mcpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"dashgrid/internal/service"
)

const (
	serverName    = "dashgrid-mcp"
	serverVersion = "1.0.0"
)

// Server is the MCP server of the dashboard editor.
type Server struct {
	mcp       *server.MCPServer
	emitter   EventEmitter
	approval  *ApprovalQueue
	workspace *service.WorkspaceService
	logger    *log.Logger
}

// Deps holds everything the host passes to the MCP server.
type Deps struct {
	Emitter   EventEmitter
	Workspace *service.WorkspaceService
	Logger    *log.Logger
	// ApprovalDB, when set, switches approvals to the mcp_approvals table
	// (standalone mode).
	ApprovalDB *sql.DB
}

// New creates a server with all tools, resources and prompts registered.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Emitter == nil {
		deps.Emitter = service.NopEmitter{}
	}
	s := &Server{
		emitter:   deps.Emitter,
		approval:  NewApprovalQueue(deps.Emitter, deps.ApprovalDB),
		workspace: deps.Workspace,
		logger:    deps.Logger.WithPrefix("mcp"),
	}

	s.mcp = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	)

	s.registerDashboardTools()
	s.registerBlockTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Approvals returns the queue destructive tools wait on.
func (s *Server) Approvals() *ApprovalQueue { return s.approval }

// ServeStdio serves on stdin/stdout until ctx is done or stdin closes.
// Logs must not go to stdout, which carries the protocol.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("starting stdio server")
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult reports a failure the agent can act on (bad id, collision)
// without failing the protocol call.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...))
}
