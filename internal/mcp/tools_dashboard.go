package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"dashgrid/internal/domain"
	"dashgrid/internal/service"
)

func (s *Server) registerDashboardTools() {
	// ── list_dashboards ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_dashboards",
		mcp.WithDescription("List all dashboards in the catalog"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListDashboards)

	// ── open_dashboard ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_dashboard",
		mcp.WithDescription("Open a dashboard in the editor. Block tools act on the open dashboard."),
		mcp.WithString("dashboardId",
			mcp.Description("ID (uuid) of the dashboard"),
			mcp.Required(),
		),
	), s.handleOpenDashboard)

	// ── get_layout ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_layout",
		mcp.WithDescription("Return the open dashboard's blocks, canvas size and interaction state. Positions are pixels on a 40px grid."),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetLayout)
}

func (s *Server) handleListDashboards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dashboards, err := s.workspace.Dashboards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	return jsonResult(dashboards)
}

func (s *Server) handleOpenDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("dashboardId", "")
	if id == "" {
		return errorResult("dashboardId is required"), nil
	}
	state, err := s.workspace.Open(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return errorResult("dashboard %s does not exist", id), nil
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("dashboard opened", "dashboard", id, "blocks", len(state.Blocks))
	return jsonResult(state)
}

func (s *Server) handleGetLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := s.workspace.State()
	if state.DashboardID == "" {
		return errorResult("%v: call open_dashboard first", service.ErrNoDashboard), nil
	}
	return jsonResult(state)
}
