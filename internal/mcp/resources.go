package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	dashboardsURI     = "dashgrid://dashboards"
	layoutURI         = "dashgrid://layout"
	dashboardURIStart = "dashgrid://dashboard/"
)

func (s *Server) registerResources() {
	// ── dashgrid://dashboards ──────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		dashboardsURI,
		"All Dashboards",
		mcp.WithMIMEType("application/json"),
	), s.handleDashboardsResource)

	// ── dashgrid://layout ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		layoutURI,
		"Open Dashboard Layout",
		mcp.WithResourceDescription("Blocks and canvas of the dashboard open in the editor"),
		mcp.WithMIMEType("application/json"),
	), s.handleLayoutResource)

	// ── dashgrid://dashboard/{dashboardId} ─────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			dashboardURIStart+"{dashboardId}",
			"Blocks of a Dashboard",
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleDashboardResource,
	)
}

func (s *Server) handleDashboardsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	dashboards, err := s.workspace.Dashboards(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(dashboardsURI, dashboards)
}

func (s *Server) handleLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(layoutURI, s.workspace.State())
}

// handleDashboardResource reads a dashboard without opening it in the
// editor: the open one is served from memory, others from the catalog.
func (s *Server) handleDashboardResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := strings.TrimPrefix(uri, dashboardURIStart)
	if id == "" || id == uri || strings.Contains(id, "/") {
		return nil, fmt.Errorf("could not extract dashboardId from URI: %s", uri)
	}

	if state := s.workspace.State(); state.DashboardID == id {
		return jsonContents(uri, state.Blocks)
	}
	d, err := s.workspace.Catalog().FetchDashboard(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonContents(uri, d.Blocks)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
