package app

import (
	"errors"
	"fmt"

	"dashgrid/internal/domain"
	"dashgrid/internal/layout"
	mcpserver "dashgrid/internal/mcp"
	"dashgrid/internal/service"
)

var errNotStarted = errors.New("app is not started")

// ============================================================
// Dashboards
// ============================================================

func (a *App) ListDashboards() ([]domain.DashboardSummary, error) {
	if a.workspace == nil {
		return nil, errNotStarted
	}
	return a.workspace.Dashboards(a.ctx)
}

func (a *App) OpenDashboard(dashboardID string) (service.LayoutState, error) {
	if a.workspace == nil {
		return service.LayoutState{}, errNotStarted
	}
	state, err := a.workspace.Open(a.ctx, dashboardID)
	if err != nil {
		return state, err
	}
	if err := a.session.SetLastDashboard(a.ctx, state.DashboardID); err != nil {
		a.logger.Warn("remember dashboard", "err", err)
	}
	return state, nil
}

// GetLayout returns the current snapshot, e.g. after a front-end reload.
func (a *App) GetLayout() service.LayoutState {
	if a.workspace == nil {
		return service.LayoutState{}
	}
	return a.workspace.State()
}

// SetCanvasWidth is called by the front-end whenever the canvas element
// changes size.
func (a *App) SetCanvasWidth(width float64) {
	if a.workspace != nil {
		a.workspace.SetCanvasWidth(width)
	}
}

// ============================================================
// Pointer input
// ============================================================

// PointerDown starts a gesture. region is "header", "handle" or "control";
// handle names the grip for "handle" (e.g. "bottom-right").
func (a *App) PointerDown(blockID, region, handle string, x, y float64) (service.LayoutState, error) {
	if a.workspace == nil {
		return service.LayoutState{}, errNotStarted
	}
	r, err := parseRegion(region)
	if err != nil {
		return service.LayoutState{}, err
	}
	var h layout.Handle
	if r == layout.RegionHandle {
		if h, err = layout.ParseHandle(handle); err != nil {
			return service.LayoutState{}, err
		}
	}
	return a.workspace.PointerDown(a.ctx, blockID, r, h, layout.Point{X: x, Y: y})
}

func (a *App) PointerMove(x, y float64) (service.LayoutState, error) {
	if a.workspace == nil {
		return service.LayoutState{}, errNotStarted
	}
	return a.workspace.PointerMove(a.ctx, layout.Point{X: x, Y: y})
}

func (a *App) PointerUp() (service.LayoutState, error) {
	if a.workspace == nil {
		return service.LayoutState{}, errNotStarted
	}
	return a.workspace.PointerUp(a.ctx)
}

// CaptureLost is sent on window blur or pointercancel.
func (a *App) CaptureLost() (service.LayoutState, error) {
	if a.workspace == nil {
		return service.LayoutState{}, errNotStarted
	}
	return a.workspace.CaptureLost(a.ctx)
}

func parseRegion(s string) (layout.Region, error) {
	switch s {
	case "header", "":
		return layout.RegionHeader, nil
	case "handle":
		return layout.RegionHandle, nil
	case "control":
		return layout.RegionControl, nil
	}
	return 0, fmt.Errorf("unknown pointer region %q", s)
}

// ============================================================
// Blocks
// ============================================================

func (a *App) CreateBlock(draft domain.Block) (*domain.Block, error) {
	if a.workspace == nil {
		return nil, errNotStarted
	}
	return a.workspace.CreateBlock(a.ctx, draft)
}

func (a *App) UpdateBlock(blockID string, fields domain.Block) (*domain.Block, error) {
	if a.workspace == nil {
		return nil, errNotStarted
	}
	return a.workspace.UpdateBlockMetadata(a.ctx, blockID, fields)
}

func (a *App) DeleteBlock(blockID string) error {
	if a.workspace == nil {
		return errNotStarted
	}
	return a.workspace.DeleteBlock(a.ctx, blockID)
}

// ============================================================
// Agent approvals (standalone MCP server, shared database)
// ============================================================

func (a *App) ListPendingActions() ([]mcpserver.PendingAction, error) {
	if a.db == nil {
		return nil, errNotStarted
	}
	return mcpserver.ListStored(a.ctx, a.db.Conn())
}

func (a *App) ApproveAction(actionID string) error {
	if a.db == nil {
		return errNotStarted
	}
	return mcpserver.ResolveStored(a.ctx, a.db.Conn(), actionID, true)
}

func (a *App) RejectAction(actionID string) error {
	if a.db == nil {
		return errNotStarted
	}
	return mcpserver.ResolveStored(a.ctx, a.db.Conn(), actionID, false)
}
