package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"dashgrid/internal/domain"
	"dashgrid/internal/layout"
	"dashgrid/internal/service"
)

func (s *Server) registerBlockTools() {
	// ── create_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_block",
		mcp.WithDescription("Create a block on the open dashboard. Without a position it goes to the first free grid slot; an occupied position is moved to one."),
		mcp.WithString("type",
			mcp.Description("Block type"),
			mcp.Enum(string(domain.BlockTypePlot), string(domain.BlockTypeTable), string(domain.BlockTypeMetric), string(domain.BlockTypeChart)),
		),
		mcp.WithString("title", mcp.Description("Block title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Block description")),
		mcp.WithString("target", mcp.Description("Data target the block renders")),
		mcp.WithString("service", mcp.Description("Service filter")),
		mcp.WithString("step", mcp.Description("Aggregation step")),
		mcp.WithNumber("x", mcp.Description("X position (optional, auto-placed if omitted)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional, auto-placed if omitted)")),
		mcp.WithNumber("width", mcp.Description("Width (default 400)")),
		mcp.WithNumber("height", mcp.Description("Height (default 320)")),
	), s.handleCreateBlock)

	// ── update_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Change a block's title, description, type or data fields. Geometry is never changed; use move_block or resize_block."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("type", mcp.Description("New block type")),
		mcp.WithString("target", mcp.Description("New data target")),
		mcp.WithString("service", mcp.Description("New service filter")),
		mcp.WithString("step", mcp.Description("New aggregation step")),
	), s.handleUpdateBlock)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Drag a block so its top-left corner lands at (x, y). The result snaps to the grid and stays inside the canvas; a move onto another block is rejected."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("Target X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Target Y position"), mcp.Required()),
	), s.handleMoveBlock)

	// ── resize_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_block",
		mcp.WithDescription("Drag one of a block's resize handles by (dx, dy). Minimum size is 200x160; a resize onto another block is rejected."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("handle",
			mcp.Description("Handle to drag (default bottom-right)"),
			mcp.Enum(handleNames()...),
		),
		mcp.WithNumber("dx", mcp.Description("Horizontal pointer offset"), mcp.Required()),
		mcp.WithNumber("dy", mcp.Description("Vertical pointer offset"), mcp.Required()),
	), s.handleResizeBlock)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a block. Requires user approval."),
		mcp.WithString("blockId", mcp.Description("Block ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)
}

func boolPtr(v bool) *bool { return &v }

func handleNames() []string {
	names := make([]string, len(layout.Handles))
	for i, h := range layout.Handles {
		names[i] = h.String()
	}
	return names
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleCreateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	title := req.GetString("title", "")
	if title == "" {
		return errorResult("title is required"), nil
	}

	draft := domain.Block{
		Title:       title,
		Description: req.GetString("description", ""),
		Type:        domain.BlockType(req.GetString("type", string(domain.BlockTypePlot))),
		Target:      req.GetString("target", ""),
		Service:     req.GetString("service", ""),
		Step:        req.GetString("step", ""),
	}
	if hasAny(args, "x", "y", "width", "height") {
		draft.Geometry = domain.Geometry{
			X:      req.GetFloat("x", 0),
			Y:      req.GetFloat("y", 0),
			Width:  req.GetFloat("width", layout.DefaultBlockWidth),
			Height: req.GetFloat("height", layout.DefaultBlockHeight),
		}
	}

	created, err := s.workspace.CreateBlock(ctx, draft)
	if errors.Is(err, service.ErrNoDashboard) {
		return errorResult("%v: call open_dashboard first", err), nil
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("block created", "block", created.ID, "x", created.X, "y", created.Y)
	return jsonResult(created)
}

func (s *Server) handleUpdateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("blockId", "")
	cur, res := s.lookup(id)
	if res != nil {
		return res, nil
	}

	fields := cur
	fields.Title = req.GetString("title", cur.Title)
	fields.Description = req.GetString("description", cur.Description)
	fields.Type = domain.BlockType(req.GetString("type", string(cur.Type)))
	fields.Target = req.GetString("target", cur.Target)
	fields.Service = req.GetString("service", cur.Service)
	fields.Step = req.GetString("step", cur.Step)

	updated, err := s.workspace.UpdateBlockMetadata(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	return jsonResult(updated)
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("blockId", "")
	cur, res := s.lookup(id)
	if res != nil {
		return res, nil
	}

	// Grab the header at the block's corner and carry it to (x, y).
	from := layout.Point{X: cur.X, Y: cur.Y}
	to := layout.Point{X: req.GetFloat("x", cur.X), Y: req.GetFloat("y", cur.Y)}
	return s.runGesture(ctx, id,
		layout.PointerDown{BlockID: id, Region: layout.RegionHeader, Pos: from},
		layout.PointerMove{Pos: to},
		layout.PointerUp{},
	)
}

func (s *Server) handleResizeBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("blockId", "")
	if _, res := s.lookup(id); res != nil {
		return res, nil
	}
	h, err := layout.ParseHandle(req.GetString("handle", layout.HandleBottomRight.String()))
	if err != nil {
		return errorResult("%v", err), nil
	}

	delta := layout.Point{X: req.GetFloat("dx", 0), Y: req.GetFloat("dy", 0)}
	return s.runGesture(ctx, id,
		layout.PointerDown{BlockID: id, Region: layout.RegionHandle, Handle: h},
		layout.PointerMove{Pos: delta},
		layout.PointerUp{},
	)
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("blockId", "")
	cur, res := s.lookup(id)
	if res != nil {
		return res, nil
	}

	meta, _ := json.Marshal(map[string]string{"blockId": id, "dashboardId": s.workspace.DashboardID()})
	desc := fmt.Sprintf("Delete block %q", cur.Title)
	if err := s.approval.Request(ctx, "delete_block", desc, string(meta)); err != nil {
		if errors.Is(err, ErrRejected) || errors.Is(err, ErrApprovalTimeout) {
			return errorResult("%v", err), nil
		}
		return nil, err
	}

	if err := s.workspace.DeleteBlock(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("block deleted", "block", id)
	return textResult(fmt.Sprintf("Deleted block %s", id)), nil
}

// ── Shared ─────────────────────────────────────────────────

// lookup finds a block on the open dashboard. A non-nil result is the
// error to hand back to the agent.
func (s *Server) lookup(id string) (domain.Block, *mcp.CallToolResult) {
	if id == "" {
		return domain.Block{}, errorResult("blockId is required")
	}
	state := s.workspace.State()
	if state.DashboardID == "" {
		return domain.Block{}, errorResult("%v: call open_dashboard first", service.ErrNoDashboard)
	}
	for _, b := range state.Blocks {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Block{}, errorResult("block %s is not on dashboard %s", id, state.DashboardID)
}

// gestureReport is what move_block and resize_block return.
type gestureReport struct {
	Applied  bool            `json:"applied"`
	Geometry domain.Geometry `json:"geometry"`
	Reason   string          `json:"reason,omitempty"`
}

func (s *Server) runGesture(ctx context.Context, id string, evs ...layout.Event) (*mcp.CallToolResult, error) {
	res, err := s.workspace.Gesture(ctx, evs...)
	if errors.Is(err, service.ErrGestureActive) {
		return errorResult("the user is editing the layout, try again shortly"), nil
	}
	if err != nil {
		return nil, err
	}

	report := gestureReport{Applied: res.Committed != nil}
	for _, b := range res.State.Blocks {
		if b.ID == id {
			report.Geometry = b.Geometry
		}
	}
	switch {
	case res.Rejected:
		report.Reason = "target overlaps another block or leaves the canvas; the block stayed at its last valid position"
	case !report.Applied:
		report.Reason = "no change"
	}
	return jsonResult(report)
}

func hasAny(args map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := args[k]; ok {
			return true
		}
	}
	return false
}
