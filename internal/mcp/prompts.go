package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("tidy_dashboard",
		mcp.WithPromptDescription("Rearrange the blocks of a dashboard into a clean grid without overlaps"),
		mcp.WithArgument("dashboardId",
			mcp.ArgumentDescription("Dashboard to tidy"),
			mcp.RequiredArgument(),
		),
	), s.handleTidyPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("build_dashboard",
		mcp.WithPromptDescription("Add a set of blocks for a monitoring topic to a dashboard"),
		mcp.WithArgument("dashboardId",
			mcp.ArgumentDescription("Dashboard to extend"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the blocks should show, e.g. \"checkout latency\""),
			mcp.RequiredArgument(),
		),
	), s.handleBuildPrompt)
}

func (s *Server) handleTidyPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := req.Params.Arguments["dashboardId"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Tidy dashboard %s", id),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Tidy up dashboard %s. Follow these steps:

1. Call open_dashboard with dashboardId "%s", then get_layout.
2. Plan rows from top to bottom. Positions and sizes are multiples of 40px, blocks are at least 200x160 and must fit the canvas width.
3. Move blocks one at a time with move_block, starting with the ones whose target slot is already free. A move onto another block is rejected; if that happens, move the blocking block out of the way first.
4. Use resize_block only where a row would otherwise overflow the canvas.
5. Finish with get_layout and confirm no block overlaps another.`, id, id),
				},
			},
		},
	}, nil
}

func (s *Server) handleBuildPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := req.Params.Arguments["dashboardId"]
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Add %s blocks to dashboard %s", topic, id),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Add blocks about "%s" to dashboard %s. Follow these steps:

1. Call open_dashboard with dashboardId "%s".
2. Create a metric block with the headline number first, then plot blocks for its trend, then a table block for the breakdown. Use create_block without x/y so each lands in the next free slot.
3. Give every block a short title and set target to the data source it reads.
4. Call get_layout and report what was added.`, topic, id, id),
				},
			},
		},
	}, nil
}
