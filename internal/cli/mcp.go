package cli

import (
	"github.com/spf13/cobra"

	"dashgrid/internal/app"
)

func (c *CLI) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the layout tools to an AI agent over MCP (stdio)",
		Long: `Runs a Model Context Protocol server on stdin/stdout. Agents can list and
open dashboards, move, resize and create blocks. Deleting a block waits
for approval in a running desktop editor.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return app.ServeMCP(ctx, c.cfg, c.logger)
		},
	}
}
