package cli

import (
	"context"

	"github.com/spf13/cobra"

	"dashgrid/internal/app"
)

func (c *CLI) desktopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "desktop",
		Short: "Open the desktop dashboard editor (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDesktop(cmd.Context())
		},
	}
}

func (c *CLI) runDesktop(ctx context.Context) error {
	a := app.New(c.cfg, c.logger)
	stop := c.watchConfig(ctx, a.ApplyConfig)
	defer stop()
	return app.Run(a, c.assets)
}
