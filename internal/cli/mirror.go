package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"dashgrid/internal/app"
	"dashgrid/internal/service"
	"dashgrid/internal/storage"
)

func (c *CLI) mirrorCommand() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Copy every dashboard of the remote catalog into local storage once",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			remoteCfg := c.cfg.Catalog
			if from != "" {
				remoteCfg.BaseURL = from
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			db, err := storage.New(c.cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer func() { err = multierr.Append(err, db.Close()) }()

			m := service.NewMirrorService(
				app.RemoteCatalog(remoteCfg),
				storage.NewCatalog(db),
				service.NopEmitter{},
				c.logger.WithPrefix("mirror"),
			)
			report, err := m.SyncAll(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "mirrored %d dashboards (%d blocks) from %s in %s",
				report.Dashboards, report.Blocks, remoteCfg.BaseURL, report.Duration.Round(time.Millisecond))
			if report.Failed > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", %d failed", report.Failed)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "remote catalog base URL (default catalog.base_url)")
	return cmd
}
