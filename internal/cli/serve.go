package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"dashgrid/internal/api"
	"dashgrid/internal/app"
	"dashgrid/internal/service"
	"dashgrid/internal/storage"
)

const serveShutdownTimeout = 10 * time.Second

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr   string
		mirror string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local catalog over the dashboard REST API",
		Long: `Serves the SQLite catalog at storage.path under /api/v1, with health
probes under /health. With --mirror (or mirror.schedule) the remote catalog
is copied into it on that cron schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			if mirror != "" {
				c.cfg.Mirror.Schedule = mirror
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return c.runServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&mirror, "mirror", "", "cron schedule for mirroring the remote catalog, e.g. \"@every 15m\"")
	return cmd
}

func (c *CLI) runServe(ctx context.Context) (err error) {
	db, err := storage.New(c.cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { err = multierr.Append(err, db.Close()) }()
	local := storage.NewCatalog(db)

	var mirror *service.MirrorService
	if c.cfg.Mirror.Schedule != "" {
		remote := app.RemoteCatalog(c.cfg.Catalog)
		mirror = service.NewMirrorService(remote, local, service.NopEmitter{}, c.logger.WithPrefix("mirror"))
		if err := mirror.Start(ctx, c.cfg.Mirror.Schedule); err != nil {
			return err
		}
	}

	srv := api.New(local, c.cfg.Server, c.logger.WithPrefix("api"))
	errc := make(chan error, 1)
	go func() { errc <- srv.Listen(c.cfg.Server.Addr) }()
	c.logger.Info("catalog server listening", "addr", c.cfg.Server.Addr, "db", db.Path())

	stopWatch := c.watchConfig(ctx, nil)
	defer stopWatch()

	var serveErr error
	select {
	case serveErr = <-errc:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serveShutdownTimeout)
	defer cancel()
	err = multierr.Append(err, serveErr)
	err = multierr.Append(err, srv.Shutdown(shutdownCtx))
	if mirror != nil {
		err = multierr.Append(err, mirror.Stop(shutdownCtx))
	}
	if err == nil {
		c.logger.Info("catalog server stopped")
	}
	return err
}
