package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"go.uber.org/multierr"

	"dashgrid/internal/config"
	mcpserver "dashgrid/internal/mcp"
	"dashgrid/internal/service"
	"dashgrid/internal/storage"
)

// ServeMCP runs a standalone MCP server on stdin/stdout with no GUI until
// ctx is done or the client disconnects. Approvals go through the
// mcp_approvals table, which a running desktop app shows to the user.
func ServeMCP(ctx context.Context, cfg config.Config, logger *log.Logger) (err error) {
	db, err := storage.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	cat, err := OpenCatalog(cfg.Catalog, db)
	if err != nil {
		return err
	}

	ws := service.NewWorkspaceService(cat, service.NopEmitter{}, logger.WithPrefix("workspace"), cfg.Canvas.Width, nil)
	defer func() {
		// Saves started by the last tool calls outlive the client.
		waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err = multierr.Append(err, ws.Wait(waitCtx))
	}()

	srv := mcpserver.New(mcpserver.Deps{
		Workspace:  ws,
		Logger:     logger,
		ApprovalDB: db.Conn(),
	})
	if err := srv.ServeStdio(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
