package app

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/multierr"

	"dashgrid/internal/config"
	"dashgrid/internal/domain"
	"dashgrid/internal/layout"
	"dashgrid/internal/service"
	"dashgrid/internal/storage"
)

// Events emitted by the App itself (the services emit the layout:* ones).
const (
	EventPointerCapture = "pointer:capture"
	EventStartupFailed  = "app:startup-failed"
)

// shutdownTimeout bounds how long Shutdown waits for in-flight saves.
const shutdownTimeout = 10 * time.Second

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx    context.Context
	cfg    config.Config
	logger *log.Logger

	db        *storage.DB
	workspace *service.WorkspaceService
	session   *service.SessionService
	watcher   *dashboardWatcher
}

// New creates a new App.
func New(cfg config.Config, logger *log.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	// The local database is opened in both catalog modes: it carries the
	// approval queue shared with a standalone MCP server.
	db, err := storage.New(a.cfg.Storage.Path)
	if err != nil {
		a.logger.Error("open database", "path", a.cfg.Storage.Path, "err", err)
		wailsRuntime.EventsEmit(ctx, EventStartupFailed, err.Error())
		return
	}
	a.db = db

	cat, err := OpenCatalog(a.cfg.Catalog, db)
	if err != nil {
		a.logger.Error("open catalog", "err", err)
		wailsRuntime.EventsEmit(ctx, EventStartupFailed, err.Error())
		return
	}

	a.workspace = service.NewWorkspaceService(
		cat,
		wailsEmitter{ctx: ctx},
		a.logger.WithPrefix("workspace"),
		a.cfg.Canvas.Width,
		captureTracker{ctx: ctx},
	)

	var fingerprint fingerprintFunc
	if a.cfg.Catalog.Mode == config.ModeLocal {
		fingerprint = storage.NewBlockStore(db).Fingerprint
	}
	a.watcher = newDashboardWatcher(a.workspace, wailsEmitter{ctx: ctx}, db.Conn(), fingerprint, a.logger.WithPrefix("watcher"))
	a.watcher.Start(ctx)

	a.session = service.NewSessionService(db.Conn())
	size := a.session.LoadWindowSize(ctx)
	wailsRuntime.WindowSetSize(ctx, size.Width, size.Height)
	a.restoreDashboard(ctx)

	a.logger.Info("desktop started", "catalog", a.cfg.Catalog.Mode, "db", db.Path())
}

// restoreDashboard reopens the dashboard that was open last time. A
// dashboard that no longer exists is forgotten.
func (a *App) restoreDashboard(ctx context.Context) {
	id := a.session.LastDashboard(ctx)
	if id == "" {
		return
	}
	if _, err := a.workspace.Open(ctx, id); err != nil {
		a.logger.Warn("reopen last dashboard", "dashboard", id, "err", err)
		if errors.Is(err, domain.ErrNotFound) {
			a.session.SetLastDashboard(ctx, "")
		}
	}
}

// Shutdown is called when the app is closing. Geometry saves still in
// flight get a grace period before the database closes.
func (a *App) Shutdown(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Stop()
	}

	var err error
	if a.session != nil {
		w, h := wailsRuntime.WindowGetSize(ctx)
		err = multierr.Append(err, a.session.SaveWindowSize(ctx, w, h))
	}
	if a.workspace != nil {
		waitCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		err = multierr.Append(err, a.workspace.Wait(waitCtx))
		cancel()
	}
	if a.db != nil {
		err = multierr.Append(err, a.db.Close())
	}
	if err != nil {
		a.logger.Error("shutdown", "err", err)
		return
	}
	a.logger.Info("desktop stopped")
}

// ApplyConfig takes the settings that may change while running.
func (a *App) ApplyConfig(cfg config.Config) {
	if a.workspace != nil && cfg.Canvas.Width != a.cfg.Canvas.Width {
		a.workspace.SetCanvasWidth(cfg.Canvas.Width)
	}
	a.cfg.Canvas = cfg.Canvas
}

// ─────────────────────────────────────────────────────────────
// Wails adapters
// ─────────────────────────────────────────────────────────────

// wailsEmitter implements service.EventEmitter over the Wails runtime.
// Events always go out on the app context; the caller's may be a
// request-scoped one the runtime does not know.
type wailsEmitter struct {
	ctx context.Context
}

func (e wailsEmitter) Emit(_ context.Context, event string, data any) {
	wailsRuntime.EventsEmit(e.ctx, event, data)
}

// captureTracker tells the front-end to start and stop routing window-wide
// pointer events to the Controller.
type captureTracker struct {
	ctx context.Context
}

type captureEvent struct {
	Active bool          `json:"active"`
	Mode   layout.Mode   `json:"mode"`
	Handle layout.Handle `json:"handle,omitempty"`
}

func (c captureTracker) Attach(mode layout.Mode, h layout.Handle) {
	wailsRuntime.EventsEmit(c.ctx, EventPointerCapture, captureEvent{Active: true, Mode: mode, Handle: h})
}

func (c captureTracker) Detach() {
	wailsRuntime.EventsEmit(c.ctx, EventPointerCapture, captureEvent{Active: false})
}
