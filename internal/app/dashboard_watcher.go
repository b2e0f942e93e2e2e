package app

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	mcpserver "dashgrid/internal/mcp"
	"dashgrid/internal/service"
)

const watchInterval = 2 * time.Second

// fingerprintFunc summarizes a dashboard's stored blocks; it changes
// whenever a block is added, removed or updated.
type fingerprintFunc func(ctx context.Context, dashboardID string) (string, error)

// dashboardWatcher polls the local database for changes made by another
// process (a standalone MCP server, a mirror run) and reloads the open
// dashboard. It also relays the approvals that process is waiting on.
type dashboardWatcher struct {
	workspace   *service.WorkspaceService
	emitter     service.EventEmitter
	db          *sql.DB
	fingerprint fingerprintFunc // nil when the catalog is remote
	logger      *log.Logger
	interval    time.Duration

	mu          sync.Mutex
	dashboardID string
	last        string
	stale       bool // a change is waiting for the workspace to go idle
	emitted     map[string]bool

	stop chan struct{}
	done chan struct{}
}

func newDashboardWatcher(ws *service.WorkspaceService, emitter service.EventEmitter, db *sql.DB, fingerprint fingerprintFunc, logger *log.Logger) *dashboardWatcher {
	return &dashboardWatcher{
		workspace:   ws,
		emitter:     emitter,
		db:          db,
		fingerprint: fingerprint,
		logger:      logger,
		interval:    watchInterval,
		emitted:     map[string]bool{},
	}
}

// Start begins the polling loop. Should be called once on app startup.
func (w *dashboardWatcher) Start(ctx context.Context) {
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.pollLoop(ctx)
}

// Stop terminates the polling loop and waits for it.
func (w *dashboardWatcher) Stop() {
	if w.stop == nil {
		return
	}
	close(w.stop)
	<-w.done
	w.stop = nil
}

func (w *dashboardWatcher) pollLoop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *dashboardWatcher) check(ctx context.Context) {
	w.checkDashboard(ctx)
	w.checkApprovals(ctx)
}

// ── Open dashboard ─────────────────────────────────────────

func (w *dashboardWatcher) checkDashboard(ctx context.Context) {
	if w.fingerprint == nil {
		return
	}
	id := w.workspace.DashboardID()
	if id == "" {
		return
	}
	fp, err := w.fingerprint(ctx, id)
	if err != nil {
		w.logger.Debug("fingerprint", "dashboard", id, "err", err)
		return
	}

	w.mu.Lock()
	if w.dashboardID != id {
		// Switched dashboards: Open already loaded fresh data.
		w.dashboardID, w.last, w.stale = id, fp, false
		w.mu.Unlock()
		return
	}
	changed := w.stale || w.last != fp
	w.last = fp
	w.mu.Unlock()
	if !changed {
		return
	}

	reloaded, err := w.workspace.Reload(ctx)
	if err != nil {
		w.logger.Warn("reload dashboard", "dashboard", id, "err", err)
	}
	w.mu.Lock()
	w.stale = !reloaded
	w.mu.Unlock()
	if reloaded {
		w.logger.Debug("dashboard changed externally, reloaded", "dashboard", id)
	}
}

// ── Approvals ──────────────────────────────────────────────

// checkApprovals emits each stored approval once, and dismisses the ones
// that disappeared (answered, timed out, or the server exited).
func (w *dashboardWatcher) checkApprovals(ctx context.Context) {
	pending, err := mcpserver.ListStored(ctx, w.db)
	if err != nil {
		w.logger.Debug("list approvals", "err", err)
		return
	}

	seen := make(map[string]bool, len(pending))
	var fresh []mcpserver.PendingAction
	var gone []string

	w.mu.Lock()
	for _, p := range pending {
		seen[p.ID] = true
		if !w.emitted[p.ID] {
			w.emitted[p.ID] = true
			fresh = append(fresh, p)
		}
	}
	for id := range w.emitted {
		if !seen[id] {
			delete(w.emitted, id)
			gone = append(gone, id)
		}
	}
	w.mu.Unlock()

	for _, p := range fresh {
		w.emitter.Emit(ctx, mcpserver.EventApprovalRequired, p)
	}
	for _, id := range gone {
		w.emitter.Emit(ctx, mcpserver.EventApprovalDismissed, map[string]string{"id": id})
	}
}
