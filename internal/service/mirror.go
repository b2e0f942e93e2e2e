package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	"dashgrid/internal/domain"
)

// ErrMirrorRunning is returned when a mirror run is already in progress.
var ErrMirrorRunning = errors.New("mirror already running")

const mirrorKey = "mirror"

// ─────────────────────────────────────────────────────────────
// MirrorService: copies the remote catalog into local storage
// ─────────────────────────────────────────────────────────────

// MirrorTarget receives mirrored dashboards. storage.Catalog implements it.
type MirrorTarget interface {
	ReplaceDashboard(ctx context.Context, d *domain.Dashboard) error
}

// MirrorReport summarizes one run.
type MirrorReport struct {
	Dashboards int           `json:"dashboards"`
	Blocks     int           `json:"blocks"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
}

type MirrorService struct {
	remote  domain.Catalog
	local   MirrorTarget
	emitter EventEmitter
	logger  *log.Logger

	guard taskGuard

	mu   sync.Mutex
	cron *cron.Cron
}

func NewMirrorService(remote domain.Catalog, local MirrorTarget, emitter EventEmitter, logger *log.Logger) *MirrorService {
	return &MirrorService{remote: remote, local: local, emitter: emitter, logger: logger}
}

// SyncAll copies every remote dashboard, blocks included, into the local
// catalog. A dashboard that fails is skipped and reported; the others are
// still copied.
func (m *MirrorService) SyncAll(ctx context.Context) (MirrorReport, error) {
	if !m.guard.TryLock(mirrorKey) {
		return MirrorReport{}, ErrMirrorRunning
	}
	defer m.guard.Unlock(mirrorKey)

	start := time.Now()
	var report MirrorReport

	list, err := m.remote.ListDashboards(ctx)
	if err != nil {
		return report, fmt.Errorf("mirror: list dashboards: %w", err)
	}

	var errs error
	for _, summary := range list {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		d, err := m.remote.FetchDashboard(ctx, summary.ID)
		if err == nil {
			if d.Title == "" {
				d.Title = summary.Title
			}
			err = m.local.ReplaceDashboard(ctx, d)
		}
		if err != nil {
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("dashboard %s: %w", summary.ID, err))
			continue
		}
		report.Dashboards++
		report.Blocks += len(d.Blocks)
	}

	report.Duration = time.Since(start).Round(time.Millisecond)
	m.logger.Info("mirror finished",
		"dashboards", report.Dashboards, "blocks", report.Blocks, "failed", report.Failed, "took", report.Duration)
	m.emitter.Emit(ctx, EventMirrorCompleted, report)
	return report, errs
}

// Start runs SyncAll on a cron schedule (standard five-field spec or
// descriptors such as "@every 15m"). Calling Start again replaces the
// previous schedule.
func (m *MirrorService) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := m.SyncAll(ctx); err != nil {
			m.logger.Warn("scheduled mirror failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("mirror: invalid schedule %q: %w", schedule, err)
	}

	m.mu.Lock()
	prev := m.cron
	m.cron = c
	m.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}
	c.Start()
	m.logger.Info("mirror scheduled", "schedule", schedule)
	return nil
}

// Stop cancels the schedule and waits for a running mirror to finish or
// ctx to end.
func (m *MirrorService) Stop(ctx context.Context) error {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()
	if c != nil {
		c.Stop()
	}
	return m.guard.WaitAll(ctx)
}
