package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dashgrid/internal/domain"
	"dashgrid/internal/logging"
	"dashgrid/internal/service"
)

// ─────────────────────────────────────────────────────────────
// taskGuard tests
// ─────────────────────────────────────────────────────────────

func TestTaskGuard_TryLock(t *testing.T) {
	var g service.ExportedTaskGuard

	if !g.TryLock("job-1") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("job-1") {
		t.Fatal("expected second TryLock for same key to fail")
	}
	if !g.TryLock("job-2") {
		t.Fatal("expected TryLock for different key to succeed")
	}
	g.Unlock("job-1")
	g.Unlock("job-2")

	if !g.TryLock("job-1") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("job-1")
}

func TestTaskGuard_BeginCounts(t *testing.T) {
	var g service.ExportedTaskGuard

	g.Begin("block-a")
	g.Begin("block-a")
	if n := g.Pending("block-a"); n != 2 {
		t.Fatalf("Pending = %d, want 2", n)
	}
	if g.TryLock("block-a") {
		t.Fatal("TryLock must fail while tasks are pending")
	}
	g.Unlock("block-a")
	g.Unlock("block-a")
	if n := g.Pending("block-a"); n != 0 {
		t.Fatalf("Pending = %d, want 0", n)
	}
}

func TestTaskGuard_WaitAll(t *testing.T) {
	var g service.ExportedTaskGuard

	if !g.TryLock("job-a") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan error)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- g.WaitAll(ctx)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("job-a")
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitAll: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

func TestTaskGuard_WaitAllCoversLateBegin(t *testing.T) {
	var g service.ExportedTaskGuard
	g.Begin("block-a")

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- g.WaitAll(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	g.Begin("block-b")
	g.Unlock("block-a")

	select {
	case err := <-done:
		t.Fatalf("WaitAll returned with a task running: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	g.Unlock("block-b")
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitAll: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitAll timed out")
	}
	if err := g.WaitAll(context.Background()); err != nil {
		t.Errorf("WaitAll on idle guard: %v", err)
	}
}

func TestTaskGuard_WaitAllHonoursContext(t *testing.T) {
	var g service.ExportedTaskGuard
	g.Begin("stuck")
	defer g.Unlock("stuck")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.WaitAll(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "test:event", map[string]string{"foo": "bar"})
	m.Emit(ctx, "test:event2", nil)
	m.Emit(ctx, "test:event", 3)

	if len(m.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(m.Events))
	}
	named := m.Named("test:event")
	if len(named) != 2 || named[1].Data != 3 {
		t.Errorf("Named = %+v", named)
	}

	m.Reset()
	if len(m.Events) != 0 {
		t.Error("Reset kept events")
	}
}

// ─────────────────────────────────────────────────────────────
// MirrorService tests
// ─────────────────────────────────────────────────────────────

func TestMirror_SyncAllCopiesDashboards(t *testing.T) {
	remote := newFakeCatalog(
		&domain.Dashboard{ID: "d1", Title: "Ops", Blocks: []domain.Block{blk("a", 0, 0, 200, 160)}},
		&domain.Dashboard{ID: "d2", Title: "Sales", Blocks: []domain.Block{
			blk("b", 0, 0, 200, 160), blk("c", 240, 0, 200, 160),
		}},
	)
	target := &fakeTarget{}
	em := &service.MockEmitter{}
	m := service.NewMirrorService(remote, target, em, logging.Discard())

	report, err := m.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if report.Dashboards != 2 || report.Blocks != 3 || report.Failed != 0 {
		t.Errorf("report = %+v", report)
	}
	if len(target.got) != 2 || len(target.got["d2"].Blocks) != 2 {
		t.Errorf("target = %+v", target.got)
	}
	if len(em.Named(service.EventMirrorCompleted)) != 1 {
		t.Error("mirror:completed not emitted")
	}
}

func TestMirror_PartialFailure(t *testing.T) {
	remote := newFakeCatalog(
		&domain.Dashboard{ID: "d1", Title: "Ops"},
		&domain.Dashboard{ID: "d2", Title: "Sales"},
	)
	remote.failFetch["d1"] = errors.New("timeout")
	target := &fakeTarget{}
	m := service.NewMirrorService(remote, target, &service.MockEmitter{}, logging.Discard())

	report, err := m.SyncAll(context.Background())
	if err == nil {
		t.Fatal("expected error for the failed dashboard")
	}
	if report.Dashboards != 1 || report.Failed != 1 {
		t.Errorf("report = %+v", report)
	}
	if _, ok := target.got["d2"]; !ok {
		t.Error("d2 not mirrored after d1 failed")
	}
}

func TestMirror_StartRejectsBadSchedule(t *testing.T) {
	m := service.NewMirrorService(newFakeCatalog(), &fakeTarget{}, &service.MockEmitter{}, logging.Discard())
	if err := m.Start(context.Background(), "every tuesday-ish"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if err := m.Start(context.Background(), "@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
