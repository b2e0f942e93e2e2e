package service_test

import (
	"context"
	"fmt"
	"sync"

	"dashgrid/internal/domain"
)

// fakeCatalog is an in-memory domain.Catalog.
type fakeCatalog struct {
	mu         sync.Mutex
	dashboards map[string]*domain.Dashboard
	nextID     int

	geometryCalls []domain.Block
	metadataCalls []domain.Block

	failUpdates error
	failCreate  error
	failDelete  error
	failFetch   map[string]error
	// gate, when set, holds UpdateBlockGeometry until closed.
	gate chan struct{}
	// fetchGate and createGate hold FetchDashboard and CreateBlock the same
	// way. The matching *Entered channel receives once the call is parked.
	fetchGate     chan struct{}
	fetchEntered  chan struct{}
	createGate    chan struct{}
	createEntered chan struct{}
}

func hold(entered, gate chan struct{}) {
	if gate == nil {
		return
	}
	if entered != nil {
		entered <- struct{}{}
	}
	<-gate
}

func newFakeCatalog(dashboards ...*domain.Dashboard) *fakeCatalog {
	f := &fakeCatalog{dashboards: map[string]*domain.Dashboard{}, failFetch: map[string]error{}}
	for _, d := range dashboards {
		f.dashboards[d.ID] = d
	}
	return f
}

func (f *fakeCatalog) ListDashboards(context.Context) ([]domain.DashboardSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DashboardSummary
	for _, id := range []string{"d1", "d2", "d3"} {
		if d, ok := f.dashboards[id]; ok {
			out = append(out, d.Summary())
		}
	}
	return out, nil
}

func (f *fakeCatalog) FetchDashboard(_ context.Context, id string) (*domain.Dashboard, error) {
	hold(f.fetchEntered, f.fetchGate)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFetch[id]; err != nil {
		return nil, err
	}
	d, ok := f.dashboards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	cp.Blocks = append([]domain.Block(nil), d.Blocks...)
	return &cp, nil
}

func (f *fakeCatalog) CreateBlock(_ context.Context, dashboardID string, draft domain.Block) (*domain.Block, error) {
	hold(f.createEntered, f.createGate)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	d, ok := f.dashboards[dashboardID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	f.nextID++
	draft.ID = fmt.Sprintf("new-%d", f.nextID)
	d.Blocks = append(d.Blocks, draft)
	return &draft, nil
}

func (f *fakeCatalog) UpdateBlockGeometry(ctx context.Context, dashboardID, blockID string, b domain.Block) (*domain.Block, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geometryCalls = append(f.geometryCalls, b)
	if f.failUpdates != nil {
		return nil, f.failUpdates
	}
	return &b, nil
}

func (f *fakeCatalog) UpdateBlockMetadata(_ context.Context, dashboardID, blockID string, fields domain.Block) (*domain.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadataCalls = append(f.metadataCalls, fields)
	if f.failUpdates != nil {
		return nil, f.failUpdates
	}
	return &fields, nil
}

func (f *fakeCatalog) DeleteBlock(_ context.Context, dashboardID, blockID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	d, ok := f.dashboards[dashboardID]
	if !ok {
		return domain.ErrNotFound
	}
	for i, b := range d.Blocks {
		if b.ID == blockID {
			d.Blocks = append(d.Blocks[:i], d.Blocks[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeCatalog) geometrySaves() []domain.Block {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Block(nil), f.geometryCalls...)
}

// fakeTarget records mirrored dashboards.
type fakeTarget struct {
	mu   sync.Mutex
	got  map[string]*domain.Dashboard
	fail error
}

func (t *fakeTarget) ReplaceDashboard(_ context.Context, d *domain.Dashboard) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return t.fail
	}
	if t.got == nil {
		t.got = map[string]*domain.Dashboard{}
	}
	t.got[d.ID] = d
	return nil
}

func blk(id string, x, y, w, h float64) domain.Block {
	return domain.Block{ID: id, Title: "block " + id, Geometry: domain.Geometry{X: x, Y: y, Width: w, Height: h}}
}
