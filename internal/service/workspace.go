package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"dashgrid/internal/domain"
	"dashgrid/internal/layout"
)

var (
	// ErrNoDashboard is returned by operations that need an open dashboard.
	ErrNoDashboard = errors.New("no dashboard open")

	// ErrGestureActive is returned by Gesture while the user is dragging
	// or resizing.
	ErrGestureActive = errors.New("another gesture is in progress")
)

// saveTimeout bounds one background geometry save.
const saveTimeout = 30 * time.Second

// ─────────────────────────────────────────────────────────────
// WorkspaceService: the open dashboard and its interaction state
// ─────────────────────────────────────────────────────────────

// LayoutState is the snapshot the front-end renders from.
type LayoutState struct {
	DashboardID string          `json:"dashboardId"`
	Title       string          `json:"title"`
	Blocks      []domain.Block  `json:"blocks"`
	Canvas      layout.Canvas   `json:"canvas"`
	DropZone    layout.DropZone `json:"dropZone"`
	Mode        layout.Mode     `json:"mode"`
	TargetID    string          `json:"targetId,omitempty"`
	Handle      layout.Handle   `json:"handle,omitempty"`
}

// PersistFailure is the payload of layout:persist-failed.
type PersistFailure struct {
	DashboardID string          `json:"dashboardId"`
	BlockID     string          `json:"blockId"`
	Geometry    domain.Geometry `json:"geometry"`
	Error       string          `json:"error"`
}

// WorkspaceService owns the Layout Store and Controller of the open
// dashboard. Every method is safe for concurrent use: pointer events, CRUD
// calls and agent tools are serialized on one mutex, while catalog I/O runs
// outside it.
type WorkspaceService struct {
	catalog domain.Catalog
	emitter EventEmitter
	logger  *log.Logger

	mu          sync.Mutex
	dashboardID string
	title       string
	store       *layout.Store
	ctrl        *layout.Controller
	// edits counts Store changes not made by Reload, so Reload can tell
	// whether its fetch raced with one.
	edits uint64

	saves taskGuard
}

// NewWorkspaceService creates a service with no dashboard open. tracker may
// be nil.
func NewWorkspaceService(catalog domain.Catalog, emitter EventEmitter, logger *log.Logger, canvasWidth float64, tracker layout.CaptureTracker) *WorkspaceService {
	store := layout.NewStore(nil)
	return &WorkspaceService{
		catalog: catalog,
		emitter: emitter,
		logger:  logger,
		store:   store,
		ctrl:    layout.NewController(store, canvasWidth, tracker),
	}
}

// Dashboards lists the catalog's dashboards.
func (s *WorkspaceService) Dashboards(ctx context.Context) ([]domain.DashboardSummary, error) {
	return s.catalog.ListDashboards(ctx)
}

// Catalog returns the collaborator the service persists to.
func (s *WorkspaceService) Catalog() domain.Catalog { return s.catalog }

// DashboardID returns the open dashboard, or "".
func (s *WorkspaceService) DashboardID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dashboardID
}

// Open loads a dashboard into the Store, replacing whatever was open. A
// gesture in progress on the previous dashboard is dropped.
func (s *WorkspaceService) Open(ctx context.Context, dashboardID string) (LayoutState, error) {
	d, err := s.catalog.FetchDashboard(ctx, dashboardID)
	if err != nil {
		return LayoutState{}, fmt.Errorf("open dashboard: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.Abort()
	s.store.ReplaceAll(d.Blocks)
	s.edits++
	s.dashboardID = d.ID
	s.title = d.Title

	if v := layout.Validate(d.Blocks, 0); len(v) > 0 {
		s.logger.Warn("dashboard layout breaks grid rules", "dashboard", d.ID, "violations", len(v), "first", v[0].Error())
	}
	state := s.stateLocked()
	s.emitter.Emit(ctx, EventLayoutLoaded, state)
	return state, nil
}

// Reload re-fetches the open dashboard unless a gesture is active or a
// save is in flight, since either would be overwritten by older data. The
// fetched copy is also dropped when the Store changed while it was on the
// wire. It reports whether the Store was replaced.
func (s *WorkspaceService) Reload(ctx context.Context) (bool, error) {
	s.mu.Lock()
	id := s.dashboardID
	edits := s.edits
	busy := s.ctrl.Active() || s.saves.Busy()
	s.mu.Unlock()
	if id == "" {
		return false, ErrNoDashboard
	}
	if busy {
		return false, nil
	}

	d, err := s.catalog.FetchDashboard(ctx, id)
	if err != nil {
		return false, fmt.Errorf("reload dashboard: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dashboardID != id || s.edits != edits || s.ctrl.Active() || s.saves.Busy() {
		s.logger.Debug("reload dropped, layout changed during fetch", "dashboard", id)
		return false, nil
	}
	s.store.ReplaceAll(d.Blocks)
	s.title = d.Title
	s.emitter.Emit(ctx, EventLayoutLoaded, s.stateLocked())
	return true, nil
}

// State returns the current snapshot.
func (s *WorkspaceService) State() LayoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *WorkspaceService) stateLocked() LayoutState {
	in := s.ctrl.State()
	return LayoutState{
		DashboardID: s.dashboardID,
		Title:       s.title,
		Blocks:      s.store.Blocks(),
		Canvas:      s.ctrl.Canvas(),
		DropZone:    s.ctrl.DropZone(),
		Mode:        in.Mode,
		TargetID:    in.TargetID,
		Handle:      in.Handle,
	}
}

// SetCanvasWidth records a canvas resize reported by the host.
func (s *WorkspaceService) SetCanvasWidth(w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.SetCanvasWidth(w)
}

// ── Pointer events ─────────────────────────────────────────

func (s *WorkspaceService) PointerDown(ctx context.Context, blockID string, region layout.Region, h layout.Handle, pos layout.Point) (LayoutState, error) {
	return s.dispatch(ctx, layout.PointerDown{BlockID: blockID, Region: region, Handle: h, Pos: pos})
}

func (s *WorkspaceService) PointerMove(ctx context.Context, pos layout.Point) (LayoutState, error) {
	return s.dispatch(ctx, layout.PointerMove{Pos: pos})
}

func (s *WorkspaceService) PointerUp(ctx context.Context) (LayoutState, error) {
	return s.dispatch(ctx, layout.PointerUp{})
}

// CaptureLost ends the gesture when the host loses the pointer.
func (s *WorkspaceService) CaptureLost(ctx context.Context) (LayoutState, error) {
	return s.dispatch(ctx, layout.CaptureLost{})
}

func (s *WorkspaceService) dispatch(ctx context.Context, ev layout.Event) (LayoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dashboardID == "" {
		return LayoutState{}, ErrNoDashboard
	}
	state, _ := s.dispatchLocked(ctx, ev)
	return state, nil
}

func (s *WorkspaceService) dispatchLocked(ctx context.Context, ev layout.Event) (LayoutState, layout.Outcome) {
	before := s.ctrl.State().Mode
	beforeZone := s.ctrl.DropZone()
	out := s.ctrl.Handle(ev)
	state := s.stateLocked()

	if out.Changed || out.Commit != nil || out.Aborted || state.Mode != before || out.Feedback != beforeZone {
		s.emitter.Emit(ctx, EventLayoutChanged, state)
	}
	if out.Commit != nil {
		s.persistLocked(ctx, *out.Commit)
	}
	return state, out
}

// GestureResult summarizes a scripted gesture.
type GestureResult struct {
	State LayoutState `json:"state"`
	// Committed is the block as saved, nil when nothing changed.
	Committed *domain.Block `json:"committed,omitempty"`
	// Rejected is set when the last candidate was invalid, so the block
	// stayed at its last valid geometry.
	Rejected bool `json:"rejected"`
}

// Gesture feeds a complete pointer sequence to the Controller without
// letting other input interleave. It refuses to start while another
// gesture is active.
func (s *WorkspaceService) Gesture(ctx context.Context, evs ...layout.Event) (GestureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dashboardID == "" {
		return GestureResult{}, ErrNoDashboard
	}
	if s.ctrl.Active() {
		return GestureResult{}, ErrGestureActive
	}

	var res GestureResult
	for _, ev := range evs {
		state, out := s.dispatchLocked(ctx, ev)
		if _, ok := ev.(layout.PointerMove); ok {
			res.Rejected = out.Feedback.HasCollision
		}
		if out.Commit != nil {
			b := *out.Commit
			res.Committed = &b
		}
		res.State = state
	}
	if s.ctrl.Active() {
		s.ctrl.Abort()
		res.State = s.stateLocked()
	}
	return res, nil
}

// persistLocked saves b's geometry in the background. The Store already
// holds the new geometry and keeps it whether or not the save succeeds.
func (s *WorkspaceService) persistLocked(ctx context.Context, b domain.Block) {
	dashboardID := s.dashboardID
	s.edits++
	s.saves.Begin(b.ID)
	bg := context.WithoutCancel(ctx)

	go func() {
		defer s.saves.Unlock(b.ID)
		ctx, cancel := context.WithTimeout(bg, saveTimeout)
		defer cancel()

		if _, err := s.catalog.UpdateBlockGeometry(ctx, dashboardID, b.ID, b); err != nil {
			s.logger.Error("save block geometry", "dashboard", dashboardID, "block", b.ID, "err", err)
			s.emitter.Emit(bg, EventLayoutPersistFailed, PersistFailure{
				DashboardID: dashboardID,
				BlockID:     b.ID,
				Geometry:    b.Geometry,
				Error:       err.Error(),
			})
			return
		}
		s.logger.Debug("block geometry saved", "block", b.ID, "x", b.X, "y", b.Y, "w", b.Width, "h", b.Height)
	}()
}

// Pending reports how many geometry saves for blockID are in flight.
func (s *WorkspaceService) Pending(blockID string) int {
	return s.saves.Pending(blockID)
}

// Wait blocks until every in-flight save finished or ctx is done.
func (s *WorkspaceService) Wait(ctx context.Context) error {
	return s.saves.WaitAll(ctx)
}

// ── Block CRUD ─────────────────────────────────────────────

// CreateBlock creates draft on the open dashboard. A draft without geometry
// gets the default size at the first free slot; a draft whose geometry does
// not fit is moved to one. The block enters the Store only once the catalog
// returned it.
func (s *WorkspaceService) CreateBlock(ctx context.Context, draft domain.Block) (*domain.Block, error) {
	s.mu.Lock()
	dashboardID := s.dashboardID
	if dashboardID == "" {
		s.mu.Unlock()
		return nil, ErrNoDashboard
	}
	draft.Geometry = s.placeLocked(draft.Geometry, "")
	s.mu.Unlock()

	created, err := s.catalog.CreateBlock(ctx, dashboardID, draft)
	if err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dashboardID != dashboardID {
		return created, nil
	}
	b := *created
	if g := s.placeLocked(b.Geometry, b.ID); g != b.Geometry {
		// The slot was taken while the catalog answered. The new block is
		// not in the Store yet, so no gesture can own it; move it to a free
		// slot and save that.
		b.Geometry = g
		s.store.Put(b)
		s.persistLocked(ctx, b)
	} else {
		s.edits++
		s.store.Put(b)
	}
	s.emitter.Emit(ctx, EventLayoutChanged, s.stateLocked())
	return &b, nil
}

// placeLocked returns g if it is a valid spot on the canvas, otherwise a
// free slot for a block of g's size (default size if unset).
func (s *WorkspaceService) placeLocked(g domain.Geometry, excludeID string) domain.Geometry {
	canvas := s.ctrl.Canvas()
	if !g.IsZero() {
		snapped := domain.Geometry{
			X:      layout.Snap(g.X),
			Y:      layout.Snap(g.Y),
			Width:  max(layout.MinWidth, layout.Snap(g.Width)),
			Height: max(layout.MinHeight, layout.Snap(g.Height)),
		}
		if snapped.X >= 0 && snapped.Y >= 0 && snapped.Right() <= canvas.Width &&
			!s.store.CandidateCollides(snapped, excludeID) {
			return snapped
		}
		g = snapped
	} else {
		g = domain.Geometry{Width: layout.DefaultBlockWidth, Height: layout.DefaultBlockHeight}
	}

	others := s.store.Blocks()
	if excludeID != "" {
		kept := others[:0]
		for _, b := range others {
			if b.ID != excludeID {
				kept = append(kept, b)
			}
		}
		others = kept
	}
	g.Width = layout.FitWidth(g.Width, canvas.Width)
	g.X, g.Y = layout.NewPlacer(canvas.Width).NextPosition(others, g.Width, g.Height)
	return g
}

// UpdateBlockMetadata replaces a block's non-geometry fields. The geometry
// sent to the catalog, and kept in the Store, is the Store's.
func (s *WorkspaceService) UpdateBlockMetadata(ctx context.Context, blockID string, fields domain.Block) (*domain.Block, error) {
	s.mu.Lock()
	dashboardID := s.dashboardID
	cur, ok := s.store.Get(blockID)
	s.mu.Unlock()
	if dashboardID == "" {
		return nil, ErrNoDashboard
	}
	if !ok {
		return nil, fmt.Errorf("block %s: %w", blockID, domain.ErrNotFound)
	}

	fields.ID = blockID
	fields.Geometry = cur.Geometry
	updated, err := s.catalog.UpdateBlockMetadata(ctx, dashboardID, blockID, fields)
	if err != nil {
		return nil, fmt.Errorf("update block: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b := *updated
	if now, ok := s.store.Get(blockID); ok && s.dashboardID == dashboardID {
		b.Geometry = now.Geometry
		s.edits++
		s.store.Put(b)
		s.emitter.Emit(ctx, EventLayoutChanged, s.stateLocked())
	}
	return &b, nil
}

// DeleteBlock deletes a block in the catalog, then removes it from the
// Store. A gesture on that block ends without a save.
func (s *WorkspaceService) DeleteBlock(ctx context.Context, blockID string) error {
	s.mu.Lock()
	dashboardID := s.dashboardID
	s.mu.Unlock()
	if dashboardID == "" {
		return ErrNoDashboard
	}

	if err := s.catalog.DeleteBlock(ctx, dashboardID, blockID); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dashboardID != dashboardID {
		return nil
	}
	if s.ctrl.State().TargetID == blockID {
		s.ctrl.Abort()
	}
	if s.store.Remove(blockID) {
		s.edits++
		s.emitter.Emit(ctx, EventLayoutChanged, s.stateLocked())
	}
	return nil
}
