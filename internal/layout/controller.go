package layout

import "dashgrid/internal/domain"

// Mode is the interaction state of the canvas.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDragging
	ModeResizing
)

func (m Mode) String() string {
	switch m {
	case ModeDragging:
		return "dragging"
	case ModeResizing:
		return "resizing"
	default:
		return "idle"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Region is the part of a block a pointer-down landed on.
type Region int

const (
	// RegionHeader is the draggable part of a block.
	RegionHeader Region = iota
	// RegionHandle is one of the resize grips; PointerDown.Handle says which.
	RegionHandle
	// RegionControl covers the block's buttons. Presses there never start
	// a gesture.
	RegionControl
)

// Event is an input message for the Controller.
type Event interface {
	isEvent()
}

type PointerDown struct {
	BlockID string
	Region  Region
	Handle  Handle
	Pos     Point
}

type PointerMove struct {
	Pos Point
}

type PointerUp struct{}

// CaptureLost is sent when the host loses the pointer (window blur and
// the like). It finishes the gesture exactly like PointerUp.
type CaptureLost struct{}

func (PointerDown) isEvent() {}
func (PointerMove) isEvent() {}
func (PointerUp) isEvent()   {}
func (CaptureLost) isEvent() {}

// Interaction is the transient state of the gesture in progress.
type Interaction struct {
	Mode          Mode            `json:"mode"`
	TargetID      string          `json:"targetId,omitempty"`
	Handle        Handle          `json:"handle,omitempty"`
	PointerOrigin Point           `json:"pointerOrigin"`
	BlockOrigin   domain.Geometry `json:"blockOrigin"`
	PendingCommit *domain.Block   `json:"-"`
}

// DropZone is the visual hint for where the block under interaction
// would land.
type DropZone struct {
	Visible      bool            `json:"visible"`
	Geometry     domain.Geometry `json:"geometry"`
	HasCollision bool            `json:"hasCollision"`
}

// Outcome reports the effect of one event.
type Outcome struct {
	// Changed is set when the Store was mutated.
	Changed bool
	// Feedback is the drop-zone hint after the event.
	Feedback DropZone
	// Commit is the block to persist. Only set on the transition back to
	// idle, and only if the gesture produced at least one valid candidate.
	Commit *domain.Block
	// Aborted is set when the gesture ended because its block vanished.
	Aborted bool
}

// CaptureTracker is told when global pointer tracking must start and stop.
// Attach is called on entering Dragging or Resizing, Detach on leaving it.
type CaptureTracker interface {
	Attach(mode Mode, h Handle)
	Detach()
}

type noopTracker struct{}

func (noopTracker) Attach(Mode, Handle) {}
func (noopTracker) Detach()             {}

// Controller is the pointer-driven state machine over a Store.
// At most one gesture is active at a time.
type Controller struct {
	store       *Store
	canvasWidth float64
	tracker     CaptureTracker
	state       Interaction
	dropZone    DropZone
}

// NewController creates an idle Controller. tracker may be nil.
func NewController(store *Store, canvasWidth float64, tracker CaptureTracker) *Controller {
	if tracker == nil {
		tracker = noopTracker{}
	}
	return &Controller{store: store, canvasWidth: canvasWidth, tracker: tracker}
}

// Canvas returns the current canvas bounds.
func (c *Controller) Canvas() Canvas {
	return Canvas{Width: c.canvasWidth, Height: c.store.CanvasHeight()}
}

// SetCanvasWidth records an external canvas resize. An active gesture
// picks the new bounds up on its next move.
func (c *Controller) SetCanvasWidth(w float64) {
	c.canvasWidth = w
}

// State returns a copy of the current interaction.
func (c *Controller) State() Interaction {
	return c.state
}

// DropZone returns the current drop-zone hint.
func (c *Controller) DropZone() DropZone {
	return c.dropZone
}

// Active reports whether a drag or resize is in progress.
func (c *Controller) Active() bool {
	return c.state.Mode != ModeIdle
}

// Handle feeds one event into the state machine.
func (c *Controller) Handle(ev Event) Outcome {
	switch ev := ev.(type) {
	case PointerDown:
		c.begin(ev)
		return Outcome{Feedback: c.dropZone}
	case PointerMove:
		return c.move(ev.Pos)
	case PointerUp, CaptureLost:
		return c.release()
	}
	return Outcome{Feedback: c.dropZone}
}

// Abort ends the active gesture without persisting anything.
func (c *Controller) Abort() {
	if c.Active() {
		c.reset()
	}
}

func (c *Controller) begin(ev PointerDown) {
	if c.Active() || ev.Region == RegionControl {
		return
	}
	b, ok := c.store.Get(ev.BlockID)
	if !ok {
		return
	}

	switch ev.Region {
	case RegionHeader:
		c.state = Interaction{
			Mode:          ModeDragging,
			TargetID:      b.ID,
			PointerOrigin: ev.Pos,
			BlockOrigin:   b.Geometry,
		}
	case RegionHandle:
		if !ev.Handle.Valid() {
			return
		}
		c.state = Interaction{
			Mode:          ModeResizing,
			TargetID:      b.ID,
			Handle:        ev.Handle,
			PointerOrigin: ev.Pos,
			BlockOrigin:   b.Geometry,
		}
	default:
		return
	}
	c.tracker.Attach(c.state.Mode, c.state.Handle)
}

func (c *Controller) move(pos Point) Outcome {
	if !c.Active() {
		return Outcome{Feedback: c.dropZone}
	}
	cand, ok := Propose(c.store, c.state, pos, c.Canvas())
	if !ok {
		c.reset()
		return Outcome{Aborted: true}
	}

	c.dropZone = DropZone{Visible: true, Geometry: cand.Geometry, HasCollision: !cand.Valid}
	out := Outcome{Feedback: c.dropZone}
	if !cand.Valid {
		return out
	}

	b, _ := c.store.Get(cand.BlockID)
	out.Changed = b.Geometry != cand.Geometry
	c.store.Apply(b.ID, cand.Geometry)
	pending := b.WithGeometry(cand.Geometry)
	c.state.PendingCommit = &pending
	return out
}

func (c *Controller) release() Outcome {
	if !c.Active() {
		return Outcome{Feedback: c.dropZone}
	}
	st := c.state
	c.reset()

	b, ok := c.store.Get(st.TargetID)
	if !ok {
		return Outcome{Aborted: true}
	}
	if st.PendingCommit == nil {
		return Outcome{}
	}

	var out Outcome
	if st.Mode == ModeDragging {
		if y := RestY(b.Geometry, b.ID, c.store.blocks); y != b.Y {
			b.Y = y
			c.store.Apply(b.ID, b.Geometry)
			out.Changed = true
		}
	}
	out.Commit = &b
	return out
}

func (c *Controller) reset() {
	c.state = Interaction{}
	c.dropZone = DropZone{}
	c.tracker.Detach()
}
