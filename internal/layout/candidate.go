package layout

import (
	"math"

	"dashgrid/internal/domain"
)

// Candidate is a proposed geometry for one block and whether the Store
// would accept it.
type Candidate struct {
	BlockID  string          `json:"blockId"`
	Geometry domain.Geometry `json:"geometry"`
	Valid    bool            `json:"valid"`
}

// DragGeometry places a block that started at origin after the pointer
// moved by delta: snapped to the grid and clamped so the block stays on
// the canvas.
func DragGeometry(origin domain.Geometry, delta Point, canvas Canvas) domain.Geometry {
	g := origin
	g.X = clamp(Snap(origin.X+delta.X), 0, floorGrid(canvas.Width-origin.Width))
	g.Y = clamp(Snap(origin.Y+delta.Y), 0, floorGrid(canvas.Height-origin.Height))
	return g
}

// ResizeGeometry resizes a block that started at origin by dragging grip h
// by delta. Sizes snap to the grid and never drop below the minimum; when
// the left or top edge moves, the opposite edge stays where it was. The
// result is capped to the canvas.
func ResizeGeometry(h Handle, origin domain.Geometry, delta Point, canvas Canvas) domain.Geometry {
	e := handleEdges[h]
	g := origin

	if e.dx != 0 {
		w := math.Max(MinWidth, Snap(origin.Width+float64(e.dx)*delta.X))
		if e.dx < 0 {
			w = math.Min(w, origin.Right())
			g.X = origin.X + (origin.Width - w)
		}
		g.Width = w
	}
	if e.dy != 0 {
		hgt := math.Max(MinHeight, Snap(origin.Height+float64(e.dy)*delta.Y))
		if e.dy < 0 {
			hgt = math.Min(hgt, origin.Bottom())
			g.Y = origin.Y + (origin.Height - hgt)
		}
		g.Height = hgt
	}

	g.Width = math.Min(g.Width, floorGrid(canvas.Width-g.X))
	g.Height = math.Min(g.Height, floorGrid(canvas.Height-g.Y))
	return g
}

// RestY returns where a dropped block comes to rest vertically: the lowest
// bottom edge, at or above moved.Y, among the other blocks sharing its
// horizontal span. With no such block it rests at 0.
func RestY(moved domain.Geometry, movedID string, blocks []domain.Block) float64 {
	rest := 0.0
	for _, b := range blocks {
		if b.ID == movedID || !spansOverlap(moved, b.Geometry) {
			continue
		}
		if bottom := b.Bottom(); bottom <= moved.Y && bottom > rest {
			rest = bottom
		}
	}
	return rest
}

// Propose computes the candidate for the interaction in at pointer pos
// without touching the Store. It returns false when no interaction is
// active or its block is gone.
func Propose(s *Store, in Interaction, pos Point, canvas Canvas) (Candidate, bool) {
	b, ok := s.Get(in.TargetID)
	if !ok {
		return Candidate{}, false
	}
	delta := pos.Sub(in.PointerOrigin)

	var g domain.Geometry
	switch in.Mode {
	case ModeDragging:
		g = DragGeometry(in.BlockOrigin, delta, canvas)
	case ModeResizing:
		g = ResizeGeometry(in.Handle, in.BlockOrigin, delta, canvas)
	default:
		return Candidate{}, false
	}

	valid := inside(g, canvas) && !s.CandidateCollides(g, b.ID)
	if in.Mode == ModeResizing {
		valid = valid && g.Width >= MinWidth && g.Height >= MinHeight
	}
	return Candidate{BlockID: b.ID, Geometry: g, Valid: valid}, true
}
