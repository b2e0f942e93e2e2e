// Package layout is the block-layout engine behind the dashboard canvas.
//
// A Store owns the geometry of every block on the open dashboard. A
// Controller turns pointer events into grid-aligned, collision-free updates
// against the Store and decides when a finished gesture must be persisted.
// Nothing in this package performs I/O or is safe for concurrent use; the
// caller serializes access.
package layout

import (
	"math"

	"dashgrid/internal/domain"
)

// Constants shared with the catalog service.
const (
	GridSize            = 40.0
	MinWidth            = 200.0
	MinHeight           = 160.0
	MinCanvasHeight     = 600.0
	CanvasBottomPadding = 100.0
)

// Point is a pointer position in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Canvas is the surface blocks live on. Width comes from the host, Height
// is derived from the blocks (see CanvasHeight).
type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Snap rounds v to the nearest grid line. Halves round up, so -20 snaps
// to 0 rather than -40.
func Snap(v float64) float64 {
	return math.Floor(v/GridSize+0.5) * GridSize
}

// floorGrid rounds v down to a grid line.
func floorGrid(v float64) float64 {
	return math.Floor(v/GridSize) * GridSize
}

// ceilGrid rounds v up to a grid line.
func ceilGrid(v float64) float64 {
	return math.Ceil(v/GridSize) * GridSize
}

func onGrid(v float64) bool {
	return math.Mod(v, GridSize) == 0
}

// clamp limits v to [lo, hi]. An empty range collapses to lo.
func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// Overlaps reports whether a and b share positive area.
// Rectangles that only touch along an edge do not overlap.
func Overlaps(a, b domain.Geometry) bool {
	return a.X < b.X+b.Width && a.X+a.Width > b.X &&
		a.Y < b.Y+b.Height && a.Y+a.Height > b.Y
}

// spansOverlap reports whether the horizontal spans [X, X+Width) intersect.
func spansOverlap(a, b domain.Geometry) bool {
	return a.X < b.Right() && a.Right() > b.X
}

// inside reports whether g lies fully within the canvas.
func inside(g domain.Geometry, c Canvas) bool {
	return g.X >= 0 && g.Y >= 0 && g.Right() <= c.Width && g.Bottom() <= c.Height
}

// CanvasHeight derives the canvas height from the blocks on it:
// the lowest bottom edge plus padding, never less than MinCanvasHeight.
func CanvasHeight(blocks []domain.Block) float64 {
	h := MinCanvasHeight
	for _, b := range blocks {
		h = math.Max(h, b.Bottom()+CanvasBottomPadding)
	}
	return h
}
