package layout

import (
	"math"

	"dashgrid/internal/domain"
)

// Default size of a block created without geometry.
const (
	DefaultBlockWidth  = 400.0
	DefaultBlockHeight = 320.0
)

// FitWidth shrinks w so a block fits a canvas of the given width, without
// going below MinWidth.
func FitWidth(w, canvasWidth float64) float64 {
	return math.Max(MinWidth, math.Min(w, floorGrid(canvasWidth)))
}

// Placer finds room for blocks that arrive without a position, such as
// blocks created from the editing form or by an agent.
type Placer struct {
	gap     float64
	maxRowW float64
}

// NewPlacer returns a Placer for a canvas of the given width. Blocks it
// places keep one grid cell of air around existing ones.
func NewPlacer(canvasWidth float64) *Placer {
	return &Placer{gap: GridSize, maxRowW: canvasWidth}
}

// NextPosition returns the first grid slot, scanning rows top to bottom
// and columns left to right, where a w×h block fits without touching the
// existing blocks.
func (p *Placer) NextPosition(existing []domain.Block, w, h float64) (float64, float64) {
	if len(existing) == 0 {
		return 0, 0
	}

	occupied := make([]domain.Geometry, len(existing))
	maxBottom := 0.0
	for i, b := range existing {
		occupied[i] = domain.Geometry{
			X:      b.X - p.gap,
			Y:      b.Y - p.gap,
			Width:  b.Width + p.gap*2,
			Height: b.Height + p.gap*2,
		}
		maxBottom = math.Max(maxBottom, b.Bottom())
	}

	candidate := domain.Geometry{Width: w, Height: h}
	for y := 0.0; y <= maxBottom; y += GridSize {
		for x := 0.0; x+w <= p.maxRowW; x += GridSize {
			candidate.X, candidate.Y = x, y
			free := true
			for _, occ := range occupied {
				if Overlaps(candidate, occ) {
					free = false
					break
				}
			}
			if free {
				return x, y
			}
		}
	}

	// Nothing free above the lowest block: start a new row below it.
	return 0, ceilGrid(maxBottom + p.gap)
}
