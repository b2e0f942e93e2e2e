package layout

import (
	"fmt"

	"dashgrid/internal/domain"
)

// Violation is one broken layout invariant.
type Violation struct {
	BlockID string
	OtherID string
	Rule    string
}

func (v Violation) Error() string {
	if v.OtherID != "" {
		return fmt.Sprintf("block %s: %s with block %s", v.BlockID, v.Rule, v.OtherID)
	}
	return fmt.Sprintf("block %s: %s", v.BlockID, v.Rule)
}

// Validate checks every block against the committed-layout invariants:
// grid alignment, minimum size, canvas containment and pairwise overlap.
// A canvasWidth of 0 skips the right-edge check.
func Validate(blocks []domain.Block, canvasWidth float64) []Violation {
	var out []Violation
	canvas := Canvas{Width: canvasWidth, Height: CanvasHeight(blocks)}

	for i, b := range blocks {
		if !onGrid(b.X) || !onGrid(b.Y) || !onGrid(b.Width) || !onGrid(b.Height) {
			out = append(out, Violation{BlockID: b.ID, Rule: "off grid"})
		}
		if b.Width < MinWidth || b.Height < MinHeight {
			out = append(out, Violation{BlockID: b.ID, Rule: "below minimum size"})
		}
		if b.X < 0 || b.Y < 0 || b.Bottom() > canvas.Height || (canvasWidth > 0 && b.Right() > canvasWidth) {
			out = append(out, Violation{BlockID: b.ID, Rule: "outside canvas"})
		}
		for _, o := range blocks[i+1:] {
			if Overlaps(b.Geometry, o.Geometry) {
				out = append(out, Violation{BlockID: b.ID, OtherID: o.ID, Rule: "overlaps"})
			}
		}
	}
	return out
}

// CheckGeometry rejects geometry no client may store: a negative position
// or a size below the minimum.
func CheckGeometry(g domain.Geometry) error {
	switch {
	case g.X < 0 || g.Y < 0:
		return fmt.Errorf("%w: negative position (%.0f, %.0f)", domain.ErrInvalidGeometry, g.X, g.Y)
	case g.Width < MinWidth || g.Height < MinHeight:
		return fmt.Errorf("%w: size %.0fx%.0f below minimum %.0fx%.0f",
			domain.ErrInvalidGeometry, g.Width, g.Height, MinWidth, MinHeight)
	}
	return nil
}
