package layout

import (
	"testing"

	"dashgrid/internal/domain"
)

func TestSnap(t *testing.T) {
	tests := []struct {
		input, want float64
	}{
		{0, 0},
		{19, 0},
		{20, 40},
		{39, 40},
		{40, 40},
		{100, 120},
		{-19, 0},
		{-20, 0},
		{-21, -40},
	}
	for _, tt := range tests {
		if got := Snap(tt.input); got != tt.want {
			t.Errorf("Snap(%.0f) = %.0f, want %.0f", tt.input, got, tt.want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	a := domain.Geometry{X: 0, Y: 0, Width: 200, Height: 160}
	tests := []struct {
		name string
		b    domain.Geometry
		want bool
	}{
		{"same rect", a, true},
		{"partial", domain.Geometry{X: 100, Y: 80, Width: 200, Height: 160}, true},
		{"touching right edge", domain.Geometry{X: 200, Y: 0, Width: 200, Height: 160}, false},
		{"touching bottom edge", domain.Geometry{X: 0, Y: 160, Width: 200, Height: 160}, false},
		{"touching corner", domain.Geometry{X: 200, Y: 160, Width: 40, Height: 40}, false},
		{"contained", domain.Geometry{X: 40, Y: 40, Width: 40, Height: 40}, true},
		{"far away", domain.Geometry{X: 800, Y: 800, Width: 200, Height: 160}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(a, tt.b); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := Overlaps(tt.b, a); got != tt.want {
				t.Errorf("Overlaps (swapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanvasHeight(t *testing.T) {
	blocks := []domain.Block{
		{ID: "a", Geometry: domain.Geometry{Y: 300, Width: 200, Height: 200}},
		{ID: "b", Geometry: domain.Geometry{Y: 500, Width: 200, Height: 400}},
		{ID: "c", Geometry: domain.Geometry{Y: 100, Width: 200, Height: 200}},
	}
	if got := CanvasHeight(blocks); got != 1000 {
		t.Errorf("CanvasHeight = %.0f, want 1000", got)
	}

	s := NewStore(blocks)
	s.Remove("b")
	if got := s.CanvasHeight(); got != 600 {
		t.Errorf("CanvasHeight after removing tallest = %.0f, want 600", got)
	}

	if got := CanvasHeight(nil); got != MinCanvasHeight {
		t.Errorf("CanvasHeight(nil) = %.0f, want %.0f", got, MinCanvasHeight)
	}
}
