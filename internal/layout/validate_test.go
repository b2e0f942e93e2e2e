package layout

import (
	"errors"
	"testing"

	"dashgrid/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		blocks []domain.Block
		rules  []string
	}{
		{"valid", []domain.Block{block("a", 0, 0, 200, 160), block("b", 200, 0, 200, 160)}, nil},
		{"off grid", []domain.Block{block("a", 10, 0, 200, 160)}, []string{"off grid"}},
		{"too small", []domain.Block{block("a", 0, 0, 160, 160)}, []string{"below minimum size"}},
		{"past right edge", []domain.Block{block("a", 880, 0, 200, 160)}, []string{"outside canvas"}},
		{"overlap", []domain.Block{block("a", 0, 0, 200, 160), block("b", 160, 120, 200, 160)}, []string{"overlaps"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.blocks, 1000)
			if len(got) != len(tt.rules) {
				t.Fatalf("got %v, want rules %v", got, tt.rules)
			}
			for i, v := range got {
				if v.Rule != tt.rules[i] {
					t.Errorf("violation %d = %q, want %q", i, v.Rule, tt.rules[i])
				}
			}
		})
	}
}

func TestCheckGeometry(t *testing.T) {
	ok := domain.Geometry{X: 0, Y: 0, Width: 200, Height: 160}
	if err := CheckGeometry(ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, g := range []domain.Geometry{
		{X: -40, Y: 0, Width: 200, Height: 160},
		{X: 0, Y: 0, Width: 199, Height: 160},
		{X: 0, Y: 0, Width: 200, Height: 120},
	} {
		if err := CheckGeometry(g); !errors.Is(err, domain.ErrInvalidGeometry) {
			t.Errorf("CheckGeometry(%+v) = %v, want ErrInvalidGeometry", g, err)
		}
	}
}

func TestParseHandle(t *testing.T) {
	for _, h := range Handles {
		got, err := ParseHandle(h.String())
		if err != nil || got != h {
			t.Errorf("ParseHandle(%q) = %v, %v", h.String(), got, err)
		}
	}
	if _, err := ParseHandle("middle"); err == nil {
		t.Error("expected error for unknown handle")
	}
}
