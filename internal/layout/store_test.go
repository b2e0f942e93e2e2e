package layout

import (
	"testing"

	"dashgrid/internal/domain"
)

func block(id string, x, y, w, h float64) domain.Block {
	return domain.Block{ID: id, Title: "block " + id, Geometry: domain.Geometry{X: x, Y: y, Width: w, Height: h}}
}

func TestStore_ReplaceAllCopies(t *testing.T) {
	src := []domain.Block{block("a", 0, 0, 200, 160)}
	s := NewStore(src)
	src[0].X = 999

	b, ok := s.Get("a")
	if !ok {
		t.Fatal("expected block a")
	}
	if b.X != 0 {
		t.Errorf("store shares caller slice: x = %.0f", b.X)
	}

	s.ReplaceAll([]domain.Block{block("b", 0, 0, 200, 160)})
	if _, ok := s.Get("a"); ok {
		t.Error("expected a to be gone after ReplaceAll")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestStore_CandidateCollides(t *testing.T) {
	s := NewStore([]domain.Block{
		block("a", 0, 0, 200, 160),
		block("b", 240, 0, 200, 160),
	})

	if !s.CandidateCollides(domain.Geometry{X: 120, Y: 0, Width: 200, Height: 160}, "b") {
		t.Error("expected collision with a")
	}
	if s.CandidateCollides(domain.Geometry{X: 0, Y: 0, Width: 200, Height: 160}, "a") {
		t.Error("a must not collide with itself")
	}
	if s.CandidateCollides(domain.Geometry{X: 200, Y: 0, Width: 40, Height: 160}, "x") {
		t.Error("edge-touching candidate must not collide")
	}
}

func TestStore_ApplyPutRemove(t *testing.T) {
	s := NewStore([]domain.Block{block("a", 0, 0, 200, 160)})

	g := domain.Geometry{X: 40, Y: 80, Width: 240, Height: 200}
	if !s.Apply("a", g) {
		t.Fatal("Apply on existing block returned false")
	}
	if !s.Apply("a", g) {
		t.Fatal("Apply must be repeatable")
	}
	b, _ := s.Get("a")
	if b.Geometry != g || b.Title != "block a" {
		t.Errorf("unexpected block after Apply: %+v", b)
	}
	if s.Apply("missing", g) {
		t.Error("Apply on missing block returned true")
	}

	s.Put(block("b", 400, 0, 200, 160))
	updated := block("a", 0, 0, 200, 160)
	updated.Title = "renamed"
	s.Put(updated)
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if b, _ := s.Get("a"); b.Title != "renamed" {
		t.Errorf("Put did not replace in place: %+v", b)
	}
	if blocks := s.Blocks(); blocks[0].ID != "a" {
		t.Errorf("Put changed order: first is %s", blocks[0].ID)
	}

	if !s.Remove("a") || s.Remove("a") {
		t.Error("Remove should succeed once")
	}
}
