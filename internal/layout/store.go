package layout

import "dashgrid/internal/domain"

// Store holds the blocks of the dashboard currently on screen.
// It trusts whatever ReplaceAll receives; every later geometry change goes
// through Apply after the caller has validated it.
type Store struct {
	blocks []domain.Block
}

// NewStore returns a Store holding a copy of blocks.
func NewStore(blocks []domain.Block) *Store {
	s := &Store{}
	s.ReplaceAll(blocks)
	return s
}

// ReplaceAll swaps the working set, e.g. when another dashboard is loaded.
// Legacy off-grid geometry is accepted as is.
func (s *Store) ReplaceAll(blocks []domain.Block) {
	s.blocks = append(make([]domain.Block, 0, len(blocks)), blocks...)
}

// Len returns the number of blocks.
func (s *Store) Len() int { return len(s.blocks) }

// Blocks returns a copy of the working set in load order.
func (s *Store) Blocks() []domain.Block {
	return append([]domain.Block(nil), s.blocks...)
}

// Get returns the block with id.
func (s *Store) Get(id string) (domain.Block, bool) {
	if i := s.index(id); i >= 0 {
		return s.blocks[i], true
	}
	return domain.Block{}, false
}

func (s *Store) index(id string) int {
	for i := range s.blocks {
		if s.blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// CandidateCollides reports whether candidate overlaps any block other
// than excludeID with positive area.
func (s *Store) CandidateCollides(candidate domain.Geometry, excludeID string) bool {
	for _, b := range s.blocks {
		if b.ID == excludeID {
			continue
		}
		if Overlaps(candidate, b.Geometry) {
			return true
		}
	}
	return false
}

// Apply writes g onto the block with id. It does not validate; it reports
// false only when the block is gone.
func (s *Store) Apply(id string, g domain.Geometry) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.blocks[i].Geometry = g
	return true
}

// Put inserts b, or replaces the block with the same id in place.
func (s *Store) Put(b domain.Block) {
	if i := s.index(b.ID); i >= 0 {
		s.blocks[i] = b
		return
	}
	s.blocks = append(s.blocks, b)
}

// Remove drops the block with id and reports whether it existed.
func (s *Store) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
	return true
}

// CanvasHeight recomputes the canvas height from the current blocks.
func (s *Store) CanvasHeight() float64 {
	return CanvasHeight(s.blocks)
}
