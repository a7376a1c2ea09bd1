package engine

import (
	"sync"

	"github.com/caffeinepub/momentum-sub000/domain"
)

// BoardStore holds the current board pointer. Readers get whatever pointer is
// current and treat it as immutable; only the coordinator swaps it during a
// move. The store is passed in explicitly so mutations and rollbacks are
// testable without any ambient cache.
type BoardStore struct {
	mu    sync.RWMutex
	board *domain.Board
}

// NewBoardStore creates a store seeded with the given board. A nil board is
// replaced by an empty one.
func NewBoardStore(b *domain.Board) *BoardStore {
	if b == nil {
		b = domain.NewBoard(nil)
	}
	return &BoardStore{board: b}
}

// Board returns the current board.
func (s *BoardStore) Board() *domain.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// Swap installs a new board pointer.
func (s *BoardStore) Swap(b *domain.Board) {
	s.mu.Lock()
	s.board = b
	s.mu.Unlock()
}
