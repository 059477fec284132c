// Package memory is an in-process ledger backend, used for demos and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"budget/internal/core"
	"budget/internal/ledger"
)

type Store struct {
	mu     sync.Mutex
	items  []core.Transaction
	writes int
}

var _ ledger.Backend = (*Store)(nil)

// New returns a store holding a copy of seed.
func New(seed ...core.Transaction) *Store {
	return &Store{items: slices.Clone(seed)}
}

func (s *Store) ReadAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items), nil
}

func (s *Store) WriteAll(ctx context.Context, txs []core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(txs)
	s.writes++
	return nil
}

// Writes reports how many times the collection was replaced.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
