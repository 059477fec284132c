package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
)

const snapshotKey = "ledger"

// AppendResult is the stored entry plus whether its sign was coerced.
type AppendResult struct {
	Transaction core.Transaction
	Normalized  bool
}

// Store is the sole owner of the transaction collection.
//
// Writers are serialized; the cached snapshot is replaced under the write
// lock after the backend accepted the new collection, so any read that starts
// after a mutation returns observes it. Snapshots are never mutated in place.
type Store struct {
	backend Backend
	cache   cache.Cache[[]core.Transaction]
	logger  *log.Logger

	mu    sync.RWMutex
	group singleflight.Group
}

// NewStore wires a store over backend. A nil cache keeps one snapshot with no expiry.
func NewStore(backend Backend, c cache.Cache[[]core.Transaction], logger *log.Logger) *Store {
	if c == nil {
		c = cache.NewLRUCache[[]core.Transaction](1, 0)
	}
	return &Store{
		backend: backend,
		cache:   c,
		logger:  log.OrDefault(logger, log.ComponentLedger),
	}
}

// Load returns a copy of the current collection, newest first.
func (s *Store) Load(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(txs), nil
}

// Append validates, normalizes and persists a new entry.
func (s *Store) Append(ctx context.Context, c core.Candidate) (AppendResult, error) {
	tx, normalized, err := c.Build()
	if err != nil {
		return AppendResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.fill(ctx)
	if err != nil {
		return AppendResult{}, err
	}

	tx.ID = nextID(current)
	next := make([]core.Transaction, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, tx)
	core.SortByDateDesc(next)

	if err := s.commit(ctx, log.OpAppend, next); err != nil {
		return AppendResult{}, err
	}

	s.logger.InfoContext(ctx, "Transaction appended",
		log.NewFields().
			WithTransaction(tx.ID, tx.Date.String(), tx.Amount.Cents, tx.Category, tx.Account, tx.Type).
			WithOperation(log.OpAppend).
			ToSlice()...)
	if normalized {
		s.logger.InfoContext(ctx, "Amount sign normalized",
			log.FieldTransactionID, tx.ID, log.FieldTxType, tx.Type, log.FieldNormalized, true)
	}
	return AppendResult{Transaction: tx, Normalized: normalized}, nil
}

// Delete removes the entries with the given identifiers and returns how many
// were removed. An empty selector, or one matching nothing, writes nothing.
func (s *Store) Delete(ctx context.Context, ids []int64) (int, error) {
	removed, err := s.Remove(ctx, ids)
	return len(removed), err
}

// Remove is Delete reporting which of ids were actually present.
func (s *Store) Remove(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.fill(ctx)
	if err != nil {
		return nil, err
	}

	selected := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}
	var removed []int64
	next := make([]core.Transaction, 0, len(current))
	for _, tx := range current {
		if _, drop := selected[tx.ID]; drop {
			removed = append(removed, tx.ID)
			continue
		}
		next = append(next, tx)
	}
	if len(removed) == 0 {
		return nil, nil
	}

	if err := s.commit(ctx, log.OpDelete, next); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Transactions deleted",
		log.NewFields().WithCount(len(removed)).WithOperation(log.OpDelete).ToSlice()...)
	return removed, nil
}

// Aggregate summarises the current collection under f.
func (s *Store) Aggregate(ctx context.Context, f Filter) (core.AggregateResult, error) {
	txs, err := s.read(ctx)
	if err != nil {
		return core.AggregateResult{}, err
	}
	return Aggregate(txs, f)
}

// Months lists the months present in the ledger, newest first.
func (s *Store) Months(ctx context.Context) ([]core.YearMonth, error) {
	txs, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return Months(txs), nil
}

// MonthOverview computes the KPIs of ym.
func (s *Store) MonthOverview(ctx context.Context, ym core.YearMonth) (core.MonthOverview, error) {
	txs, err := s.read(ctx)
	if err != nil {
		return core.MonthOverview{}, err
	}
	return Overview(txs, ym), nil
}

// Bounds returns the date span of the ledger; ok is false when it is empty.
func (s *Store) Bounds(ctx context.Context) (minDate, maxDate core.Date, ok bool, err error) {
	txs, err := s.read(ctx)
	if err != nil {
		return core.Date{}, core.Date{}, false, err
	}
	minDate, maxDate, ok = Bounds(txs)
	return minDate, maxDate, ok, nil
}

// AccountBalance sums every amount booked on account.
func (s *Store) AccountBalance(ctx context.Context, account string) (core.Money, error) {
	txs, err := s.read(ctx)
	if err != nil {
		return core.Money{}, err
	}
	return Balance(txs, account), nil
}

// Invalidate drops the cached snapshot so the next read goes to the backend.
// Used when another process may have rewritten the store.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}

// Ping checks the backend when it supports it.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.read(ctx)
	return err
}

// CacheStats reports snapshot cache usage when the cache exposes it.
func (s *Store) CacheStats() cache.Stats {
	if sc, ok := s.cache.(interface{ Stats() cache.Stats }); ok {
		return sc.Stats()
	}
	return cache.Stats{Entries: s.cache.Size()}
}

func (s *Store) read(ctx context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fill(ctx)
}

// fill returns the cached snapshot or loads it. Callers hold s.mu.
func (s *Store) fill(ctx context.Context) ([]core.Transaction, error) {
	if txs, ok := s.cache.Get(snapshotKey); ok {
		return txs, nil
	}
	v, err, _ := s.group.Do(snapshotKey, func() (any, error) {
		txs, err := s.backend.ReadAll(ctx)
		if err != nil {
			return nil, core.Unavailable("read", err)
		}
		if err := checkIdentifiers(txs); err != nil {
			return nil, err
		}
		if txs == nil {
			txs = []core.Transaction{}
		}
		core.SortByDateDesc(txs)
		s.cache.Set(snapshotKey, txs)
		return txs, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Ledger load failed",
			log.NewFields().WithError(err).WithOperation(log.OpLoad).WithErrorType(errorType(err)).ToSlice()...)
		return nil, err
	}
	return v.([]core.Transaction), nil
}

// commit persists next and publishes it as the current snapshot. Callers hold s.mu for writing.
func (s *Store) commit(ctx context.Context, op string, next []core.Transaction) error {
	if err := s.backend.WriteAll(ctx, next); err != nil {
		err = core.Unavailable("write", err)
		s.logger.ErrorContext(ctx, "Ledger persist failed",
			log.NewFields().WithError(err).WithOperation(op).WithErrorType(errorType(err)).ToSlice()...)
		return err
	}
	s.cache.Set(snapshotKey, next)
	return nil
}

func nextID(txs []core.Transaction) int64 {
	var maxID int64
	for _, tx := range txs {
		maxID = max(maxID, tx.ID)
	}
	return maxID + 1
}

func checkIdentifiers(txs []core.Transaction) error {
	seen := make(map[int64]struct{}, len(txs))
	for i, tx := range txs {
		if tx.ID <= 0 {
			return &core.StorageCorruptError{Source: "ledger", Line: i + 1, Field: "ID", Err: fmt.Errorf("non-positive identifier %d", tx.ID)}
		}
		if _, dup := seen[tx.ID]; dup {
			return &core.StorageCorruptError{Source: "ledger", Line: i + 1, Field: "ID", Err: fmt.Errorf("duplicate identifier %d", tx.ID)}
		}
		seen[tx.ID] = struct{}{}
	}
	return nil
}

func errorType(err error) string {
	var corrupt *core.StorageCorruptError
	switch {
	case errors.As(err, &corrupt):
		return log.ErrorTypeCorrupt
	case core.IsUnavailable(err):
		return log.ErrorTypeUnavailable
	default:
		return log.ErrorTypeInternal
	}
}
