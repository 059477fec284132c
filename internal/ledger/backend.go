// Package ledger owns the canonical transaction collection: load, append,
// delete and aggregate, with read-after-write consistency over any Backend.
package ledger

import (
	"context"

	"budget/internal/core"
)

// Backend persists the whole ledger.
//
// ReadAll returns (nil, nil) when nothing has been persisted yet. WriteAll
// replaces the persisted collection in full and must never leave a partially
// written store behind.
type Backend interface {
	ReadAll(ctx context.Context) ([]core.Transaction, error)
	WriteAll(ctx context.Context, txs []core.Transaction) error
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
