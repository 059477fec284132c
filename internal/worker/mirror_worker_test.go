package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/storage/memory"
)

type failingBackend struct {
	mu    sync.Mutex
	calls int
}

func (f *failingBackend) ReadAll(context.Context) ([]core.Transaction, error) { return nil, nil }

func (f *failingBackend) WriteAll(context.Context, []core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &core.StorageUnavailableError{Op: "update", Err: errors.New("quota exceeded")}
}

func seed() []core.Transaction {
	return []core.Transaction{
		{ID: 1, Date: core.NewDate(2024, 3, 1), Amount: core.Money{Cents: 200000}, Category: "Revenus", Account: "CIC", Type: core.TypeIncome},
		{ID: 2, Date: core.NewDate(2024, 3, 2), Amount: core.Money{Cents: -5000}, Category: "Alimentaire", Account: "CIC", Type: core.TypeExpense},
	}
}

func TestSyncCopiesSource(t *testing.T) {
	source := memory.New(seed()...)
	mirror := memory.New()
	w := NewMirrorWorker(ledger.NewStore(source, nil, log.Discard()), mirror, Config{}, log.Discard())

	require.NoError(t, w.Sync(context.Background()))

	got, err := mirror.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID, "newest first")

	stats := w.Stats()
	assert.Equal(t, 1, stats.Syncs)
	assert.Equal(t, 2, stats.LastCount)
	assert.Empty(t, stats.LastError)
}

func TestHandleLedgerChangedSeesExternalWrites(t *testing.T) {
	ctx := context.Background()
	source := memory.New(seed()...)
	mirror := memory.New()
	store := ledger.NewStore(source, nil, log.Discard())
	w := NewMirrorWorker(store, mirror, Config{}, log.Discard())

	_, err := store.Load(ctx)
	require.NoError(t, err)

	// Another process commits behind this store's cache.
	other := ledger.NewStore(source, nil, log.Discard())
	_, err = other.Append(ctx, core.Candidate{Date: "2024-03-05", Amount: "9.90", Category: "Divers", Account: "CIC", Type: core.TypeExpense})
	require.NoError(t, err)

	msg := amqp.NewLedgerChangedMessage(amqp.ChangeAppend, []int64{3})
	require.NoError(t, w.HandleLedgerChanged(ctx, msg))

	got, err := mirror.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestHandleLedgerChangedReturnsMirrorError(t *testing.T) {
	mirror := &failingBackend{}
	w := NewMirrorWorker(ledger.NewStore(memory.New(seed()...), nil, log.Discard()), mirror, Config{}, log.Discard())

	err := w.HandleLedgerChanged(context.Background(), amqp.NewLedgerChangedMessage(amqp.ChangeResync, nil))
	require.Error(t, err)
	assert.True(t, core.IsUnavailable(err))
	assert.Equal(t, 1, w.Stats().Failures)
	assert.Contains(t, w.Stats().LastError, "quota exceeded")
}

func TestStartStop(t *testing.T) {
	mirror := memory.New()
	w := NewMirrorWorker(ledger.NewStore(memory.New(seed()...), nil, log.Discard()), mirror, Config{Interval: 10 * time.Millisecond}, log.Discard())
	ctx := context.Background()

	assert.False(t, w.IsRunning())
	require.NoError(t, w.Start(ctx))
	assert.Error(t, w.Start(ctx), "second start is rejected")

	assert.Eventually(t, func() bool { return mirror.Writes() >= 2 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))
	assert.False(t, w.IsRunning())
	assert.NoError(t, w.Stop(stopCtx), "stop is idempotent")
}

func TestRestartAfterStop(t *testing.T) {
	mirror := memory.New()
	w := NewMirrorWorker(ledger.NewStore(memory.New(seed()...), nil, log.Discard()), mirror, Config{Interval: 10 * time.Millisecond}, log.Discard())
	ctx := context.Background()
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Start(ctx))
		require.NoError(t, w.Stop(stopCtx))
	}

	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())
	before := mirror.Writes()
	assert.Eventually(t, func() bool { return mirror.Writes() > before+1 }, time.Second, 5*time.Millisecond,
		"the latest loop keeps ticking after earlier loops exited")
	require.NoError(t, w.Stop(stopCtx))
	assert.False(t, w.IsRunning())
}

func TestDefaultsApplied(t *testing.T) {
	w := NewMirrorWorker(nil, nil, Config{}, nil)
	assert.Equal(t, DefaultConfig(), w.config)
}
