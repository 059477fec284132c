// Package worker copies the ledger to a secondary backend, typically a Google
// Sheets tab, whenever it changes and on a fixed interval.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"budget/internal/amqp"
	"budget/internal/ledger"
	"budget/internal/log"
)

// Config holds the mirror worker settings.
type Config struct {
	// Interval between unconditional syncs (default: 5m)
	Interval time.Duration
	// Timeout bounds a single sync (default: 2m)
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
		Timeout:  2 * time.Minute,
	}
}

// Stats describes what the worker has done so far.
type Stats struct {
	Syncs     int
	Failures  int
	LastSync  time.Time
	LastCount int
	LastError string
}

// MirrorWorker rewrites the mirror with the full source ledger. Syncs are
// serialized; the mirror always receives a complete snapshot.
type MirrorWorker struct {
	source *ledger.Store
	mirror ledger.Backend
	config Config
	logger *log.Logger

	syncMu sync.Mutex
	stats  Stats

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMirrorWorker(source *ledger.Store, mirror ledger.Backend, config Config, logger *log.Logger) *MirrorWorker {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &MirrorWorker{
		source: source,
		mirror: mirror,
		config: config,
		logger: log.OrDefault(logger, log.ComponentWorker),
	}
}

// HandleLedgerChanged is an amqp.Handler. The source snapshot is dropped first
// because the change was committed by another process.
func (w *MirrorWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldMessageID, msg.ID.String(),
		log.FieldOperation, msg.Op,
		log.FieldCount, msg.Count)

	w.source.Invalidate()
	if err := w.Sync(ctx); err != nil {
		return fmt.Errorf("mirror after %s: %w", msg.Op, err)
	}
	return nil
}

// Sync reloads the source and overwrites the mirror with it.
func (w *MirrorWorker) Sync(ctx context.Context) error {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	start := time.Now()
	txs, err := w.source.Load(ctx)
	if err == nil {
		err = w.mirror.WriteAll(ctx, txs)
	}
	if err != nil {
		w.stats.Failures++
		w.stats.LastError = err.Error()
		w.logger.ErrorContext(ctx, "Mirror sync failed",
			log.NewFields().WithError(err).WithOperation(log.OpMirror).ToSlice()...)
		return err
	}

	w.stats.Syncs++
	w.stats.LastSync = time.Now()
	w.stats.LastCount = len(txs)
	w.stats.LastError = ""
	w.logger.InfoContext(ctx, "Mirror sync completed",
		log.FieldOperation, log.OpMirror,
		log.FieldCount, len(txs),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (w *MirrorWorker) Stats() Stats {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()
	return w.stats
}

// Start begins the periodic loop. Returns an error if already running.
func (w *MirrorWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("mirror worker is already running")
	}
	w.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	w.stopCh, w.doneCh = stopCh, doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	w.logger.InfoContext(ctx, "Mirror worker started", "interval", w.config.Interval.String())
	return nil
}

// Stop signals the loop and waits for the sync in flight, if any.
func (w *MirrorWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Mirror worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Mirror worker stop timed out")
		return ctx.Err()
	}
}

func (w *MirrorWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// runLoop owns the channels of one Start call; a later Start never touches them.
func (w *MirrorWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	// Sync immediately on startup
	_ = w.Sync(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.source.Invalidate()
			_ = w.Sync(ctx)
		}
	}
}
