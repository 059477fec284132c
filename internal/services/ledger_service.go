package services

import (
	"context"
	"errors"
	"fmt"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/savings"
)

// Publisher announces committed ledger changes.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// Dashboard is everything the overview page shows for one month.
type Dashboard struct {
	Months   []core.YearMonth
	Month    core.YearMonth
	Overview core.MonthOverview
	Savings  savings.Snapshot
	Empty    bool
}

// LedgerService is what the presentation layer talks to. It forwards to the
// store and announces committed mutations; a failed announcement never fails
// the write that caused it.
type LedgerService struct {
	store     *ledger.Store
	publisher Publisher
	savings   *savings.Calculator
	logger    *log.Logger
	closers   []func() error
}

// NewLedgerService wires the service. publisher may be nil.
func NewLedgerService(store *ledger.Store, publisher Publisher, calc *savings.Calculator, logger *log.Logger) *LedgerService {
	if calc == nil {
		calc, _ = savings.New(savings.ModeManual, nil)
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		savings:   calc,
		logger:    log.OrDefault(logger, log.ComponentLedger),
	}
}

// OnClose registers a cleanup to run on Close, in registration order.
func (s *LedgerService) OnClose(fn func() error) {
	if fn != nil {
		s.closers = append(s.closers, fn)
	}
}

func (s *LedgerService) LoadLedger(ctx context.Context) ([]core.Transaction, error) {
	return s.store.Load(ctx)
}

func (s *LedgerService) SubmitTransaction(ctx context.Context, c core.Candidate) (ledger.AppendResult, error) {
	res, err := s.store.Append(ctx, c)
	if err != nil {
		return ledger.AppendResult{}, err
	}
	s.announce(ctx, amqp.ChangeAppend, []int64{res.Transaction.ID})
	return res, nil
}

func (s *LedgerService) DeleteTransactions(ctx context.Context, ids []int64) (int, error) {
	removed, err := s.store.Remove(ctx, ids)
	if err != nil || len(removed) == 0 {
		return 0, err
	}
	s.announce(ctx, amqp.ChangeDelete, removed)
	return len(removed), nil
}

func (s *LedgerService) QueryAggregate(ctx context.Context, f ledger.Filter) (core.AggregateResult, error) {
	return s.store.Aggregate(ctx, f)
}

// Bounds returns the ledger date span; ok is false for an empty ledger.
func (s *LedgerService) Bounds(ctx context.Context) (core.Date, core.Date, bool, error) {
	return s.store.Bounds(ctx)
}

// Dashboard builds the overview for month, or for the newest month with data
// when month is zero or absent from the ledger.
func (s *LedgerService) Dashboard(ctx context.Context, month core.YearMonth) (Dashboard, error) {
	txs, err := s.store.Load(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{
		Months:  ledger.Months(txs),
		Savings: s.savings.Compute(txs),
	}
	if len(d.Months) == 0 {
		d.Empty = true
		return d, nil
	}

	d.Month = d.Months[0]
	for _, m := range d.Months {
		if m == month {
			d.Month = m
			break
		}
	}
	d.Overview = ledger.Overview(txs, d.Month)
	return d, nil
}

// Resync announces a full refresh, used when the ledger was edited out of band.
func (s *LedgerService) Resync(ctx context.Context) {
	s.store.Invalidate()
	s.announce(ctx, amqp.ChangeResync, nil)
}

// Ping checks the backend for readiness probes.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *LedgerService) Store() *ledger.Store { return s.store }

func (s *LedgerService) announce(ctx context.Context, op string, ids []int64) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping ledger change", log.FieldOperation, op)
		return
	}
	msg := amqp.NewLedgerChangedMessage(op, ids)
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			log.NewFields().
				WithError(err).
				WithOperation(log.OpPublish).
				WithCount(len(ids)).
				ToSlice()...)
	}
}

// Close runs the registered cleanups and joins their errors.
func (s *LedgerService) Close() error {
	var errs []error
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
