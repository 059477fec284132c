package ledger

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/log"
)

type fakeBackend struct {
	mu       sync.Mutex
	txs      []core.Transaction
	exists   bool
	reads    int
	writes   int
	readErr  error
	writeErr error
}

func (f *fakeBackend) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	if !f.exists {
		return nil, nil
	}
	return slices.Clone(f.txs), nil
}

func (f *fakeBackend) WriteAll(ctx context.Context, txs []core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes++
	f.exists = true
	f.txs = slices.Clone(txs)
	return nil
}

func (f *fakeBackend) persisted() []core.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.txs)
}

func newTestStore(b Backend) *Store {
	return NewStore(b, nil, log.Discard())
}

func candidate(date, desc, amount, category, account, typ string) core.Candidate {
	return core.Candidate{Date: date, Description: desc, Amount: amount, Category: category, Account: account, Type: typ}
}

func TestLoadEmptyLedger(t *testing.T) {
	s := newTestStore(&fakeBackend{})

	txs, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txs)

	agg, err := s.Aggregate(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Zero(t, agg.TotalIncome.Cents)
	assert.Zero(t, agg.TotalExpense.Cents)
	assert.Zero(t, agg.Net.Cents)
	assert.Empty(t, agg.ByCategory)
	assert.Empty(t, agg.DailyNet)
}

func TestSalaryThenGroceriesScenario(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	s := newTestStore(b)

	res, err := s.Append(ctx, candidate("2024-03-01", "Salaire", "2000", "Revenus", "CIC", core.TypeIncome))
	require.NoError(t, err)
	assert.False(t, res.Normalized)

	txs, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(200000), txs[0].Amount.Cents)

	res, err = s.Append(ctx, candidate("2024-03-02", "", "50", "Alimentaire", "CIC", core.TypeExpense))
	require.NoError(t, err)
	assert.True(t, res.Normalized)
	assert.Equal(t, int64(-5000), res.Transaction.Amount.Cents)

	agg, err := s.Aggregate(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(200000), agg.TotalIncome.Cents)
	assert.Equal(t, int64(5000), agg.TotalExpense.Cents)
	assert.Equal(t, int64(195000), agg.Net.Cents)
	require.Len(t, agg.DailyNet, 2)
	assert.Equal(t, int64(200000), agg.DailyNet[0].Net.Cents)
	assert.Equal(t, int64(-5000), agg.DailyNet[1].Net.Cents)

	persisted := b.persisted()
	require.Len(t, persisted, 2)
	assert.Equal(t, "2024-03-02", persisted[0].Date.String(), "persisted newest first")
}

func TestAppendSignNormalization(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(&fakeBackend{})

	cases := []struct {
		typ    string
		amount string
		want   int64
		norm   bool
	}{
		{core.TypeExpense, "12.30", -1230, true},
		{core.TypeExpense, "-12.30", -1230, false},
		{core.TypeIncome, "-99.99", 9999, true},
		{core.TypeIncome, "99.99", 9999, false},
		{core.TypeTransfer, "-300", -30000, false},
	}
	for _, tc := range cases {
		res, err := s.Append(ctx, candidate("2024-01-10", "x", tc.amount, "Divers", "CIC", tc.typ))
		require.NoError(t, err)
		assert.Equal(t, tc.want, res.Transaction.Amount.Cents, "%s %s", tc.typ, tc.amount)
		assert.Equal(t, tc.norm, res.Normalized, "%s %s", tc.typ, tc.amount)
	}
}

func TestAppendRejectsUnknownCategoryWithoutWriting(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	s := newTestStore(b)
	_, err := s.Append(ctx, candidate("2024-03-01", "Salaire", "2000", "Revenus", "CIC", core.TypeIncome))
	require.NoError(t, err)
	writes := b.writes

	_, err = s.Append(ctx, candidate("2024-03-02", "x", "10", "NotARealCategory", "CIC", core.TypeExpense))
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("category"))
	assert.Equal(t, writes, b.writes)

	txs, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestRoundTripAndIdempotentLoad(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	s := newTestStore(b)

	res, err := s.Append(ctx, candidate("2024-02-14", "Fleurs", "25.50", "Divers", "Espèces", core.TypeExpense))
	require.NoError(t, err)

	first, err := s.Load(ctx)
	require.NoError(t, err)
	second, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.Len(t, first, 1)
	assert.Equal(t, res.Transaction, first[0])

	// A fresh store over the same backend sees the same collection.
	reopened, err := newTestStore(b).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, reopened)
}

func TestLoadReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(&fakeBackend{})
	_, err := s.Append(ctx, candidate("2024-02-14", "a", "1", "Divers", "CIC", core.TypeExpense))
	require.NoError(t, err)

	txs, err := s.Load(ctx)
	require.NoError(t, err)
	txs[0].Amount = core.Money{Cents: 999}

	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), again[0].Amount.Cents)
}

func TestDeleteByIdentifierUnderReorderedView(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{exists: true, txs: []core.Transaction{
		{ID: 1, Date: core.NewDate(2024, 1, 2), Description: "A", Amount: core.Money{Cents: -100}, Category: "Divers", Account: "CIC", Type: core.TypeExpense},
		{ID: 2, Date: core.NewDate(2024, 1, 1), Description: "B", Amount: core.Money{Cents: -200}, Category: "Divers", Account: "CIC", Type: core.TypeExpense},
		{ID: 3, Date: core.NewDate(2024, 1, 3), Description: "C", Amount: core.Money{Cents: -300}, Category: "Divers", Account: "CIC", Type: core.TypeExpense},
	}}
	s := newTestStore(b)

	view, err := s.Load(ctx)
	require.NoError(t, err)
	core.SortByDateDesc(view)
	require.Equal(t, "C", view[0].Description)

	n, err := s.Delete(ctx, []int64{view[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := s.Load(ctx)
	require.NoError(t, err)
	var names []string
	for _, tx := range left {
		names = append(names, tx.Description)
	}
	assert.ElementsMatch(t, []string{"A", "B"}, names)
}

func TestDeleteEmptyAndUnknownSelectors(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	s := newTestStore(b)
	_, err := s.Append(ctx, candidate("2024-02-14", "a", "1", "Divers", "CIC", core.TypeExpense))
	require.NoError(t, err)
	writes := b.writes

	n, err := s.Delete(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Delete(ctx, []int64{42})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, writes, b.writes)
}

func TestRemoveReportsPresentIdentifiers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(&fakeBackend{})
	a, err := s.Append(ctx, candidate("2024-02-14", "a", "1", "Divers", "CIC", core.TypeExpense))
	require.NoError(t, err)
	_, err = s.Append(ctx, candidate("2024-02-15", "b", "1", "Divers", "CIC", core.TypeExpense))
	require.NoError(t, err)

	removed, err := s.Remove(ctx, []int64{a.Transaction.ID, 99})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.Transaction.ID}, removed)

	txs, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "b", txs[0].Description)
}

func TestIdentifiersAreNotReusedAfterDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(&fakeBackend{})
	first, err := s.Append(ctx, candidate("2024-02-14", "a", "1", "Divers", "CIC", core.TypeExpense))
	require.NoError(t, err)
	second, err := s.Append(ctx, candidate("2024-02-15", "b", "1", "Divers", "CIC", core.TypeExpense))
	require.NoError(t, err)
	assert.Greater(t, second.Transaction.ID, first.Transaction.ID)

	_, err = s.Delete(ctx, []int64{first.Transaction.ID})
	require.NoError(t, err)
	third, err := s.Append(ctx, candidate("2024-02-16", "c", "1", "Divers", "CIC", core.TypeExpense))
	require.NoError(t, err)
	assert.Greater(t, third.Transaction.ID, second.Transaction.ID)
}

func TestFailedPersistLeavesCollectionUnchanged(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	s := newTestStore(b)
	_, err := s.Append(ctx, candidate("2024-02-14", "a", "1", "Divers", "CIC", core.TypeExpense))
	require.NoError(t, err)

	b.writeErr = errors.New("disk full")
	_, err = s.Append(ctx, candidate("2024-02-15", "b", "1", "Divers", "CIC", core.TypeExpense))
	var ue *core.StorageUnavailableError
	require.ErrorAs(t, err, &ue)

	txs, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	n, err := s.Delete(ctx, []int64{txs[0].ID})
	require.ErrorAs(t, err, &ue)
	assert.Zero(t, n)
	txs, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestLoadPropagatesCorruption(t *testing.T) {
	corrupt := &core.StorageCorruptError{Source: "transactions.csv", Line: 3, Field: "Montant", Err: core.ErrInvalidAmount}
	s := newTestStore(&fakeBackend{readErr: corrupt})

	_, err := s.Load(context.Background())
	var ce *core.StorageCorruptError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.Line)
	assert.False(t, core.IsUnavailable(err))
}

func TestLoadRejectsDuplicateIdentifiers(t *testing.T) {
	s := newTestStore(&fakeBackend{exists: true, txs: []core.Transaction{
		{ID: 1, Date: core.NewDate(2024, 1, 1)},
		{ID: 1, Date: core.NewDate(2024, 1, 2)},
	}})
	_, err := s.Load(context.Background())
	assert.True(t, core.IsCorrupt(err))
}

func TestReadsAreCachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	s := newTestStore(b)

	for range 3 {
		_, err := s.Load(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, b.reads)

	s.Invalidate()
	_, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, b.reads)
}

func TestMonthOverviewAndMonths(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(&fakeBackend{})
	for _, c := range []core.Candidate{
		candidate("2024-02-28", "Loyer", "700", "Logement & Charges", "CIC", core.TypeExpense),
		candidate("2024-03-01", "Salaire", "2000", "Revenus", "CIC", core.TypeIncome),
		candidate("2024-03-02", "Courses", "50", "Alimentaire", "CIC", core.TypeExpense),
		candidate("2024-03-05", "Loyer", "700", "Logement & Charges", "CIC", core.TypeExpense),
		candidate("2024-03-06", "Vers Livret A", "-300", "Épargne", "CIC", core.TypeTransfer),
		candidate("2024-03-06", "Depuis CIC", "300", "Épargne", "Livret A", core.TypeTransfer),
	} {
		_, err := s.Append(ctx, c)
		require.NoError(t, err)
	}

	months, err := s.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.YearMonth{{Year: 2024, Month: 3}, {Year: 2024, Month: 2}}, months)

	ov, err := s.MonthOverview(ctx, core.YearMonth{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(200000), ov.Income.Cents)
	assert.Equal(t, int64(75000), ov.Expenses.Cents)
	assert.Equal(t, int64(125000), ov.Savings.Cents)
	require.Len(t, ov.ByCategory, 2)
	assert.Equal(t, "Logement & Charges", ov.ByCategory[0].Category)
	assert.Len(t, ov.Transactions, 5)
	assert.Equal(t, "2024-03-06", ov.Transactions[0].Date.String())

	bal, err := s.AccountBalance(ctx, core.CheckingAccount)
	require.NoError(t, err)
	assert.Equal(t, int64(200000-70000-5000-70000-30000), bal.Cents)

	minDate, maxDate, ok, err := s.Bounds(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-02-28", minDate.String())
	assert.Equal(t, "2024-03-06", maxDate.String())
}
