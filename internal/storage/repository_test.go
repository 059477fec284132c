package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "budget.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteEmptyDatabase(t *testing.T) {
	repo := newRepo(t)
	txs, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.NoError(t, repo.Ping(context.Background()))
	assert.Equal(t, uint(1), repo.SchemaVersion())
}

func TestSQLiteWriteAllReplacesContents(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	first := []core.Transaction{
		{ID: 1, Date: core.NewDate(2024, 3, 1), Description: "Salaire", Amount: core.Money{Cents: 200000}, Category: "Revenus", Account: "CIC", Type: core.TypeIncome},
		{ID: 2, Date: core.NewDate(2024, 3, 2), Amount: core.Money{Cents: -5000}, Category: "Alimentaire", Account: "CIC", Type: core.TypeExpense},
	}
	require.NoError(t, repo.WriteAll(ctx, first))

	got, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first[1], got[0], "newest first")
	assert.Equal(t, first[0], got[1])

	require.NoError(t, repo.WriteAll(ctx, first[:1]))
	got, err = repo.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, first[:1], got)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "budget.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	store := ledger.NewStore(repo, nil, log.Discard())
	_, err = store.Append(ctx, core.Candidate{Date: "2024-05-01", Amount: "12,50", Category: "Divers", Account: "Espèces", Type: core.TypeExpense})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	txs, err := reopened.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(-1250), txs[0].Amount.Cents)
	assert.Equal(t, int64(1), txs[0].ID)
}

func TestSQLiteDuplicateIDRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	keep := []core.Transaction{{ID: 1, Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: -1}, Category: "Divers", Account: "CIC", Type: core.TypeExpense}}
	require.NoError(t, repo.WriteAll(ctx, keep))

	dup := []core.Transaction{keep[0], keep[0]}
	err := repo.WriteAll(ctx, dup)
	assert.True(t, core.IsUnavailable(err))

	got, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, keep, got)
}
