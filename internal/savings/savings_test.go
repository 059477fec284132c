package savings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
)

func ledgerFixture() []core.Transaction {
	return []core.Transaction{
		{ID: 1, Date: core.NewDate(2024, 3, 1), Amount: core.Money{Cents: 200000}, Category: "Revenus", Account: "CIC", Type: core.TypeIncome},
		{ID: 2, Date: core.NewDate(2024, 3, 2), Amount: core.Money{Cents: -30000}, Category: "Épargne", Account: "CIC", Type: core.TypeTransfer},
		{ID: 3, Date: core.NewDate(2024, 3, 2), Amount: core.Money{Cents: 30000}, Category: "Épargne", Account: "Livret A", Type: core.TypeTransfer},
		{ID: 4, Date: core.NewDate(2024, 3, 3), Amount: core.Money{Cents: -2500}, Category: "Divers", Account: "Espèces", Type: core.TypeExpense},
	}
}

func TestManualSnapshotUsesDefaults(t *testing.T) {
	c, err := New(ModeManual, nil)
	require.NoError(t, err)

	snap := c.Compute(ledgerFixture())
	require.Len(t, snap.Accounts, 3)
	assert.Equal(t, "Livret A", snap.Accounts[0].Account)
	assert.Equal(t, int64(100632), snap.Accounts[0].Amount.Cents)
	assert.Equal(t, int64(140632), snap.Savings.Cents)
	assert.Equal(t, int64(170000), snap.Checking.Cents)
	assert.Equal(t, int64(310632), snap.Total.Cents)
	assert.InDelta(t, 71.56, snap.Share(snap.Accounts[0]), 0.01)
}

func TestDerivedSnapshotSumsLedger(t *testing.T) {
	c, err := New(ModeDerived, nil)
	require.NoError(t, err)

	snap := c.Compute(ledgerFixture())
	assert.Equal(t, int64(30000), snap.Accounts[0].Amount.Cents)
	assert.Zero(t, snap.Accounts[1].Amount.Cents)
	assert.Equal(t, int64(30000), snap.Savings.Cents)
	assert.Equal(t, int64(200000), snap.Total.Cents)
}

func TestEmptyLedger(t *testing.T) {
	c, err := New(ModeDerived, nil)
	require.NoError(t, err)
	snap := c.Compute(nil)
	assert.Zero(t, snap.Total.Cents)
	assert.Zero(t, snap.Share(snap.Accounts[0]))
}

func TestInvalidMode(t *testing.T) {
	_, err := New("guess", nil)
	assert.Error(t, err)
}

func TestLoadBalancesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "savings.yaml")
	content := "savings:\n  Livret A: 2500.5\n  \"Épargne Retraite\": \"300\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	balances, err := LoadBalances(path)
	require.NoError(t, err)
	assert.Equal(t, int64(250050), balances["Livret A"].Cents)
	assert.Equal(t, int64(30000), balances["Épargne Retraite"].Cents)
	assert.Equal(t, int64(20000), balances["Épargne Vie (Multi-supports)"].Cents, "default kept")
}

func TestLoadBalancesErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	_, err := LoadBalances(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadBalances(write("empty.yaml", "other: 1\n"))
	assert.ErrorContains(t, err, "missing \"savings\" table")

	_, err = LoadBalances(write("unknown.yaml", "savings:\n  Coffre: 10\n"))
	assert.ErrorIs(t, err, core.ErrUnknownAccount)

	_, err = LoadBalances(write("bad.json", `{"savings": {"Livret A": "beaucoup"}}`))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}
