// Package savings computes the savings snapshot shown on the overview page.
package savings

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"budget/internal/core"
)

type Mode string

const (
	// ModeManual reports configured balances for the savings accounts.
	ModeManual Mode = "manual"
	// ModeDerived sums the ledger entries booked on each savings account.
	ModeDerived Mode = "derived"
)

func (m Mode) IsValid() bool { return m == ModeManual || m == ModeDerived }

// Balance is one account in the snapshot.
type Balance struct {
	Account string
	Amount  core.Money
}

// Snapshot is the allocation across savings accounts plus the checking account.
type Snapshot struct {
	Mode     Mode
	Accounts []Balance
	Savings  core.Money
	Checking core.Money
	Total    core.Money
}

// Share returns the part of the savings held by b, in percent.
func (s Snapshot) Share(b Balance) float64 {
	if s.Savings.Cents == 0 {
		return 0
	}
	return float64(b.Amount.Cents) * 100 / float64(s.Savings.Cents)
}

// DefaultBalances are the manual balances used when no file overrides them.
func DefaultBalances() map[string]core.Money {
	return map[string]core.Money{
		"Livret A":                     {Cents: 100632},
		"Épargne Retraite":             {Cents: 20000},
		"Épargne Vie (Multi-supports)": {Cents: 20000},
	}
}

type Calculator struct {
	mode   Mode
	manual map[string]core.Money
}

// New returns a calculator. manual may be nil, in which case the defaults apply.
func New(mode Mode, manual map[string]core.Money) (*Calculator, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("invalid savings mode %q", mode)
	}
	if manual == nil {
		manual = DefaultBalances()
	}
	return &Calculator{mode: mode, manual: manual}, nil
}

func (c *Calculator) Mode() Mode { return c.mode }

// Compute builds the snapshot. The checking balance is always derived from txs.
func (c *Calculator) Compute(txs []core.Transaction) Snapshot {
	derived := make(map[string]core.Money)
	var checking core.Money
	for _, tx := range txs {
		if tx.Account == core.CheckingAccount {
			checking = checking.Add(tx.Amount)
		}
		derived[tx.Account] = derived[tx.Account].Add(tx.Amount)
	}

	snap := Snapshot{Mode: c.mode, Checking: checking}
	for _, account := range core.SavingsAccounts() {
		amount := c.manual[account]
		if c.mode == ModeDerived {
			amount = derived[account]
		}
		snap.Accounts = append(snap.Accounts, Balance{Account: account, Amount: amount})
		snap.Savings = snap.Savings.Add(amount)
	}
	snap.Total = snap.Savings.Add(checking)
	return snap
}

// LoadBalances reads manual balances from a YAML, TOML or JSON file holding a
// "savings" table keyed by account name. Accounts missing from the file keep
// their default balance.
func LoadBalances(path string) (map[string]core.Money, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read savings file: %w", err)
	}

	raw := v.GetStringMap("savings")
	if len(raw) == 0 {
		return nil, fmt.Errorf("savings file %s: missing \"savings\" table", path)
	}

	balances := DefaultBalances()
	for key, value := range raw {
		// Keys come back lowercased.
		account, ok := savingsAccount(key)
		if !ok {
			return nil, fmt.Errorf("savings file %s: %w: %q", path, core.ErrUnknownAccount, key)
		}
		amount, err := core.ParseAmount(amountString(value))
		if err != nil {
			return nil, fmt.Errorf("savings file %s: account %q: %w", path, account, err)
		}
		balances[account] = amount
	}
	return balances, nil
}

func savingsAccount(key string) (string, bool) {
	for _, a := range core.SavingsAccounts() {
		if strings.EqualFold(a, strings.TrimSpace(key)) {
			return a, true
		}
	}
	return "", false
}

func amountString(v any) string {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x).String()
	case float32:
		return decimal.NewFromFloat32(x).String()
	case int:
		return decimal.NewFromInt(int64(x)).String()
	case int64:
		return decimal.NewFromInt(x).String()
	default:
		return fmt.Sprint(x)
	}
}
