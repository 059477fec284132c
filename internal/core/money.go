package core

import (
	"encoding/json"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency of the ledger. There is no conversion.
const Currency = gomoney.EUR

// maxAbsCents bounds a single amount to ±10 billion euros.
const maxAbsCents = int64(1_000_000_000_000)

// Money is an amount in euro cents.
type Money struct {
	Cents int64
}

// ParseAmount parses a decimal with '.' as separator and at most two fraction digits.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.Round(2).Equal(d) {
		return Money{}, fmt.Errorf("%w: %q has more than two decimals", ErrInvalidAmount, s)
	}
	cents := d.Shift(2)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxAbsCents)) {
		return Money{}, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseUserAmount also accepts ',' as the decimal separator.
func ParseUserAmount(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return ParseAmount(s)
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the canonical storage form, e.g. "-12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Display renders the amount with currency symbol and grouping.
func (m Money) Display() string {
	return gomoney.New(m.Cents, Currency).Display()
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Neg() Money { return Money{Cents: -m.Cents} }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }
func (m Money) IsPositive() bool { return m.Cents > 0 }

// Euros returns the amount as a float for chart payloads only.
func (m Money) Euros() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	parsed, err := ParseAmount(n.String())
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
