package ledger

import (
	"slices"

	"budget/internal/core"
)

// MaxRangeDays bounds the daily series of an aggregate.
const MaxRangeDays = 366 * 20

// Filter selects the transactions an aggregate covers.
// Empty sets match everything; a zero From or To falls back to the data bounds.
type Filter struct {
	From            core.Date
	To              core.Date
	Categories      []string
	Accounts        []string
	Types           []string
	SortByMagnitude bool
}

// Validate rejects inverted ranges and values outside the enumerations.
func (f Filter) Validate() error {
	ve := &core.ValidationError{}
	if !f.From.IsZero() && !f.To.IsZero() {
		if f.From.After(f.To.Time) {
			ve.Fields = append(ve.Fields, core.FieldError{Field: "to", Value: f.To.String(), Err: core.ErrInvalidRange})
		} else if days(f.From, f.To) > MaxRangeDays {
			ve.Fields = append(ve.Fields, core.FieldError{Field: "to", Value: f.To.String(), Err: core.ErrInvalidRange})
		}
	}
	for _, c := range f.Categories {
		if !core.IsCategory(c) {
			ve.Fields = append(ve.Fields, core.FieldError{Field: "category", Value: c, Err: core.ErrUnknownCategory})
		}
	}
	for _, a := range f.Accounts {
		if !core.IsAccount(a) {
			ve.Fields = append(ve.Fields, core.FieldError{Field: "account", Value: a, Err: core.ErrUnknownAccount})
		}
	}
	for _, t := range f.Types {
		if !core.IsType(t) {
			ve.Fields = append(ve.Fields, core.FieldError{Field: "type", Value: t, Err: core.ErrUnknownType})
		}
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

// Matches reports whether tx passes every dimension of the filter.
func (f Filter) Matches(tx core.Transaction) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To.Time) {
		return false
	}
	return matchSet(f.Categories, tx.Category) &&
		matchSet(f.Accounts, tx.Account) &&
		matchSet(f.Types, tx.Type)
}

func matchSet(set []string, v string) bool {
	return len(set) == 0 || slices.Contains(set, v)
}

// Aggregate summarises txs under f. It never mutates txs.
//
// Positive amounts count as income and negative amounts as expense, so
// TotalIncome - TotalExpense always equals Net. ByCategory sums expense
// magnitudes in first-seen order unless f.SortByMagnitude is set. DailyNet
// covers every day from the resolved start to end, zero days included.
func Aggregate(txs []core.Transaction, f Filter) (core.AggregateResult, error) {
	if err := f.Validate(); err != nil {
		return core.AggregateResult{}, err
	}

	from, to, hasRange := resolveRange(txs, f)
	if hasRange {
		f.From, f.To = from, to
		if days(from, to) > MaxRangeDays {
			return core.AggregateResult{}, core.NewValidationError("from", from.String(), core.ErrInvalidRange)
		}
	}

	res := core.AggregateResult{
		ByCategory: []core.CategoryAmount{},
		DailyNet:   []core.DailyNet{},
	}
	catIndex := make(map[string]int)
	perDay := make(map[int64]int64)

	for _, tx := range txs {
		if !f.Matches(tx) {
			continue
		}
		res.Net = res.Net.Add(tx.Amount)
		perDay[tx.Date.Unix()] += tx.Amount.Cents

		if tx.Amount.IsPositive() {
			res.TotalIncome = res.TotalIncome.Add(tx.Amount)
			continue
		}
		if !tx.Amount.IsNegative() {
			continue
		}
		res.TotalExpense = res.TotalExpense.Add(tx.Amount.Abs())
		i, seen := catIndex[tx.Category]
		if !seen {
			i = len(res.ByCategory)
			catIndex[tx.Category] = i
			res.ByCategory = append(res.ByCategory, core.CategoryAmount{Category: tx.Category})
		}
		res.ByCategory[i].Amount = res.ByCategory[i].Amount.Add(tx.Amount.Abs())
	}

	if f.SortByMagnitude {
		SortByMagnitude(res.ByCategory)
	}

	if hasRange {
		for d := from; !d.After(to.Time); d = d.AddDays(1) {
			res.DailyNet = append(res.DailyNet, core.DailyNet{Date: d, Net: core.Money{Cents: perDay[d.Unix()]}})
		}
	}
	return res, nil
}

// SortByMagnitude orders breakdown entries largest first, ties keeping their order.
func SortByMagnitude(items []core.CategoryAmount) {
	slices.SortStableFunc(items, func(a, b core.CategoryAmount) int {
		switch {
		case a.Amount.Cents > b.Amount.Cents:
			return -1
		case a.Amount.Cents < b.Amount.Cents:
			return 1
		}
		return 0
	})
}

// Bounds returns the earliest and latest dates in txs.
func Bounds(txs []core.Transaction) (minDate, maxDate core.Date, ok bool) {
	for i, tx := range txs {
		if i == 0 || tx.Date.Before(minDate.Time) {
			minDate = tx.Date
		}
		if i == 0 || tx.Date.After(maxDate.Time) {
			maxDate = tx.Date
		}
	}
	return minDate, maxDate, len(txs) > 0
}

func resolveRange(txs []core.Transaction, f Filter) (from, to core.Date, ok bool) {
	from, to = f.From, f.To
	if from.IsZero() || to.IsZero() {
		minDate, maxDate, found := Bounds(txs)
		if from.IsZero() {
			from = minDate
		}
		if to.IsZero() {
			to = maxDate
		}
		if !found {
			// Only one side was given and there is no data to complete it.
			if from.IsZero() {
				from = to
			}
			if to.IsZero() {
				to = from
			}
		}
	}
	if from.IsZero() || to.IsZero() || from.After(to.Time) {
		return core.Date{}, core.Date{}, false
	}
	return from, to, true
}

func days(from, to core.Date) int {
	return int(to.Sub(from.Time).Hours()/24) + 1
}

// Months returns the distinct calendar months in txs, newest first.
func Months(txs []core.Transaction) []core.YearMonth {
	seen := make(map[core.YearMonth]struct{})
	months := make([]core.YearMonth, 0)
	for _, tx := range txs {
		ym := tx.Date.YearMonth()
		if _, ok := seen[ym]; ok {
			continue
		}
		seen[ym] = struct{}{}
		months = append(months, ym)
	}
	slices.SortFunc(months, func(a, b core.YearMonth) int { return b.Compare(a) })
	return months
}

// Overview computes the KPIs of one month over Dépense and Revenu entries.
func Overview(txs []core.Transaction, ym core.YearMonth) core.MonthOverview {
	first := core.NewDate(ym.Year, ym.Month, 1)
	last := first.Time.AddDate(0, 1, -1)

	agg, _ := Aggregate(txs, Filter{
		From:            first,
		To:              core.DateOf(last),
		Types:           []string{core.TypeExpense, core.TypeIncome},
		SortByMagnitude: true,
	})

	var inMonth []core.Transaction
	for _, tx := range txs {
		if ym.Contains(tx.Date) {
			inMonth = append(inMonth, tx)
		}
	}
	core.SortByDateDesc(inMonth)

	return core.MonthOverview{
		Month:        ym,
		Income:       agg.TotalIncome,
		Expenses:     agg.TotalExpense,
		Savings:      agg.TotalIncome.Add(agg.TotalExpense.Neg()),
		ByCategory:   agg.ByCategory,
		Transactions: inMonth,
	}
}

// Balance sums the amounts booked on account.
func Balance(txs []core.Transaction, account string) core.Money {
	var total core.Money
	for _, tx := range txs {
		if tx.Account == account {
			total = total.Add(tx.Amount)
		}
	}
	return total
}
