package core

// CategoryAmount is the outflow magnitude booked against a category.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// DailyNet is the signed sum of one calendar day.
type DailyNet struct {
	Date Date  `json:"date"`
	Net  Money `json:"net"`
}

// AggregateResult summarises a filtered view of the ledger.
// TotalExpense is a non-negative magnitude; storage keeps expenses negative.
type AggregateResult struct {
	TotalIncome  Money            `json:"total_income"`
	TotalExpense Money            `json:"total_expense"`
	Net          Money            `json:"net"`
	ByCategory   []CategoryAmount `json:"by_category"`
	DailyNet     []DailyNet       `json:"daily_net"`
}

// MonthOverview holds the KPIs of one calendar month.
type MonthOverview struct {
	Month        YearMonth
	Income       Money
	Expenses     Money
	Savings      Money
	ByCategory   []CategoryAmount
	Transactions []Transaction
}

// SavingsRate is the share of income kept, in percent. Zero without income.
func (o MonthOverview) SavingsRate() float64 {
	if o.Income.Cents <= 0 {
		return 0
	}
	return float64(o.Savings.Cents) * 100 / float64(o.Income.Cents)
}
