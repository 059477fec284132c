package core

import (
	"slices"
	"strings"
)

// MaxDescriptionLength bounds the free-form label, in characters.
const MaxDescriptionLength = 200

// Transaction is one committed ledger entry. It is never edited in place.
type Transaction struct {
	ID          int64  `json:"id"`
	Date        Date   `json:"date"`
	Description string `json:"description"`
	Amount      Money  `json:"amount"`
	Category    string `json:"category"`
	Account     string `json:"account"`
	Type        string `json:"type"`
}

// IsTransfer reports movements between own accounts.
func (t Transaction) IsTransfer() bool { return t.Type == TypeTransfer }

// Candidate holds raw entry fields as submitted by the user.
type Candidate struct {
	Date        string `form:"date" validate:"required,datetime=2006-01-02"`
	Description string `form:"description" validate:"max=200"`
	Amount      string `form:"amount" validate:"required"`
	Category    string `form:"category" validate:"required,category"`
	Account     string `form:"account" validate:"required,account"`
	Type        string `form:"type" validate:"required,txtype"`
}

func (c Candidate) trimmed() Candidate {
	c.Date = strings.TrimSpace(c.Date)
	c.Description = strings.TrimSpace(c.Description)
	c.Amount = strings.TrimSpace(c.Amount)
	c.Category = strings.TrimSpace(c.Category)
	c.Account = strings.TrimSpace(c.Account)
	c.Type = strings.TrimSpace(c.Type)
	return c
}

// Build validates the candidate and returns the transaction to store, without an ID.
// normalized reports that the amount sign was coerced to match the type.
func (c Candidate) Build() (tx Transaction, normalized bool, err error) {
	c = c.trimmed()

	ve, err := validateStruct(c)
	if err != nil {
		return Transaction{}, false, err
	}

	var date Date
	if !ve.HasField("date") {
		if date, err = ParseDate(c.Date); err != nil {
			ve.add("date", c.Date, ErrInvalidDate)
		}
	}

	var amount Money
	if !ve.HasField("amount") {
		if amount, err = ParseUserAmount(c.Amount); err != nil {
			ve.add("amount", c.Amount, ErrInvalidAmount)
		}
	}

	if len(ve.Fields) > 0 {
		return Transaction{}, false, ve
	}

	amount, normalized = NormalizeSign(c.Type, amount)
	return Transaction{
		Date:        date,
		Description: c.Description,
		Amount:      amount,
		Category:    c.Category,
		Account:     c.Account,
		Type:        c.Type,
	}, normalized, nil
}

// NormalizeSign makes expenses non-positive and income non-negative.
// Transfers keep their sign.
func NormalizeSign(txType string, amount Money) (Money, bool) {
	switch {
	case txType == TypeExpense && amount.IsPositive():
		return amount.Neg(), true
	case txType == TypeIncome && amount.IsNegative():
		return amount.Neg(), true
	}
	return amount, false
}

// SortByDateDesc orders newest first, keeping the relative order of same-day entries.
func SortByDateDesc(txs []Transaction) {
	slices.SortStableFunc(txs, func(a, b Transaction) int {
		return b.Date.Compare(a.Date)
	})
}
