package core

import "slices"

// Transaction types.
const (
	TypeExpense  = "Dépense"
	TypeIncome   = "Revenu"
	TypeTransfer = "Virement"
)

// CheckingAccount is the account whose balance is always derived from the ledger.
const CheckingAccount = "CIC"

var categories = []string{
	"Alimentaire",
	"Assurances",
	"Culture & Sport",
	"Divers",
	"Épargne",
	"Frais Bancaires",
	"Impôts & Amendes",
	"Logement & Charges",
	"Revenus",
	"Santé & Bien-être",
	"Vêtements",
	"Voiture & Vélo",
	"Voyages",
	"Virement",
}

var accounts = []string{
	CheckingAccount,
	"Caisse d'Épargne",
	"Livret A",
	"Épargne Retraite",
	"Épargne Vie (Multi-supports)",
	"Portefeuille",
	"Espèces",
}

var savingsAccounts = []string{
	"Livret A",
	"Épargne Retraite",
	"Épargne Vie (Multi-supports)",
}

var types = []string{TypeExpense, TypeIncome, TypeTransfer}

// Categories returns the allowed categories in display order.
func Categories() []string { return slices.Clone(categories) }

// Accounts returns the allowed accounts in display order.
func Accounts() []string { return slices.Clone(accounts) }

// SavingsAccounts returns the accounts shown in the savings snapshot.
func SavingsAccounts() []string { return slices.Clone(savingsAccounts) }

// Types returns the allowed transaction types.
func Types() []string { return slices.Clone(types) }

func IsCategory(s string) bool { return slices.Contains(categories, s) }

func IsAccount(s string) bool { return slices.Contains(accounts, s) }

func IsType(s string) bool { return slices.Contains(types, s) }
