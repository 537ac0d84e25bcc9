// Package model defines the core domain models used throughout the application.
package model

import "time"

// TransactionType indicates whether a transaction is money in or money out.
type TransactionType string

const (
	// TypeExpense represents money leaving the account.
	TypeExpense TransactionType = "expense"
	// TypeIncome represents money entering the account.
	TypeIncome TransactionType = "income"
)

// DateLayout is the calendar date format used for all transaction dates.
const DateLayout = "2006-01-02"

// Transaction represents a single financial transaction.
//
// Amount carries the sign convention: negative for expenses, positive for
// income. The classifier and the validator both deal in positive magnitudes;
// the sign is applied exactly once, at commit time.
type Transaction struct {
	CreatedAt time.Time
	Type      TransactionType
	Category  string
	Date      string // YYYY-MM-DD
	Note      string
	ID        int64
	Amount    float64
}

// Categories is the fixed vocabulary the assistant classifies into.
// It is advisory for manual entry (users may type anything) but the
// voice/chat add path is constrained to it.
var Categories = []string{
	"Food",
	"Rent",
	"Salary",
	"Freelance",
	"Transport",
	"Entertainment",
	"Shopping",
	"Utilities",
	"Other",
}

// KnownCategory reports whether name is part of the fixed vocabulary.
func KnownCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// SignedAmount returns magnitude with the sign convention applied for typ.
func SignedAmount(typ TransactionType, magnitude float64) float64 {
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if typ == TypeExpense {
		return -magnitude
	}
	return magnitude
}
