package model

// Intent is the classified purpose of an utterance.
type Intent string

const (
	// IntentAdd means the user wants to record a transaction.
	IntentAdd Intent = "add"
	// IntentQuery means the user asked a question about their history.
	IntentQuery Intent = "query"
	// IntentForecast means the user asked about future spending.
	IntentForecast Intent = "forecast"
)

// ParseResult is the structured outcome of classifying one utterance.
// Exactly one intent tag is set; the Add fields are only meaningful when
// Intent == IntentAdd. Response is always present, in the same natural
// language as the utterance that produced it.
type ParseResult struct {
	Intent   Intent
	Type     TransactionType
	Category string
	Note     string
	Date     string // YYYY-MM-DD
	Response string
	Amount   float64 // positive magnitude; sign applied at commit
}

// IsAdd reports whether the result carries a transaction to persist.
func (r ParseResult) IsAdd() bool { return r.Intent == IntentAdd }

// Transaction builds the unsigned transaction candidate from an Add result.
func (r ParseResult) Transaction() Transaction {
	return Transaction{
		Type:     r.Type,
		Amount:   r.Amount,
		Category: r.Category,
		Date:     r.Date,
		Note:     r.Note,
	}
}

// HistoryEntry is the reduced view of a transaction supplied to the
// classifier as context. Only these five fields are ever serialized into
// the prompt to keep payloads small.
type HistoryEntry struct {
	Date     string          `json:"date"`
	Category string          `json:"category"`
	Note     string          `json:"note"`
	Type     TransactionType `json:"type"`
	Amount   float64         `json:"amount"`
}

// HistoryWindowSize bounds how many recent transactions are given to the
// classifier as context.
const HistoryWindowSize = 50

// NewHistoryWindow reduces transactions (most recent first) to the bounded
// window of history entries. The input slice is never mutated.
func NewHistoryWindow(transactions []Transaction) []HistoryEntry {
	n := len(transactions)
	if n > HistoryWindowSize {
		n = HistoryWindowSize
	}
	window := make([]HistoryEntry, 0, n)
	for _, t := range transactions[:n] {
		window = append(window, HistoryEntry{
			Date:     t.Date,
			Amount:   t.Amount,
			Category: t.Category,
			Note:     t.Note,
			Type:     t.Type,
		})
	}
	return window
}

// ForecastPoint is one day of a projected cash-flow forecast.
type ForecastPoint struct {
	Date    string  `json:"date"`
	Reason  string  `json:"reason"`
	Balance float64 `json:"balance"`
}
