// Package service defines the interfaces for the application's persistence
// collaborator.
package service

import (
	"context"
	"time"

	"github.com/korelabs/kore/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Type      model.TransactionType
	Category  string
	Limit     int
	Offset    int
}

// TransactionUpdate holds the fields an update may change. Nil means leave
// the field as is.
type TransactionUpdate struct {
	Type     *model.TransactionType
	Amount   *float64
	Category *string
	Date     *string
	Note     *string
}

// Storage defines the contract for the persistence layer. The core only ever
// constructs and hands off well-formed transaction payloads; pagination and
// batching strategy belong to the implementation.
type Storage interface {
	// CreateTransaction persists a transaction and returns its assigned id.
	CreateTransaction(ctx context.Context, txn model.Transaction) (int64, error)
	// GetTransaction fetches a single transaction by id.
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	// GetTransactions lists transactions matching filter, most recent first.
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	// UpdateTransaction applies the non-nil fields of update to id.
	UpdateTransaction(ctx context.Context, id int64, update TransactionUpdate) error
	// DeleteTransaction removes a transaction.
	DeleteTransaction(ctx context.Context, id int64) error

	// RecentHistory returns up to n most-recent transactions, for the
	// classifier's context window.
	RecentHistory(ctx context.Context, n int) ([]model.Transaction, error)
	// Balance returns the signed sum of all transaction amounts.
	Balance(ctx context.Context) (float64, error)
	// SummaryByCategory aggregates signed amounts per category in a period.
	SummaryByCategory(ctx context.Context, start, end time.Time) (map[string]float64, error)

	// Migrate brings the schema up to the expected version.
	Migrate(ctx context.Context) error
	Close() error
}
