// Package export writes transaction history to portable formats.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/korelabs/kore/internal/model"
	"github.com/korelabs/kore/internal/service"
)

// csvHeader matches the spreadsheet layout users import elsewhere.
var csvHeader = []string{"Date", "Type", "Category", "Note", "Amount"}

// CSVExporter streams transactions as CSV rows.
type CSVExporter struct {
	store service.Storage
}

// NewCSVExporter returns an exporter over the given store.
func NewCSVExporter(store service.Storage) *CSVExporter {
	return &CSVExporter{store: store}
}

// Export writes all transactions matching filter to w, most recent first.
// onRow, if non-nil, is called once per written row for progress reporting.
// Returns the number of data rows written.
func (e *CSVExporter) Export(ctx context.Context, w io.Writer, filter service.TransactionFilter, onRow func()) (int, error) {
	txns, err := e.store.GetTransactions(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("loading transactions for export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("writing csv header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(row(txn)); err != nil {
			return i, fmt.Errorf("writing csv row: %w", err)
		}
		if onRow != nil {
			onRow()
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(txns), fmt.Errorf("flushing csv: %w", err)
	}
	return len(txns), nil
}

func row(t model.Transaction) []string {
	return []string{
		t.Date,
		string(t.Type),
		t.Category,
		t.Note,
		strconv.FormatFloat(t.Amount, 'f', 2, 64),
	}
}
