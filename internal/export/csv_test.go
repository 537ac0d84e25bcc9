package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korelabs/kore/internal/model"
	"github.com/korelabs/kore/internal/service"
	"github.com/korelabs/kore/internal/storage"
)

func newSeededStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { store.Close() })

	for _, txn := range []model.Transaction{
		{Type: model.TypeIncome, Category: "Salary", Date: "2025-03-01", Note: "march", Amount: 5000},
		{Type: model.TypeExpense, Category: "Food", Date: "2025-03-02", Note: "groceries", Amount: -120.5},
	} {
		_, err := store.CreateTransaction(context.Background(), txn)
		require.NoError(t, err)
	}
	return store
}

func TestExportWritesHeaderAndRows(t *testing.T) {
	store := newSeededStore(t)
	exporter := NewCSVExporter(store)

	var buf bytes.Buffer
	n, err := exporter.Export(context.Background(), &buf, service.TransactionFilter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Date", "Type", "Category", "Note", "Amount"}, records[0])

	// Most recent date first.
	assert.Equal(t, []string{"2025-03-02", "expense", "Food", "groceries", "-120.50"}, records[1])
	assert.Equal(t, []string{"2025-03-01", "income", "Salary", "march", "5000.00"}, records[2])
}

func TestExportReportsProgress(t *testing.T) {
	store := newSeededStore(t)
	exporter := NewCSVExporter(store)

	rows := 0
	var buf bytes.Buffer
	_, err := exporter.Export(context.Background(), &buf, service.TransactionFilter{}, func() { rows++ })
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
}

func TestExportFilterByType(t *testing.T) {
	store := newSeededStore(t)
	exporter := NewCSVExporter(store)

	var buf bytes.Buffer
	n, err := exporter.Export(context.Background(), &buf,
		service.TransactionFilter{Type: model.TypeExpense}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExportEmptyStoreStillWritesHeader(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	defer store.Close()

	var buf bytes.Buffer
	n, err := NewCSVExporter(store).Export(context.Background(), &buf, service.TransactionFilter{}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}
