package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/korelabs/kore/internal/model"
	"github.com/korelabs/kore/internal/service"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded transactions",
		Long: `List transactions, most recent first.

Examples:
  kore list
  kore list --type expense --category Food
  kore list --start 2025-03-01 --end 2025-03-31`,
		RunE: runList,
	}

	cmd.Flags().String("type", "", "Filter by type (income, expense)")
	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().String("start", "", "Earliest date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Latest date (YYYY-MM-DD)")
	cmd.Flags().Int("limit", 50, "Maximum rows to print")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txns, err := store.GetTransactions(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}
	if len(txns) == 0 {
		fmt.Println("no transactions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tCATEGORY\tAMOUNT\tNOTE")
	for _, t := range txns {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%s\n", t.ID, t.Date, t.Type, t.Category, t.Amount, t.Note)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	balance, err := store.Balance(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nbalance: %.2f\n", balance)
	return nil
}

func filterFromFlags(cmd *cobra.Command) (service.TransactionFilter, error) {
	var filter service.TransactionFilter

	if typ, _ := cmd.Flags().GetString("type"); typ != "" {
		t := model.TransactionType(typ)
		if t != model.TypeIncome && t != model.TypeExpense {
			return filter, fmt.Errorf("invalid type %q, expected income or expense", typ)
		}
		filter.Type = t
	}
	filter.Category, _ = cmd.Flags().GetString("category")

	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	var err error
	if filter.StartDate, err = parseDateFlag(start); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseDateFlag(end); err != nil {
		return filter, err
	}
	filter.Limit, _ = cmd.Flags().GetInt("limit")

	return filter, nil
}
