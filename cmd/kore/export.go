package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/korelabs/kore/internal/export"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions to CSV",
		Long: `Write transaction history as CSV, ready for a spreadsheet.

Examples:
  kore export --out transactions.csv
  kore export --start 2025-01-01 --end 2025-12-31 --out 2025.csv`,
		RunE: runExport,
	}

	cmd.Flags().String("out", "transactions.csv", "Output file path")
	cmd.Flags().String("type", "", "Filter by type (income, expense)")
	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().String("start", "", "Earliest date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Latest date (YYYY-MM-DD)")
	cmd.Flags().Int("limit", 0, "Maximum rows (0 = all)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out, _ := cmd.Flags().GetString("out")

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	defer func() { _ = f.Close() }()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Exporting transactions..."),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14))

	n, err := export.NewCSVExporter(store).Export(ctx, f, filter, func() {
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("\nwrote %d transactions to %s\n", n, out)
	return nil
}
