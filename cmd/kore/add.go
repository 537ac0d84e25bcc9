package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/korelabs/kore/internal/model"
	"github.com/korelabs/kore/internal/schema"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction manually",
		Long: `Record a transaction without going through the assistant.

Examples:
  kore add --amount 50 --category Food --note pizza
  kore add --type income --amount 5000 --category Salary --date 2025-03-01`,
		RunE: runAdd,
	}

	cmd.Flags().String("type", "expense", "Transaction type (income, expense)")
	cmd.Flags().Float64("amount", 0, "Amount as a positive number")
	cmd.Flags().String("category", "", "Category name")
	cmd.Flags().String("date", "", "Date as YYYY-MM-DD (default: today)")
	cmd.Flags().String("note", "", "Free-form note")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func runAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	typ, _ := cmd.Flags().GetString("type")
	amount, _ := cmd.Flags().GetFloat64("amount")
	category, _ := cmd.Flags().GetString("category")
	date, _ := cmd.Flags().GetString("date")
	note, _ := cmd.Flags().GetString("note")
	if date == "" {
		date = time.Now().Format(model.DateLayout)
	}

	txn, err := schema.New().Validate(schema.Candidate{
		Type:     typ,
		Category: category,
		Date:     date,
		Note:     note,
		Amount:   amount,
	})
	if err != nil {
		return err
	}
	txn.Amount = model.SignedAmount(txn.Type, txn.Amount)

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	id, err := store.CreateTransaction(ctx, txn)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	fmt.Printf("saved transaction %d: %s %.2f %s on %s\n", id, txn.Type, txn.Amount, txn.Category, txn.Date)
	return nil
}
