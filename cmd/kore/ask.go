package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/korelabs/kore/internal/model"
	"github.com/korelabs/kore/internal/ratelimit"
	"github.com/korelabs/kore/internal/schema"
)

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [utterance]",
		Short: "Ask the assistant a single question",
		Long: `Send one utterance through the assistant and print the answer.

An add intent prints the parsed transaction; pass --save to record it
without the interactive confirmation.

Examples:
  kore ask "spent 50 on pizza" --save
  kore ask "cât am cheltuit pe mâncare luna asta?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}
	cmd.Flags().Bool("save", false, "Persist an add intent immediately")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	utterance := strings.TrimSpace(strings.Join(args, " "))
	save, _ := cmd.Flags().GetBool("save")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	classifier, err := initClassifier(ratelimit.New())
	if err != nil {
		return err
	}
	defer func() { _ = classifier.Close() }()

	history, err := store.RecentHistory(ctx, model.HistoryWindowSize)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	result, err := classifier.Classify(ctx, utterance, model.NewHistoryWindow(history), time.Now())
	if err != nil {
		return err
	}

	fmt.Println(result.Response)

	if !result.IsAdd() {
		return nil
	}

	txn, err := schema.New().Validate(schema.Candidate{
		Type:     string(result.Type),
		Category: result.Category,
		Date:     result.Date,
		Note:     result.Note,
		Amount:   result.Amount,
	})
	if err != nil {
		return err
	}

	if !save {
		fmt.Printf("parsed: %s %.2f %s on %s (rerun with --save to record)\n",
			txn.Type, txn.Amount, txn.Category, txn.Date)
		return nil
	}

	txn.Amount = model.SignedAmount(txn.Type, txn.Amount)
	id, err := store.CreateTransaction(ctx, txn)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	fmt.Printf("saved transaction %d\n", id)
	return nil
}
