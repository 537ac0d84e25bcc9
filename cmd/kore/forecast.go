package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/korelabs/kore/internal/model"
	"github.com/korelabs/kore/internal/ratelimit"
)

func forecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecast",
		Short: "Project the balance over the coming month",
		Long: `Ask the assistant to project the balance from recent history:
recurring income, recurring bills, and the current spending pace.`,
		RunE: runForecast,
	}
}

func runForecast(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

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
	balance, err := store.Balance(ctx)
	if err != nil {
		return fmt.Errorf("failed to load balance: %w", err)
	}

	points, err := classifier.Forecast(ctx, model.NewHistoryWindow(history), balance, time.Now())
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Println("not enough history to forecast")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tBALANCE\tREASON")
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%.2f\t%s\n", p.Date, p.Balance, p.Reason)
	}
	return w.Flush()
}
