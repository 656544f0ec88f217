package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/launchforge/launchforge/internal/analytics"
	"github.com/launchforge/launchforge/internal/stats"
	"github.com/launchforge/launchforge/internal/store"
	"github.com/spf13/cobra"
)

var confidence float64

var resultsCmd = &cobra.Command{
	Use:   "results <test-id>",
	Short: "Show detailed results for a test",
	Long:  `Show per-variant views, conversions and Wilson lower bounds, plus the winner verdict.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	resultsCmd.Flags().Float64Var(&confidence, "confidence", 0.95, "two-sided confidence level for the winner rule")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	testID := args[0]

	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		test, err := s.GetTest(ctx, testID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("test '%s' not found", testID)
			}
			return fmt.Errorf("failed to get test: %w", err)
		}

		counts, err := analytics.NewAggregator(s).TestCounts(ctx, test)
		if err != nil {
			return fmt.Errorf("failed to aggregate stats: %w", err)
		}

		eval := stats.Evaluate(counts, stats.EvaluatorConfig{Z: stats.ZScore(confidence)})

		fmt.Printf("TEST: %s\n", test.ID)
		fmt.Printf("STATUS: %s\n", test.Status)
		if test.StartedAt != nil {
			fmt.Printf("STARTED: %s\n", test.StartedAt.Format("2006-01-02"))
		}
		fmt.Println()

		fmt.Println("VARIANT                               VIEWS    CONVERSIONS  RATE     LOWER BOUND")
		fmt.Println(strings.Repeat("─", 82))

		for _, v := range eval.Variants {
			role := ""
			if v.VariantID == test.ControlID {
				role = " (control)"
			}
			fmt.Printf("%-36s  %-7d  %-11d  %-7s  %.4f%s\n",
				v.VariantID,
				v.Views,
				v.Conversions,
				formatPercent(v.Rate),
				v.LowerBound,
				role,
			)
		}

		fmt.Println()
		switch {
		case test.WinnerVariantID != "":
			fmt.Printf("Winner already promoted: %s\n", test.WinnerVariantID)
		case eval.WinnerID != "":
			fmt.Printf("Statistically credible winner: %s\n", eval.WinnerID)
			fmt.Printf("Promote it with: launchforge promote %s --winner %s\n", test.ID, eval.WinnerID)
		default:
			fmt.Println("No winner yet. Keep collecting data.")
		}

		return nil
	})
}

func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}
