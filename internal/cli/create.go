package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/launchforge/launchforge/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		projectID   string
		controlID   string
		challengers []string
		weightSpecs []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new A/B test",
		Long: `Create a new A/B test comparing a published control variant against
one or more challenger drafts. Weights default to 1 per variant.

Examples:
  launchforge create --project p1 --control v-ctl --challenger v-chl
  launchforge create --project p1 --control v-ctl --challenger v-a --challenger v-b \
      --weight v-ctl=2 --weight v-a=1 --weight v-b=1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(challengers) == 0 {
				return fmt.Errorf("need at least one challenger. Example: --challenger <variant-id>")
			}

			weights := make(map[string]int)
			weights[controlID] = 1
			for _, id := range challengers {
				weights[id] = 1
			}
			for _, spec := range weightSpecs {
				id, value, found := strings.Cut(spec, "=")
				if !found {
					return fmt.Errorf("invalid weight %q, expected <variant-id>=<int>", spec)
				}
				w, err := strconv.Atoi(value)
				if err != nil || w <= 0 {
					return fmt.Errorf("weight for %s must be a positive integer", id)
				}
				if _, ok := weights[id]; !ok {
					return fmt.Errorf("weight given for %s, which is not part of the test", id)
				}
				weights[id] = w
			}

			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				test, err := s.CreateTest(ctx, projectID, controlID, challengers, weights)
				if err != nil {
					return fmt.Errorf("failed to create test: %w", err)
				}

				fmt.Printf("Created test %s (%s):\n", test.ID, test.Status)
				fmt.Printf("  control:    %s (weight %d)\n", test.ControlID, weights[test.ControlID])
				for _, id := range test.ChallengerIDs {
					fmt.Printf("  challenger: %s (weight %d)\n", id, weights[id])
				}
				fmt.Println("\nRun 'launchforge start' to begin serving challengers.")

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project ID (required)")
	cmd.Flags().StringVar(&controlID, "control", "", "control variant ID (required)")
	cmd.Flags().StringArrayVar(&challengers, "challenger", nil, "challenger variant ID (repeatable)")
	cmd.Flags().StringArrayVar(&weightSpecs, "weight", nil, "selection weight as <variant-id>=<int> (repeatable)")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("control")

	return cmd
}
