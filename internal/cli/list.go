package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/launchforge/launchforge/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newListCmd())
}

func newListCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List A/B tests for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				tests, err := s.ListTests(ctx, projectID)
				if err != nil {
					return fmt.Errorf("failed to list tests: %w", err)
				}

				if len(tests) == 0 {
					fmt.Println("No tests yet. Create one with 'launchforge create'.")
					return nil
				}

				fmt.Println("TEST                                  STATUS    VARIANTS  WINNER")
				fmt.Println(strings.Repeat("─", 78))
				for _, t := range tests {
					winner := "-"
					if t.WinnerVariantID != "" {
						winner = t.WinnerVariantID
					}
					fmt.Printf("%-36s  %-8s  %-8d  %s\n", t.ID, t.Status, len(t.ChallengerIDs)+1, winner)
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project ID (required)")
	cmd.MarkFlagRequired("project")

	return cmd
}
