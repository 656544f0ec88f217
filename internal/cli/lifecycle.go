package cli

import (
	"context"
	"fmt"

	"github.com/launchforge/launchforge/internal/ab"
	"github.com/launchforge/launchforge/internal/logger"
	"github.com/launchforge/launchforge/internal/store"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newPromoteCmd())
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <test-id>",
		Short: "Start a draft test",
		Long: `Move a draft test to RUNNING. The test must have a control, at least
one challenger, and a positive weight for every variant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()
				if err := ab.NewLifecycle(s, logger.NewNop()).Start(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to start test: %w", err)
				}
				fmt.Printf("Test %s is now running.\n", args[0])
				return nil
			})
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <test-id>",
		Short: "Stop a running test without a winner",
		Long: `Stop a running test. No slugs move: the control keeps the public
address and new traffic reverts to it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()
				if err := ab.NewLifecycle(s, logger.NewNop()).Stop(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to stop test: %w", err)
				}
				fmt.Printf("Test %s stopped. The control keeps the public address.\n", args[0])
				return nil
			})
		},
	}
}

func newPromoteCmd() *cobra.Command {
	var (
		winnerID string
		yes      bool
	)

	cmd := &cobra.Command{
		Use:   "promote <test-id>",
		Short: "Promote a winning variant and finish the test",
		Long: `Finish a running test with the given winner. If the winner is a
challenger, the control's public address moves to it atomically and the
control is archived.

Example:
  launchforge promote 4f1c... --winner 9ab2...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			testID := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				test, err := s.GetTest(ctx, testID)
				if err != nil {
					return fmt.Errorf("test not found: %s", testID)
				}
				if !test.HasVariant(winnerID) {
					return fmt.Errorf("variant %s is not part of test %s", winnerID, testID)
				}

				if !yes {
					label := fmt.Sprintf("Promote %s and finish the test", winnerID)
					if winnerID != test.ControlID {
						label = fmt.Sprintf("Promote %s, archive the control and move its public address", winnerID)
					}
					prompt := promptui.Prompt{
						Label:     label,
						IsConfirm: true,
					}
					if _, err := prompt.Run(); err != nil {
						if err == promptui.ErrInterrupt || err == promptui.ErrAbort {
							fmt.Println("Aborted.")
							return nil
						}
						return err
					}
				}

				if err := ab.NewLifecycle(s, logger.NewNop()).PromoteWinner(ctx, testID, winnerID); err != nil {
					return fmt.Errorf("failed to promote winner: %w", err)
				}

				fmt.Printf("Promoted %s as the winner of test %s.\n", winnerID, testID)
				if winnerID != test.ControlID {
					fmt.Println("The control has been archived and its public address now serves the winner.")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&winnerID, "winner", "w", "", "winning variant ID (required)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.MarkFlagRequired("winner")

	return cmd
}
