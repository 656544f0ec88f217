package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/launchforge/launchforge/internal/store"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newPruneCmd())
}

func newPruneCmd() *cobra.Command {
	var (
		days int
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete view/conversion events past the retention window",
		Long: `Delete view and conversion events older than the retention window.
Events are the only thing deleted; tests, variants, assignments and leads
are kept.

Example:
  launchforge prune --days 90`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				days = int(retentionFromEnv() / (24 * time.Hour))
			}

			if !yes {
				prompt := promptui.Prompt{
					Label:     fmt.Sprintf("Delete all events older than %d days", days),
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

			return withStore(func(s *store.SQLiteStore) error {
				cutoff := time.Now().AddDate(0, 0, -days)
				n, err := s.PruneEvents(context.Background(), cutoff)
				if err != nil {
					return fmt.Errorf("failed to prune events: %w", err)
				}
				fmt.Printf("Deleted %d events older than %s.\n", n, cutoff.Format("2006-01-02"))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (default LF_RETENTION_DAYS or 90)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}
