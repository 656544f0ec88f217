package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/launchforge/launchforge/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	leadsCmd := &cobra.Command{
		Use:   "leads",
		Short: "Work with captured leads",
	}
	leadsCmd.AddCommand(newLeadsExportCmd())
	rootCmd.AddCommand(leadsCmd)
}

func newLeadsExportCmd() *cobra.Command {
	var (
		projectID string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a project's leads as CSV",
		Long: `Write all leads captured for a project as CSV, newest first.
Stored IP hashes are not exported.

Example:
  launchforge leads export --project p1 --out leads.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				leads, err := s.ListLeads(context.Background(), projectID)
				if err != nil {
					return fmt.Errorf("failed to list leads: %w", err)
				}

				out := os.Stdout
				if outPath != "" {
					f, err := os.Create(outPath)
					if err != nil {
						return fmt.Errorf("failed to create output file: %w", err)
					}
					defer f.Close()
					out = f
				}

				w := csv.NewWriter(out)
				header := []string{"id", "variant_id", "name", "email", "phone", "message",
					"utm_source", "utm_medium", "utm_campaign", "created_date", "created_at"}
				if err := w.Write(header); err != nil {
					return fmt.Errorf("failed to write header: %w", err)
				}

				for _, l := range leads {
					record := []string{
						l.ID,
						l.VariantID,
						l.Name,
						l.Email,
						l.Phone,
						l.Message,
						l.UTM.Source,
						l.UTM.Medium,
						l.UTM.Campaign,
						l.CreatedAt.UTC().Format("2006-01-02"),
						strconv.FormatInt(l.CreatedAt.Unix(), 10),
					}
					if err := w.Write(record); err != nil {
						return fmt.Errorf("failed to write record: %w", err)
					}
				}

				w.Flush()
				if err := w.Error(); err != nil {
					return fmt.Errorf("failed to flush csv: %w", err)
				}

				if outPath != "" {
					fmt.Printf("Exported %d leads to %s\n", len(leads), outPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project ID (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default stdout)")
	cmd.MarkFlagRequired("project")

	return cmd
}
