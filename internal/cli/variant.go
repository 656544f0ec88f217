package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/launchforge/launchforge/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	variantCmd := &cobra.Command{
		Use:   "variant",
		Short: "Manage landing page variants",
	}
	variantCmd.AddCommand(newVariantCreateCmd())
	variantCmd.AddCommand(newVariantListCmd())
	variantCmd.AddCommand(newVariantPublishCmd())
	variantCmd.AddCommand(newVariantCloneCmd())
	rootCmd.AddCommand(variantCmd)
}

func newVariantCreateCmd() *cobra.Command {
	var (
		projectID   string
		contentFile string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft variant",
		Long: `Create a new draft variant for a project, optionally loading page
content from a JSON file.

Example:
  launchforge variant create --project p1 --content page.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pageJSON := "{}"
			if contentFile != "" {
				data, err := os.ReadFile(contentFile)
				if err != nil {
					return fmt.Errorf("failed to read content file: %w", err)
				}
				pageJSON = string(data)
			}

			return withStore(func(s *store.SQLiteStore) error {
				v, err := s.CreateVariant(context.Background(), projectID, pageJSON)
				if err != nil {
					return fmt.Errorf("failed to create variant: %w", err)
				}
				fmt.Printf("Created draft variant %s (v%d)\n", v.ID, v.Version)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project ID (required)")
	cmd.Flags().StringVar(&contentFile, "content", "", "path to page content JSON")
	cmd.MarkFlagRequired("project")

	return cmd
}

func newVariantListCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's variants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				variants, err := s.ListVariants(context.Background(), projectID)
				if err != nil {
					return fmt.Errorf("failed to list variants: %w", err)
				}

				if len(variants) == 0 {
					fmt.Println("No variants yet. Create one with 'launchforge variant create'.")
					return nil
				}

				fmt.Println("VARIANT                               VER  STATUS     SLUG")
				fmt.Println(strings.Repeat("─", 72))
				for _, v := range variants {
					slug := "-"
					if v.Slug != "" {
						slug = v.Slug
					}
					fmt.Printf("%-36s  %-3d  %-9s  %s\n", v.ID, v.Version, v.Status, slug)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project ID (required)")
	cmd.MarkFlagRequired("project")

	return cmd
}

func newVariantPublishCmd() *cobra.Command {
	var slug string

	cmd := &cobra.Command{
		Use:   "publish <variant-id>",
		Short: "Publish a draft variant under a public slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				if err := s.PublishVariant(context.Background(), args[0], slug); err != nil {
					return fmt.Errorf("failed to publish variant: %w", err)
				}
				fmt.Printf("Variant %s is now live at /%s\n", args[0], slug)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "public slug (required)")
	cmd.MarkFlagRequired("slug")

	return cmd
}

func newVariantCloneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clone <variant-id>",
		Short: "Copy a variant's content into a new draft",
		Long: `Copy a variant's page content into a new draft at the next version.
Use this to iterate on a promoted winner with a fresh challenger.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				v, err := s.CloneVariant(context.Background(), args[0])
				if err != nil {
					return fmt.Errorf("failed to clone variant: %w", err)
				}
				fmt.Printf("Cloned into draft variant %s (v%d)\n", v.ID, v.Version)
				return nil
			})
		},
	}
}
