package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "launchforge",
	Short: "LaunchForge - landing page A/B experimentation engine",
	Long: `LaunchForge runs A/B experiments over published landing page variants:
sticky weighted assignment, privacy-safe view/conversion tracking, and
Wilson-score winner promotion. Single Go binary, embedded SQLite.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("LF_DB_PATH", "./launchforge.db"), "database path")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
