package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/launchforge/launchforge/internal/ab"
	"github.com/launchforge/launchforge/internal/analytics"
	"github.com/launchforge/launchforge/internal/leads"
	"github.com/launchforge/launchforge/internal/logger"
	"github.com/launchforge/launchforge/internal/privacy"
	"github.com/launchforge/launchforge/internal/ratelimit"
	"github.com/launchforge/launchforge/internal/server"
	"github.com/launchforge/launchforge/internal/store"
	"github.com/spf13/cobra"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the launchforge HTTP server.

The server provides:
  - Public resolve/assign/track/lead endpoints for landing pages
  - Token-protected admin API for tests, variants and results
  - Health check endpoint

Example:
  launchforge serve --port 8080`,
	RunE: runServe,
}

func init() {
	defaultPort := 8080
	if p := os.Getenv("LF_PORT"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			defaultPort = parsed
		}
	}

	serveCmd.Flags().IntVarP(&port, "port", "p", defaultPort, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := logger.New(getEnvOrDefault("LF_LOG", "dev"))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	salt := os.Getenv("LF_SALT")
	if salt == "" {
		salt = "local-dev-salt"
		log.Warn("LF_SALT not set, using the development salt; set it in production")
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	hasher := privacy.NewHasher(salt)
	analyticsSvc := analytics.NewService(s, hasher, log, retentionFromEnv())
	engine := ab.NewEngine(s, log)
	lifecycle := ab.NewLifecycle(s, log)

	// 60 views/min and 5 lead submissions/10min per daily IP hash.
	viewLimiter := ratelimit.NewSlidingWindow(ratelimit.Config{Limit: 60, Window: time.Minute})
	defer viewLimiter.Close()
	leadLimiter := ratelimit.NewSlidingWindow(ratelimit.Config{Limit: 5, Window: 10 * time.Minute})
	defer leadLimiter.Close()

	leadsSvc := leads.NewService(s, analyticsSvc, leadLimiter, log)

	srv := server.New(s, engine, lifecycle, analyticsSvc, leadsSvc, viewLimiter, log, server.Config{
		Port:       port,
		AdminToken: os.Getenv("LF_ADMIN_TOKEN"),
		DBPath:     dbPath,
	})

	fmt.Println()
	fmt.Printf("launchforge running on http://localhost:%d\n", port)
	fmt.Printf("Admin API token: %s\n", srv.Token())
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")

	return srv.Start()
}
