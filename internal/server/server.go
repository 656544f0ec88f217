package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/launchforge/launchforge/internal/ab"
	"github.com/launchforge/launchforge/internal/analytics"
	"github.com/launchforge/launchforge/internal/leads"
	"github.com/launchforge/launchforge/internal/logger"
	"github.com/launchforge/launchforge/internal/ratelimit"
	"github.com/launchforge/launchforge/internal/stats"
	"github.com/launchforge/launchforge/internal/store"
)

// Config wires the server. Zero values fall back to sane defaults; an empty
// AdminToken gets a random one generated at startup.
type Config struct {
	Port       int
	AdminToken string
	DBPath     string
	EvalConfig stats.EvaluatorConfig
}

type Server struct {
	store       *store.SQLiteStore
	engine      *ab.Engine
	lifecycle   *ab.Lifecycle
	analytics   *analytics.Service
	leads       *leads.Service
	viewLimiter ratelimit.Limiter
	log         *logger.Logger

	port      int
	token     string
	dbPath    string
	evalCfg   stats.EvaluatorConfig
	router    *http.ServeMux
	startTime time.Time
}

func New(
	s *store.SQLiteStore,
	engine *ab.Engine,
	lifecycle *ab.Lifecycle,
	analyticsSvc *analytics.Service,
	leadsSvc *leads.Service,
	viewLimiter ratelimit.Limiter,
	log *logger.Logger,
	cfg Config,
) *Server {
	token := cfg.AdminToken
	if token == "" {
		token = generateToken()
	}

	srv := &Server{
		store:       s,
		engine:      engine,
		lifecycle:   lifecycle,
		analytics:   analyticsSvc,
		leads:       leadsSvc,
		viewLimiter: viewLimiter,
		log:         log,
		port:        cfg.Port,
		token:       token,
		dbPath:      cfg.DBPath,
		evalCfg:     cfg.EvalConfig,
		router:      http.NewServeMux(),
		startTime:   time.Now(),
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	// Public endpoints
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/api/resolve", s.handleResolve)
	s.router.HandleFunc("/api/assign", s.handleAssign)
	s.router.HandleFunc("/api/track/view", s.handleTrackView)
	s.router.HandleFunc("/api/leads", s.handleLeads)

	// Admin endpoints (token protected)
	s.router.Handle("/admin/api/tests", s.authMiddleware(http.HandlerFunc(s.handleAdminTests)))
	s.router.Handle("/admin/api/tests/", s.authMiddleware(http.HandlerFunc(s.handleAdminTest)))
	s.router.Handle("/admin/api/variants", s.authMiddleware(http.HandlerFunc(s.handleAdminVariants)))
	s.router.Handle("/admin/api/variants/", s.authMiddleware(http.HandlerFunc(s.handleAdminVariant)))
	s.router.Handle("/admin/api/projects/", s.authMiddleware(http.HandlerFunc(s.handleAdminProject)))
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info("server listening", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func generateToken() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a fixed token if crypto/rand fails
		return "a1b2c3d4"
	}
	return hex.EncodeToString(bytes)
}
