// Package server exposes the masking pipeline over HTTP: the JSON and
// multipart API under /api/v1, the dashboard, and the WebSocket event stream.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/docshield/docshield/internal/audit"
	"github.com/docshield/docshield/internal/cache"
	"github.com/docshield/docshield/internal/config"
	"github.com/docshield/docshield/internal/logger"
	"github.com/docshield/docshield/internal/masking"
	"github.com/docshield/docshield/internal/pipeline"
	"github.com/docshield/docshield/internal/web"
	"github.com/docshield/docshield/internal/websocket"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server is the HTTP front end over one pipeline service.
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	service *pipeline.Service
	router  *mux.Router
	server  *http.Server
	wsHub   *websocket.Hub
	cache   *cache.StatsCache
	audit   *audit.Store
	limiter *ipLimiter
	started time.Time
}

// New creates a server instance. The Redis stats cache and the PostgreSQL
// audit store are optional; when disabled or unreachable the server starts
// without them.
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	engine := masking.NewEngine(masking.NewCatalog(), log.WithComponent("masking").Logger)
	service := pipeline.New(cfg, engine, log.WithComponent("pipeline").Logger)

	hubConfig := &websocket.HubConfig{
		BroadcastMasking:     cfg.WebSocket.Events.BroadcastMasking,
		BroadcastRequests:    cfg.WebSocket.Events.BroadcastRequests,
		BroadcastSystem:      cfg.WebSocket.Events.BroadcastSystem,
		BroadcastConnections: cfg.WebSocket.Events.BroadcastConnections,
		MaxConnections:       cfg.WebSocket.MaxConnections,
	}
	wsHub := websocket.NewHub(hubConfig, log.WithComponent("websocket").Logger)

	server := &Server{
		config:  cfg,
		logger:  log.WithComponent("server"),
		service: service,
		router:  mux.NewRouter(),
		wsHub:   wsHub,
		started: time.Now(),
	}

	if cfg.Cache.Enabled {
		statsCache, err := cache.New(&cfg.Cache, log.WithComponent("cache").Logger)
		if err != nil {
			log.Warn("Stats cache unavailable, continuing without it", zap.Error(err))
		} else {
			server.cache = statsCache
		}
	}

	if cfg.Audit.Enabled {
		store, err := audit.NewStore(&cfg.Audit, log.WithComponent("audit").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit store: %w", err)
		}
		server.audit = store
	}

	if cfg.Server.RateLimit.Enabled {
		server.limiter = newIPLimiter(cfg.Server.RateLimit)
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// Dashboard
	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	// WebSocket endpoint for dashboard
	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	if s.limiter != nil {
		api.Use(s.rateLimitMiddleware)
	}
	api.HandleFunc("/mask/text", s.handleMaskText).Methods("POST")
	api.HandleFunc("/mask/document", s.handleMaskDocument).Methods("POST")
	api.HandleFunc("/restore", s.handleRestore).Methods("POST")
	api.HandleFunc("/patterns", s.handlePatterns).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting DocShield server",
		zap.Int("port", s.config.Server.Port),
		zap.Int("catalog_size", len(s.service.Engine().Catalog().Entries())),
		zap.Bool("cache_enabled", s.cache != nil),
		zap.Bool("audit_enabled", s.audit != nil),
	)

	go s.wsHub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server and releases backing stores
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping DocShield server")
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("Failed to close stats cache", zap.Error(err))
		}
	}
	if s.audit != nil {
		if err := s.audit.Close(); err != nil {
			s.logger.Warn("Failed to close audit store", zap.Error(err))
		}
	}
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":          "docshield",
		"version":       "0.1.0",
		"catalog_size":  len(s.service.Engine().Catalog().Entries()),
		"default_mode":  s.config.Masking.DefaultMode,
		"max_file_mb":   s.config.Files.MaxFileSizeMB,
		"smart_default": s.config.Masking.EnableSmart,
	})
}

// handleWebSocket handles WebSocket connections for the dashboard
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}

// ReloadConfig applies the reloadable sections of a fresh configuration:
// masking defaults, crypto policy and file limits. Listener, cache and audit
// settings require a restart.
func (s *Server) ReloadConfig(cfg *config.Config) {
	s.config.Masking = cfg.Masking
	s.config.Crypto = cfg.Crypto
	s.config.Files = cfg.Files
	s.logger.Info("Configuration reloaded",
		zap.String("default_mode", cfg.Masking.DefaultMode),
		zap.Bool("smart_default", cfg.Masking.EnableSmart),
		zap.Int("max_file_mb", cfg.Files.MaxFileSizeMB),
	)
}
