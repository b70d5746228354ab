// Package api serves the config parser over HTTP: parse a guest's params into
// a provisioning result, convert between config and CLI forms, lint a config
// and render provisioning scripts.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-logr/logr"

	"github.com/nauticalab/pveconf/internal/auth"
	"github.com/nauticalab/pveconf/internal/k8s"
)

// DefaultRateLimit is requests per minute per client IP.
const DefaultRateLimit = 100

// Server represents the HTTP API server
type Server struct {
	// router is the HTTP request multiplexer
	router *chi.Mux
	// handler contains the API route handlers
	handler *Handler
	// log receives server lifecycle messages
	log logr.Logger
	// addr is the address the server listens on
	addr string
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080"
	Addr string
	// Logger receives request and lifecycle logs
	Logger logr.Logger
	// K8sClient enables configmap sources when set
	K8sClient *k8s.Client
	// CloudInit is the default cloud-init storage for validation
	CloudInit string
	// RateLimit is requests per minute per IP; 0 means DefaultRateLimit
	RateLimit int
	// Version is the application version
	Version string
	// GitCommit is the git commit hash
	GitCommit string
	// BuildTime is the build timestamp
	BuildTime string
	// GoVersion is the Go version used for the build
	GoVersion string
	// AuthProviders guard the POST endpoints when non-empty; health and
	// version stay public
	AuthProviders map[string]auth.AuthProvider
}

// NewServer creates a new API server with the given configuration
func NewServer(config ServerConfig) (*Server, error) {
	if config.Addr == "" {
		return nil, errors.New("server address is required")
	}
	rateLimit := config.RateLimit
	if rateLimit == 0 {
		rateLimit = DefaultRateLimit
	}
	if rateLimit < 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", rateLimit)
	}

	// Create handler
	handler := NewHandler(
		config.Logger,
		config.K8sClient,
		config.CloudInit,
		config.Version,
		config.GitCommit,
		config.BuildTime,
		config.GoVersion,
	)

	// Create router
	router := chi.NewRouter()

	// Setup middleware
	setupMiddleware(router, config.Logger, rateLimit)

	// Setup routes
	setupRoutes(router, handler, config.Logger, config.AuthProviders)

	return &Server{
		router:  router,
		handler: handler,
		log:     config.Logger,
		addr:    config.Addr,
	}, nil
}

// setupMiddleware configures the middleware chain
func setupMiddleware(router *chi.Mux, log logr.Logger, rateLimit int) {
	// Request logger, sharing the process log handler
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(logr.ToSlogHandler(log), slog.LevelInfo),
		NoColor: true,
	}))

	// Recoverer from panics
	router.Use(middleware.Recoverer)

	// Timeout for requests
	router.Use(middleware.Timeout(60 * time.Second))

	// Security headers
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Content-Security-Policy", "default-src 'none'")
			next.ServeHTTP(w, r)
		})
	})

	// Rate limiting per IP
	router.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))
}

// setupRoutes configures the API routes
func setupRoutes(router *chi.Mux, handler *Handler, log logr.Logger, providers map[string]auth.AuthProvider) {
	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.Health)
		r.Get("/version", handler.Version)

		r.Group(func(r chi.Router) {
			if len(providers) > 0 {
				r.Use(auth.Middleware(log, providers))
			}
			r.Post("/parse", handler.Parse)
			r.Post("/convert", handler.Convert)
			r.Post("/validate", handler.Validate)
			r.Post("/render", handler.Render)
		})
	})
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StartWithContext starts the HTTP server and shuts it down gracefully when
// ctx is cancelled.
func (s *Server) StartWithContext(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to signal server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.log.Info("server listening", "addr", s.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.log.Info("shutting down server")

		// Create shutdown context with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Error(err, "server shutdown error")
			return err
		}

		s.log.Info("server stopped gracefully")
		return nil

	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}
