package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ai-bot/internal/cache"
	"ai-bot/internal/metrics"
	"ai-bot/internal/repo"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups optional HTTP handlers to mount.
type Handlers struct {
	Admin http.Handler
}

// Connector reports whether the messaging transport is online.
type Connector interface {
	Connected() bool
}

// Dependencies exposes core dependencies to the readiness probe.
type Dependencies struct {
	Repository repo.Repository
	Redis      *cache.Redis
	WhatsApp   Connector
}

// Server wraps an http.Server with predefined routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	handlers   Handlers
	deps       Dependencies
	basePath   string
}

// New creates a new HTTP server listening on addr with health and metrics endpoints.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, handlers Handlers, basePath string) *Server {
	server := &Server{
		logger:   logger.With("component", "http"),
		metrics:  metricRegistry,
		handlers: handlers,
		basePath: normaliseBasePath(basePath),
	}

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if server.basePath != "" {
		server.logger.Info("http server configured with base path", "base_path", server.basePath)
	}

	return server
}

// Handler returns the routed handler, including the base path prefix.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	if s.handlers.Admin != nil {
		mux.Handle("/admin/", s.handlers.Admin)
	}

	return mountWithBasePath(s.basePath, mux)
}

// SetDependencies makes dependencies accessible to handlers.
func (s *Server) SetDependencies(deps Dependencies) {
	s.deps = deps
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	if s.deps.Repository != nil {
		checks["database"] = "ok"
		if err := s.deps.Repository.Ping(ctx); err != nil {
			s.logger.Warn("database not ready", "error", err)
			checks["database"] = "unavailable"
			healthy = false
		}
	}
	if s.deps.Redis != nil {
		checks["redis"] = "ok"
		if err := s.deps.Redis.Ping(ctx); err != nil {
			s.logger.Warn("redis not ready", "error", err)
			checks["redis"] = "unavailable"
			healthy = false
		}
	}
	// A logged out session still serves the admin API, so it only reports.
	if s.deps.WhatsApp != nil {
		checks["whatsapp"] = "connected"
		if !s.deps.WhatsApp.Connected() {
			checks["whatsapp"] = "disconnected"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, map[string]any{"ready": healthy, "checks": checks})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(payload, '\n'))
}

func mountWithBasePath(basePath string, handler http.Handler) http.Handler {
	if basePath == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, basePath) {
			http.NotFound(w, r)
			return
		}
		if len(r.URL.Path) > len(basePath) && r.URL.Path[len(basePath)] != '/' {
			http.NotFound(w, r)
			return
		}
		trimmed := strings.TrimPrefix(r.URL.Path, basePath)
		if trimmed == "" {
			trimmed = "/"
		}
		r.URL.Path = trimmed
		if r.URL.RawPath != "" {
			rawTrimmed := strings.TrimPrefix(r.URL.RawPath, basePath)
			if rawTrimmed == "" {
				rawTrimmed = "/"
			}
			r.URL.RawPath = rawTrimmed
		}
		handler.ServeHTTP(w, r)
	})
}

func normaliseBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}
