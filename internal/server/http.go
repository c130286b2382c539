package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ryanboscobanze/speech-companion/internal/config"
	"github.com/ryanboscobanze/speech-companion/internal/metrics"
	"github.com/ryanboscobanze/speech-companion/internal/sequencer"
	"github.com/ryanboscobanze/speech-companion/internal/session"
)

// SessionSource reports the recording state
type SessionSource interface {
	Snapshot() session.Snapshot
}

// RowSource returns the live display list
type RowSource interface {
	Rows() []sequencer.Row
}

// HistorySource returns persisted rows, newest first
type HistorySource interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]sequencer.Row, error)
}

// Sources are the components the API reports on. Any of them may be nil.
type Sources struct {
	Session SessionSource
	Rows    RowSource
	History HistorySource

	// Stats maps a component name to a function returning its statistics
	Stats map[string]func() any
}

// HTTPServer provides HTTP API endpoints for monitoring
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	missing  []string
	sources  Sources
	gatherer prometheus.Gatherer
	metrics  *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server. missing lists credentials that
// are not set; their values are never exposed.
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, appConfig *config.Config, missing []string,
	sources Sources, gatherer prometheus.Gatherer, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		missing:   missing,
		sources:   sources,
		gatherer:  gatherer,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Handler returns the API handler
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("/rows", h.withMetrics("/rows", h.handleRows))
	mux.HandleFunc("/history", h.withMetrics("/history", h.handleHistory))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Prometheus metrics endpoint (not instrumented itself)
	gatherer := h.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := strconv.Itoa(ww.statusCode)
		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (h *HTTPServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.server.Addr, err)
	}

	h.logger.Info("Starting HTTP API server", slog.String("address", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.Stop(shutdownCtx)
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")
	return h.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	recording := false
	if h.sources.Session != nil {
		recording = h.sources.Session.Snapshot().Recording
	}

	rows := 0
	if h.sources.Rows != nil {
		rows = len(h.sources.Rows.Rows())
	}

	writeJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]any{
			"name":    "speech-companion",
			"version": "1.0.0",
		},
		"recording":           recording,
		"rows":                rows,
		"missing_credentials": h.missingCredentials(),
	})
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]any{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
	}

	if h.sources.Session != nil {
		stats["session"] = h.sources.Session.Snapshot()
	}

	for name, fn := range h.sources.Stats {
		stats[name] = fn()
	}

	writeJSON(w, stats)
}

// handleRows implements the /rows endpoint: the live display list, newest first
func (h *HTTPServer) handleRows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rows := []sequencer.Row{}
	if h.sources.Rows != nil {
		rows = h.sources.Rows.Rows()
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if limit < len(rows) {
			rows = rows[:limit]
		}
	}

	writeJSON(w, map[string]any{
		"total_rows": len(rows),
		"timestamp":  time.Now().UTC(),
		"rows":       rows,
	})
}

// handleHistory implements the /history endpoint over persisted rows
func (h *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.sources.History == nil {
		http.Error(w, "History storage disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	rows, err := h.sources.History.Recent(r.Context(), r.URL.Query().Get("session"), limit)
	if err != nil {
		h.logger.Error("Failed to read history", slog.String("error", err.Error()))
		http.Error(w, "Failed to read history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"total_rows": len(rows),
		"rows":       rows,
	})
}

// handleConfig implements the /config endpoint. Credentials live outside the
// config file, so only their presence is reported.
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]any{
		"config":              h.config,
		"missing_credentials": h.missingCredentials(),
	})
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, map[string]any{
		"service": "Speech Companion",
		"version": "1.0.0",
		"endpoints": map[string]any{
			"GET /":        "API documentation",
			"GET /health":  "Service health check",
			"GET /stats":   "Component statistics",
			"GET /rows":    "Current result rows, newest first (?limit=N)",
			"GET /history": "Persisted rows (?session=ID&limit=N)",
			"GET /config":  "Active configuration",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *HTTPServer) missingCredentials() []string {
	if h.missing == nil {
		return []string{}
	}
	return h.missing
}
