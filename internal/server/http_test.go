package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ryanboscobanze/speech-companion/internal/config"
	"github.com/ryanboscobanze/speech-companion/internal/metrics"
	"github.com/ryanboscobanze/speech-companion/internal/sequencer"
	"github.com/ryanboscobanze/speech-companion/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubSession struct{ snapshot session.Snapshot }

func (s stubSession) Snapshot() session.Snapshot { return s.snapshot }

type stubRows []sequencer.Row

func (s stubRows) Rows() []sequencer.Row { return []sequencer.Row(s) }

type stubHistory struct {
	rows []sequencer.Row
	err  error

	session string
	limit   int
}

func (s *stubHistory) Recent(_ context.Context, sessionID string, limit int) ([]sequencer.Row, error) {
	s.session = sessionID
	s.limit = limit
	return s.rows, s.err
}

func newTestServer(t *testing.T, sources Sources) (*HTTPServer, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	cfg := config.Default()
	srv := NewHTTPServer(cfg.HTTP, testLogger(), cfg, []string{"GROQ_KEY"}, sources, reg, m)
	return srv, reg
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, Sources{
		Session: stubSession{snapshot: session.Snapshot{Recording: true}},
		Rows:    stubRows{{Speech: "a"}, {Speech: "b"}},
	})

	rec := get(t, srv.Handler(), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	body := decode(t, rec)
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", body["status"])
	}
	if body["recording"] != true {
		t.Errorf("Expected recording true, got %v", body["recording"])
	}
	if body["rows"] != float64(2) {
		t.Errorf("Expected 2 rows, got %v", body["rows"])
	}
	missing, _ := body["missing_credentials"].([]any)
	if len(missing) != 1 || missing[0] != "GROQ_KEY" {
		t.Errorf("Expected GROQ_KEY reported missing, got %v", body["missing_credentials"])
	}
}

func TestRows(t *testing.T) {
	rows := stubRows{{Speech: "newest"}, {Speech: "middle"}, {Speech: "oldest"}}
	srv, _ := newTestServer(t, Sources{Rows: rows})

	tests := []struct {
		name     string
		target   string
		status   int
		expected int
	}{
		{name: "all rows", target: "/rows", status: http.StatusOK, expected: 3},
		{name: "limited", target: "/rows?limit=1", status: http.StatusOK, expected: 1},
		{name: "limit above length", target: "/rows?limit=10", status: http.StatusOK, expected: 3},
		{name: "invalid limit", target: "/rows?limit=abc", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv.Handler(), tt.target)
			if rec.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.status != http.StatusOK {
				return
			}

			body := decode(t, rec)
			got, _ := body["rows"].([]any)
			if len(got) != tt.expected {
				t.Fatalf("Expected %d rows, got %d", tt.expected, len(got))
			}
			first := got[0].(map[string]any)
			if first["speech"] != "newest" {
				t.Errorf("Expected newest row first, got %v", first["speech"])
			}
		})
	}
}

func TestHistory(t *testing.T) {
	history := &stubHistory{rows: []sequencer.Row{{Speech: "stored"}}}
	srv, _ := newTestServer(t, Sources{History: history})

	rec := get(t, srv.Handler(), "/history?session=abc&limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if history.session != "abc" || history.limit != 5 {
		t.Errorf("Expected session abc limit 5, got %q %d", history.session, history.limit)
	}

	history.err = errors.New("database locked")
	if rec := get(t, srv.Handler(), "/history"); rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 on storage error, got %d", rec.Code)
	}

	disabled, _ := newTestServer(t, Sources{})
	if rec := get(t, disabled.Handler(), "/history"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without storage, got %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	srv, _ := newTestServer(t, Sources{
		Session: stubSession{},
		Stats: map[string]func() any{
			"dispatcher": func() any { return map[string]int{"dispatched": 7} },
		},
	})

	body := decode(t, get(t, srv.Handler(), "/stats"))

	dispatcher, ok := body["dispatcher"].(map[string]any)
	if !ok {
		t.Fatalf("Expected dispatcher stats, got %v", body)
	}
	if dispatcher["dispatched"] != float64(7) {
		t.Errorf("Expected 7 dispatched, got %v", dispatcher["dispatched"])
	}
	if _, ok := body["session"]; !ok {
		t.Error("Expected session snapshot in stats")
	}
}

func TestConfigOmitsSecrets(t *testing.T) {
	srv, _ := newTestServer(t, Sources{})

	rec := get(t, srv.Handler(), "/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if strings.Contains(strings.ToLower(rec.Body.String()), "api_key") {
		t.Error("Expected no API keys in config output")
	}
	body := decode(t, rec)
	if _, ok := body["config"]; !ok {
		t.Error("Expected config section")
	}
}

func TestMethodNotAllowedAndNotFound(t *testing.T) {
	srv, reg := newTestServer(t, Sources{})

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}

	if rec := get(t, srv.Handler(), "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "companion_http_errors_total" {
			found = true
		}
	}
	if !found {
		t.Error("Expected HTTP errors recorded")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Sources{})

	get(t, srv.Handler(), "/health")
	rec := get(t, srv.Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "companion_http_requests_total") {
		t.Error("Expected HTTP request counter in metrics output")
	}
}

func TestRoot(t *testing.T) {
	srv, _ := newTestServer(t, Sources{})

	body := decode(t, get(t, srv.Handler(), "/"))
	endpoints, ok := body["endpoints"].(map[string]any)
	if !ok || len(endpoints) != 7 {
		t.Errorf("Expected 7 documented endpoints, got %v", body["endpoints"])
	}
}
