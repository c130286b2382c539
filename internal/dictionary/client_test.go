package dictionary

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

func newDictionaryServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		word := strings.TrimPrefix(r.URL.Path, "/api/v2/entries/en/")

		switch word {
		case "gyroscope":
			w.Write([]byte(`[{"word":"gyroscope","meanings":[{"partOfSpeech":"noun","definitions":[` +
				`{"definition":"A spinning wheel mounted so that its axis can turn freely."},` +
				`{"definition":"Second definition."}]},{"partOfSpeech":"verb","definitions":[{"definition":"Unused."}]}]}]`))
		case "empty":
			w.Write([]byte(`[{"word":"empty","meanings":[]}]`))
		case "broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"title":"No Definitions Found"}`))
		}
	}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:   baseURL + "/api/v2/entries/en/",
		Timeout:   time.Second,
		CacheSize: 100,
		CacheTTL:  time.Minute,
	}, nil, testLogger())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestDefine(t *testing.T) {
	var hits int32
	server := newDictionaryServer(t, &hits)
	defer server.Close()

	client := newTestClient(t, server.URL)

	tests := []struct {
		word     string
		expected string
		found    bool
	}{
		{word: "gyroscope", expected: "A spinning wheel mounted so that its axis can turn freely.", found: true},
		{word: "Gyroscope", expected: "A spinning wheel mounted so that its axis can turn freely.", found: true},
		{word: "zzxq", expected: "", found: false},
		{word: "empty", expected: "", found: false},
		{word: "broken", expected: "", found: false},
		{word: "", expected: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			definition, found := client.Define(context.Background(), tt.word)
			if found != tt.found {
				t.Errorf("Expected found=%v, got %v", tt.found, found)
			}
			if definition != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, definition)
			}
		})
	}

	stats := client.GetStats()
	if stats.Found != 1 || stats.CacheHits != 1 || stats.Failures != 1 || stats.NotFound != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestDefineCachesResults(t *testing.T) {
	var hits int32
	server := newDictionaryServer(t, &hits)
	defer server.Close()

	client := newTestClient(t, server.URL)

	for i := 0; i < 3; i++ {
		client.Define(context.Background(), "gyroscope")
		client.Define(context.Background(), "zzxq")
	}

	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("Expected 2 upstream requests with caching, got %d", got)
	}
}

func TestDefineDoesNotCacheFailures(t *testing.T) {
	var hits int32
	server := newDictionaryServer(t, &hits)
	defer server.Close()

	client := newTestClient(t, server.URL)

	client.Define(context.Background(), "broken")
	client.Define(context.Background(), "broken")

	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("Expected failures to be retried upstream, got %d requests", got)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}, nil, testLogger()); err == nil {
		t.Error("Expected error for empty base URL")
	}
}
