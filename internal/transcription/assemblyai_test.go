package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeAssemblyAI mimics the upload, transcript and polling endpoints
type fakeAssemblyAI struct {
	apiKey       string
	text         string
	failStatus   string // terminal "error" message when set
	pendingPolls int32  // polls answered with "processing" before completing
	uploadFails  int32  // leading upload attempts answered with 503

	uploads     int32
	polls       int32
	mu          sync.Mutex
	uploadBytes int
	lastRequest transcriptRequest
}

func (f *fakeAssemblyAI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v2/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("authorization") != f.apiKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if atomic.AddInt32(&f.uploads, 1) <= f.uploadFails {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}

		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.uploadBytes = len(body)
		f.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/audio-1"})
	})

	mux.HandleFunc("/v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		var req transcriptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.lastRequest = req
		f.mu.Unlock()

		json.NewEncoder(w).Encode(transcriptResponse{ID: "tx-1", Status: "queued"})
	})

	mux.HandleFunc("/v2/transcript/tx-1", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.polls, 1)
		switch {
		case n <= f.pendingPolls:
			json.NewEncoder(w).Encode(transcriptResponse{ID: "tx-1", Status: "processing"})
		case f.failStatus != "":
			json.NewEncoder(w).Encode(transcriptResponse{ID: "tx-1", Status: "error", Error: f.failStatus})
		default:
			json.NewEncoder(w).Encode(transcriptResponse{ID: "tx-1", Status: "completed", Text: f.text})
		}
	})

	return mux
}

func writeTestWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk.wav")
	if err := os.WriteFile(path, []byte("RIFF-test-audio"), 0o600); err != nil {
		t.Fatalf("Failed to write test audio: %v", err)
	}
	return path
}

func newTestAssemblyAI(t *testing.T, baseURL, key string) *AssemblyAI {
	t.Helper()
	client, err := NewAssemblyAI(AssemblyAIConfig{
		BaseURL:      baseURL,
		APIKey:       key,
		LanguageCode: "en",
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  2 * time.Second,
		MaxRetries:   2,
	}, nil, testLogger())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestAssemblyAITranscribe(t *testing.T) {
	fake := &fakeAssemblyAI{apiKey: "secret", text: "hello there", pendingPolls: 2}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestAssemblyAI(t, server.URL, "secret")

	text, err := client.Transcribe(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if text != "hello there" {
		t.Errorf("Expected 'hello there', got %q", text)
	}

	if got := atomic.LoadInt32(&fake.polls); got != 3 {
		t.Errorf("Expected 3 polls, got %d", got)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.lastRequest.AudioURL != "https://cdn.example/audio-1" {
		t.Errorf("Expected upload_url forwarded, got %q", fake.lastRequest.AudioURL)
	}
	if fake.lastRequest.LanguageCode != "en" {
		t.Errorf("Expected language_code en, got %q", fake.lastRequest.LanguageCode)
	}
	if fake.uploadBytes != len("RIFF-test-audio") {
		t.Errorf("Expected raw file upload, got %d bytes", fake.uploadBytes)
	}

	stats := client.GetStats()
	if stats.SuccessRequests != 1 || stats.TotalPolls != 3 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestAssemblyAIMissingKey(t *testing.T) {
	client := newTestAssemblyAI(t, "http://127.0.0.1:1", "")

	_, err := client.Transcribe(context.Background(), writeTestWAV(t))
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}
}

func TestAssemblyAITranscriptError(t *testing.T) {
	fake := &fakeAssemblyAI{apiKey: "k", failStatus: "audio too short"}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestAssemblyAI(t, server.URL, "k")

	_, err := client.Transcribe(context.Background(), writeTestWAV(t))
	if err == nil || !strings.Contains(err.Error(), "audio too short") {
		t.Errorf("Expected transcript error, got %v", err)
	}

	if stats := client.GetStats(); stats.FailedRequests != 1 {
		t.Errorf("Expected 1 failed request, got %d", stats.FailedRequests)
	}
}

func TestAssemblyAIUnauthorizedIsNotRetried(t *testing.T) {
	fake := &fakeAssemblyAI{apiKey: "right"}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestAssemblyAI(t, server.URL, "wrong")

	_, err := client.Transcribe(context.Background(), writeTestWAV(t))
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected 401 status error, got %v", err)
	}

	if stats := client.GetStats(); stats.TotalRetries != 0 {
		t.Errorf("Expected no retries for 401, got %d", stats.TotalRetries)
	}
}

func TestAssemblyAIRetriesServerErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("backoff waits one second")
	}

	fake := &fakeAssemblyAI{apiKey: "k", text: "after retry", uploadFails: 1}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestAssemblyAI(t, server.URL, "k")

	text, err := client.Transcribe(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}
	if text != "after retry" {
		t.Errorf("Expected 'after retry', got %q", text)
	}
	if stats := client.GetStats(); stats.TotalRetries != 1 {
		t.Errorf("Expected 1 retry, got %d", stats.TotalRetries)
	}
}

func TestAssemblyAIPollDeadline(t *testing.T) {
	fake := &fakeAssemblyAI{apiKey: "k", pendingPolls: 1 << 20}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client, _ := NewAssemblyAI(AssemblyAIConfig{
		BaseURL:      server.URL,
		APIKey:       "k",
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  50 * time.Millisecond,
	}, nil, testLogger())

	_, err := client.Transcribe(context.Background(), writeTestWAV(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "server error", err: &httpStatusError{StatusCode: 502}, expected: true},
		{name: "rate limited", err: &httpStatusError{StatusCode: 429}, expected: true},
		{name: "bad request", err: &httpStatusError{StatusCode: 400}, expected: false},
		{name: "deadline", err: context.DeadlineExceeded, expected: true},
		{name: "cancelled", err: context.Canceled, expected: false},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), expected: true},
		{name: "other", err: errors.New("boom"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNewAssemblyAIRequiresBaseURL(t *testing.T) {
	if _, err := NewAssemblyAI(AssemblyAIConfig{}, nil, testLogger()); err == nil {
		t.Error("Expected error for empty base URL")
	}
}
