package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ryanboscobanze/speech-companion/internal/metrics"
)

// ErrMissingAPIKey is returned on every call when no AssemblyAI key is configured
var ErrMissingAPIKey = errors.New("assemblyai: api key not configured")

// AssemblyAIConfig contains AssemblyAI client configuration
type AssemblyAIConfig struct {
	BaseURL        string
	APIKey         string
	LanguageCode   string
	RequestTimeout time.Duration
	PollInterval   time.Duration
	PollTimeout    time.Duration
	MaxRetries     int
}

// AssemblyAI transcribes audio through the AssemblyAI upload/transcript API
type AssemblyAI struct {
	config     AssemblyAIConfig
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalRetries    uint64
	totalPolls      uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// AssemblyAIStats represents client statistics
type AssemblyAIStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	TotalRetries    uint64        `json:"total_retries"`
	TotalPolls      uint64        `json:"total_polls"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// httpStatusError carries a non-2xx response
type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Body)
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// NewAssemblyAI creates a new AssemblyAI client. An empty API key is accepted
// and makes every Transcribe call fail with ErrMissingAPIKey.
func NewAssemblyAI(config AssemblyAIConfig, m *metrics.Metrics, logger *slog.Logger) (*AssemblyAI, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}

	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}

	if config.PollTimeout <= 0 {
		config.PollTimeout = 2 * time.Minute
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	httpClient := &http.Client{
		Timeout: config.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &AssemblyAI{
		config:     config,
		httpClient: httpClient,
		metrics:    m,
		logger:     logger.With(slog.String("engine", EngineAssemblyAI)),
	}, nil
}

// Transcribe uploads the WAV file, requests a transcript and polls until it
// completes, errors, or the poll deadline passes
func (a *AssemblyAI) Transcribe(ctx context.Context, wavPath string) (string, error) {
	if a.config.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	data, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}

	startTime := time.Now()
	a.incrementTotalRequests()

	text, err := a.transcribe(ctx, data)
	if err != nil {
		a.incrementFailedRequests()
		return "", err
	}

	a.incrementSuccessRequests()
	a.updateAvgResponseTime(time.Since(startTime))
	return text, nil
}

func (a *AssemblyAI) transcribe(ctx context.Context, data []byte) (string, error) {
	var upload uploadResponse
	err := a.withRetry(ctx, func() error {
		return a.doJSON(ctx, http.MethodPost, "/v2/upload", "application/octet-stream", bytes.NewReader(data), &upload)
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}
	if upload.UploadURL == "" {
		return "", fmt.Errorf("upload response missing upload_url")
	}

	body, err := json.Marshal(transcriptRequest{AudioURL: upload.UploadURL, LanguageCode: a.config.LanguageCode})
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript request: %w", err)
	}

	var created transcriptResponse
	err = a.withRetry(ctx, func() error {
		return a.doJSON(ctx, http.MethodPost, "/v2/transcript", "application/json", bytes.NewReader(body), &created)
	})
	if err != nil {
		return "", fmt.Errorf("failed to request transcript: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("transcript response missing id")
	}

	return a.poll(ctx, created.ID)
}

// poll fetches the transcript status at a fixed interval until a terminal state
func (a *AssemblyAI) poll(ctx context.Context, id string) (string, error) {
	pollCtx, cancel := context.WithTimeout(ctx, a.config.PollTimeout)
	defer cancel()

	ticker := time.NewTicker(a.config.PollInterval)
	defer ticker.Stop()

	for {
		var status transcriptResponse
		if err := a.doJSON(pollCtx, http.MethodGet, "/v2/transcript/"+id, "", nil, &status); err != nil {
			if pollCtx.Err() != nil {
				return "", fmt.Errorf("transcript %s not ready before deadline: %w", id, pollCtx.Err())
			}
			if !isRetryableError(err) {
				return "", fmt.Errorf("failed to poll transcript: %w", err)
			}
			a.logger.Debug("Transient poll failure",
				slog.String("transcript_id", id),
				slog.String("error", err.Error()))
		} else {
			a.incrementTotalPolls()

			switch status.Status {
			case "completed":
				return status.Text, nil
			case "error":
				return "", fmt.Errorf("transcript %s failed: %s", id, status.Error)
			}
		}

		select {
		case <-pollCtx.Done():
			return "", fmt.Errorf("transcript %s not ready before deadline: %w", id, pollCtx.Err())
		case <-ticker.C:
		}
	}
}

// withRetry runs fn with exponential backoff on retryable errors
func (a *AssemblyAI) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			a.incrementTotalRetries()
			a.metrics.RecordTranscriptionRetry()

			backoffTime := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if backoffTime > 30*time.Second {
				backoffTime = 30 * time.Second
			}

			select {
			case <-time.After(backoffTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryableError(err) {
			break
		}

		a.logger.Debug("Retrying AssemblyAI request",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
	}

	return lastErr
}

// doJSON performs one request and decodes a JSON response into out
func (a *AssemblyAI) doJSON(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("authorization", a.config.APIKey)
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}

	return nil
}

// isRetryableError reports whether a request may succeed if repeated
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "refused")
}

// Statistics methods
func (a *AssemblyAI) incrementTotalRequests() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalRequests++
}

func (a *AssemblyAI) incrementSuccessRequests() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.successRequests++
}

func (a *AssemblyAI) incrementFailedRequests() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failedRequests++
}

func (a *AssemblyAI) incrementTotalRetries() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalRetries++
}

func (a *AssemblyAI) incrementTotalPolls() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalPolls++
}

func (a *AssemblyAI) updateAvgResponseTime(responseTime time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.avgResponseTime == 0 {
		a.avgResponseTime = responseTime
	} else {
		a.avgResponseTime = (a.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (a *AssemblyAI) GetStats() AssemblyAIStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	successRate := float64(0)
	if a.totalRequests > 0 {
		successRate = float64(a.successRequests) / float64(a.totalRequests) * 100
	}

	return AssemblyAIStats{
		TotalRequests:   a.totalRequests,
		SuccessRequests: a.successRequests,
		FailedRequests:  a.failedRequests,
		SuccessRate:     successRate,
		TotalRetries:    a.totalRetries,
		TotalPolls:      a.totalPolls,
		AvgResponseTime: a.avgResponseTime,
	}
}
