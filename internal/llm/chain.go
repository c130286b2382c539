package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ryanboscobanze/speech-companion/internal/metrics"
)

// Chain tries providers in fixed priority order and returns the first
// non-empty answer. Each attempt gets its own deadline.
type Chain struct {
	providers []Provider
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// Statistics
	stats     map[string]*ProviderStats
	exhausted uint64

	mu sync.RWMutex
}

// ProviderStats represents per-provider attempt statistics
type ProviderStats struct {
	Attempts  uint64        `json:"attempts"`
	Successes uint64        `json:"successes"`
	Failures  uint64        `json:"failures"`
	LastError string        `json:"last_error,omitempty"`
	AvgTime   time.Duration `json:"avg_time"`
}

// ChainStats represents chain statistics
type ChainStats struct {
	Providers []string                 `json:"providers"`
	PerName   map[string]ProviderStats `json:"per_provider"`
	Exhausted uint64                   `json:"exhausted"`
}

// NewChain creates a fallback chain. timeout bounds each provider attempt.
func NewChain(providers []Provider, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Chain {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	stats := make(map[string]*ProviderStats, len(providers))
	for _, p := range providers {
		stats[p.Name()] = &ProviderStats{}
	}

	return &Chain{
		providers: providers,
		timeout:   timeout,
		metrics:   m,
		logger:    logger,
		stats:     stats,
	}
}

// Complete returns the first non-empty trimmed completion. When every provider
// fails the error wraps ErrAllProvidersFailed and each attempt's error.
func (c *Chain) Complete(ctx context.Context, prompt string) (string, error) {
	var errs []error

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		text, err := c.attempt(ctx, p, prompt)
		if err == nil {
			return text, nil
		}

		errs = append(errs, err)
		c.logger.Debug("Provider failed, falling back",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()))
	}

	c.mu.Lock()
	c.exhausted++
	c.mu.Unlock()
	c.metrics.RecordChainExhausted()

	return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

func (c *Chain) attempt(ctx context.Context, p Provider, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := p.Complete(attemptCtx, prompt)
	elapsed := time.Since(start)

	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = fmt.Errorf("%s: %w", p.Name(), ErrEmptyResponse)
		}
	}

	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrMissingCredential):
		outcome = "missing_credential"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(err, ErrEmptyResponse):
		outcome = "empty"
	default:
		outcome = "error"
	}

	c.metrics.RecordProviderAttempt(p.Name(), outcome, elapsed.Seconds())
	c.record(p.Name(), err, elapsed)

	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *Chain) record(name string, err error, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stats[name]
	if !ok {
		s = &ProviderStats{}
		c.stats[name] = s
	}

	s.Attempts++
	if err != nil {
		s.Failures++
		s.LastError = err.Error()
	} else {
		s.Successes++
	}

	if s.AvgTime == 0 {
		s.AvgTime = elapsed
	} else {
		s.AvgTime = (s.AvgTime + elapsed) / 2
	}
}

// GetStats returns current chain statistics
func (c *Chain) GetStats() ChainStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}

	perName := make(map[string]ProviderStats, len(c.stats))
	for name, s := range c.stats {
		perName[name] = *s
	}

	return ChainStats{
		Providers: names,
		PerName:   perName,
		Exhausted: c.exhausted,
	}
}
