package llm

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMissingCredential is returned on every call by a provider without an API key
	ErrMissingCredential = errors.New("credential not configured")

	// ErrEmptyResponse is returned when a provider answers with no usable text
	ErrEmptyResponse = errors.New("empty completion")

	// ErrAllProvidersFailed is returned when no provider in the chain produced text
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// Provider completes a single prompt
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options are the generation parameters shared by every provider
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // HTTP client timeout; the chain applies its own per-attempt deadline
}
