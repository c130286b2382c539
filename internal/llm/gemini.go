package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Gemini completes prompts with the Google Gemini API
type Gemini struct {
	name    string
	opts    Options
	client  *genai.Client
	initErr error
}

// NewGemini creates a Gemini provider. baseURL overrides the API endpoint and
// is normally empty. An empty apiKey yields a provider whose every call fails
// with ErrMissingCredential.
func NewGemini(ctx context.Context, name, baseURL, apiKey string, opts Options) *Gemini {
	g := &Gemini{name: name, opts: opts}
	if apiKey == "" {
		g.initErr = ErrMissingCredential
		return g
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(baseURL, "/") + "/"}
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		g.initErr = fmt.Errorf("genai client: %w", err)
		return g
	}
	g.client = client
	return g
}

// Name returns the provider name used in logs and metrics
func (g *Gemini) Name() string {
	return g.name
}

// Complete sends prompt as a single user turn
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	if g.initErr != nil {
		return "", fmt.Errorf("%s: %w", g.name, g.initErr)
	}

	cfg := &genai.GenerateContentConfig{}
	if g.opts.Temperature != 0 {
		temperature := float32(g.opts.Temperature)
		cfg.Temperature = &temperature
	}
	if g.opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.opts.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model, []*genai.Content{
		{Parts: []*genai.Part{{Text: prompt}}, Role: "user"},
	}, cfg)
	if err != nil {
		return "", fmt.Errorf("%s: generate: %w", g.name, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%s: %w", g.name, ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
