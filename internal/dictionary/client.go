package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/ryanboscobanze/speech-companion/internal/metrics"
)

// ErrNotFound is returned when the dictionary has no entry for a word
var ErrNotFound = errors.New("no definition found")

// Config contains dictionary client configuration
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	CacheSize int64 // Maximum number of cached words
	CacheTTL  time.Duration
}

// Client looks up definitions from a dictionaryapi.dev compatible service
// and caches both hits and misses
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *ristretto.Cache[string, string]
	metrics    *metrics.Metrics
	logger     *slog.Logger

	// Statistics
	lookups   uint64
	cacheHits uint64
	found     uint64
	notFound  uint64
	failures  uint64

	mu sync.RWMutex
}

// Stats represents dictionary client statistics
type Stats struct {
	Lookups   uint64 `json:"lookups"`
	CacheHits uint64 `json:"cache_hits"`
	Found     uint64 `json:"found"`
	NotFound  uint64 `json:"not_found"`
	Failures  uint64 `json:"failures"`
}

type entry struct {
	Meanings []struct {
		Definitions []struct {
			Definition string `json:"definition"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// NewClient creates a dictionary client
func NewClient(config Config, m *metrics.Metrics, logger *slog.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	if config.CacheSize <= 0 {
		config.CacheSize = 10000
	}

	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Hour
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: config.CacheSize * 10,
		MaxCost:     config.CacheSize,
		BufferItems: 64,

		// Every entry costs 1, so MaxCost is an entry count
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create definition cache: %w", err)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      cache,
		metrics:    m,
		logger:     logger,
	}, nil
}

// Define returns the first definition of the first meaning of word.
// Lookup failures are logged and reported as not found.
func (c *Client) Define(ctx context.Context, word string) (string, bool) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return "", false
	}

	c.increment(&c.lookups)

	if definition, ok := c.cache.Get(word); ok {
		c.increment(&c.cacheHits)
		c.metrics.RecordDefinitionLookup("cache_hit")
		return definition, definition != ""
	}

	definition, err := c.fetch(ctx, word)
	switch {
	case err == nil:
		c.increment(&c.found)
		c.metrics.RecordDefinitionLookup("found")
		c.store(word, definition)
		return definition, true

	case errors.Is(err, ErrNotFound):
		c.increment(&c.notFound)
		c.metrics.RecordDefinitionLookup("not_found")
		c.logger.Warn("No definition found", slog.String("word", word))
		c.store(word, "")
		return "", false

	default:
		c.increment(&c.failures)
		c.metrics.RecordDefinitionLookup("error")
		c.logger.Error("Failed to fetch definition",
			slog.String("word", word),
			slog.String("error", err.Error()))
		return "", false
	}
}

func (c *Client) fetch(ctx context.Context, word string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.config.BaseURL+"/"+url.PathEscape(word), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error %d", resp.StatusCode)
	}

	var entries []entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if len(entries) == 0 || len(entries[0].Meanings) == 0 || len(entries[0].Meanings[0].Definitions) == 0 {
		return "", ErrNotFound
	}

	definition := strings.TrimSpace(entries[0].Meanings[0].Definitions[0].Definition)
	if definition == "" {
		return "", ErrNotFound
	}

	return definition, nil
}

// store caches a result; an empty definition records a known miss
func (c *Client) store(word, definition string) {
	c.cache.SetWithTTL(word, definition, 1, c.config.CacheTTL)
	c.cache.Wait()
}

func (c *Client) increment(counter *uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*counter++
}

// GetStats returns current client statistics
func (c *Client) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Lookups:   c.lookups,
		CacheHits: c.cacheHits,
		Found:     c.found,
		NotFound:  c.notFound,
		Failures:  c.failures,
	}
}

// Close releases the cache
func (c *Client) Close() {
	c.cache.Close()
}
