package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete assistant configuration
type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	Context       ContextConfig       `yaml:"context"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	LLM           LLMConfig           `yaml:"llm"`
	Dictionary    DictionaryConfig    `yaml:"dictionary"`
	Enrichment    EnrichmentConfig    `yaml:"enrichment"`
	Storage       StorageConfig       `yaml:"storage"`
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// AudioConfig contains microphone capture and windowing parameters
type AudioConfig struct {
	SampleRate      int `yaml:"sample_rate"`
	Channels        int `yaml:"channels"`
	BitDepth        int `yaml:"bit_depth"`
	FramesPerBuffer int `yaml:"frames_per_buffer"`
	ChunkSamples    int `yaml:"chunk_samples"`
	PollInterval    int `yaml:"poll_interval_ms"` // milliseconds
	DeviceID        int `yaml:"device_id"`        // -1 selects the system default input
}

// ContextConfig controls the rolling conversation window
type ContextConfig struct {
	InitialCapacity int `yaml:"initial_capacity"`
	MaxCapacity     int `yaml:"max_capacity"`
}

// TranscriptionConfig contains transcription engine configuration
type TranscriptionConfig struct {
	Engine              string           `yaml:"engine"`
	MaxConcurrentChunks int              `yaml:"max_concurrent_chunks"` // 0 means uncapped
	TempDir             string           `yaml:"temp_dir"`
	AssemblyAI          AssemblyAIConfig `yaml:"assemblyai"`
	Whisper             WhisperConfig    `yaml:"whisper"`
}

// AssemblyAIConfig contains the cloud transcription API settings
type AssemblyAIConfig struct {
	BaseURL        string `yaml:"base_url"`
	LanguageCode   string `yaml:"language_code"`
	RequestTimeout int    `yaml:"request_timeout"`  // seconds
	PollInterval   int    `yaml:"poll_interval_ms"` // milliseconds
	PollTimeout    int    `yaml:"poll_timeout"`     // seconds
	MaxRetries     int    `yaml:"max_retries"`
}

// WhisperConfig contains the local whisper.cpp model settings
type WhisperConfig struct {
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
	Threads   int    `yaml:"threads"`
}

// LLMConfig contains the suggestion fallback chain configuration
type LLMConfig struct {
	Timeout     int              `yaml:"timeout"` // seconds, per provider attempt
	Temperature float64          `yaml:"temperature"`
	MaxTokens   int              `yaml:"max_tokens"`
	Providers   []ProviderConfig `yaml:"providers"`
}

// ProviderConfig describes one entry of the fallback chain, in priority order
type ProviderConfig struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"` // "openai" or "gemini"
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// DictionaryConfig contains the definition lookup settings
type DictionaryConfig struct {
	BaseURL   string `yaml:"base_url"`
	Timeout   int    `yaml:"timeout"` // seconds
	CacheSize int    `yaml:"cache_size"`
	CacheTTL  int    `yaml:"cache_ttl"` // minutes
}

// EnrichmentConfig contains text analysis parameters
type EnrichmentConfig struct {
	RarityThreshold   float64 `yaml:"rarity_threshold"`
	FrequencyListPath string  `yaml:"frequency_list_path"`
	ConceptSimilarity float64 `yaml:"concept_similarity"`
}

// StorageConfig controls row history persistence
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HTTPConfig contains the monitoring server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:      16000,
			Channels:        1,
			BitDepth:        16,
			FramesPerBuffer: 1024,
			ChunkSamples:    160000,
			PollInterval:    250,
			DeviceID:        -1,
		},
		Context: ContextConfig{
			InitialCapacity: 2,
			MaxCapacity:     5,
		},
		Transcription: TranscriptionConfig{
			Engine:              "AssemblyAI",
			MaxConcurrentChunks: 4,
			AssemblyAI: AssemblyAIConfig{
				BaseURL:        "https://api.assemblyai.com",
				LanguageCode:   "en",
				RequestTimeout: 30,
				PollInterval:   1000,
				PollTimeout:    120,
				MaxRetries:     2,
			},
			Whisper: WhisperConfig{
				ModelPath: "models/ggml-tiny.en.bin",
				Language:  "en",
			},
		},
		LLM: LLMConfig{
			Timeout:     10,
			Temperature: 0.7,
			MaxTokens:   200,
			Providers: []ProviderConfig{
				{Name: "openrouter", Kind: "openai", BaseURL: "https://openrouter.ai/api/v1", Model: "mistralai/mistral-7b-instruct"},
				{Name: "groq", Kind: "openai", BaseURL: "https://api.groq.com/openai/v1", Model: "llama3-8b-8192"},
				{Name: "gemini", Kind: "gemini", Model: "gemini-1.5-flash"},
			},
		},
		Dictionary: DictionaryConfig{
			BaseURL:   "https://api.dictionaryapi.dev/api/v2/entries/en",
			Timeout:   5,
			CacheSize: 10000,
			CacheTTL:  60,
		},
		Enrichment: EnrichmentConfig{
			RarityThreshold:   5e-6,
			ConceptSimilarity: 0.95,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    "speech-companion.db",
		},
		HTTP: HTTPConfig{
			Port:    9464,
			Address: "127.0.0.1",
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "speech-companion.log",
		},
	}
}

// Load reads and parses the configuration file on top of Default.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, config.Validate()
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Context.Validate(); err != nil {
		return fmt.Errorf("context config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm config: %w", err)
	}

	if err := c.Dictionary.Validate(); err != nil {
		return fmt.Errorf("dictionary config: %w", err)
	}

	if err := c.Enrichment.Validate(); err != nil {
		return fmt.Errorf("enrichment config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.FramesPerBuffer < 64 {
		return fmt.Errorf("frames_per_buffer must be at least 64, got %d", a.FramesPerBuffer)
	}

	if a.ChunkSamples < a.FramesPerBuffer {
		return fmt.Errorf("chunk_samples (%d) must be at least frames_per_buffer (%d)",
			a.ChunkSamples, a.FramesPerBuffer)
	}

	if a.PollInterval < 10 {
		return fmt.Errorf("poll_interval_ms must be at least 10, got %d", a.PollInterval)
	}

	if a.DeviceID < -1 {
		return fmt.Errorf("device_id must be -1 (default) or a device index, got %d", a.DeviceID)
	}

	return nil
}

// Validate validates context window configuration
func (c *ContextConfig) Validate() error {
	if c.InitialCapacity < 1 {
		return fmt.Errorf("initial_capacity must be at least 1, got %d", c.InitialCapacity)
	}

	if c.MaxCapacity < c.InitialCapacity {
		return fmt.Errorf("max_capacity (%d) must be at least initial_capacity (%d)",
			c.MaxCapacity, c.InitialCapacity)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	validEngines := map[string]bool{"assemblyai": true, "whisper": true}
	if !validEngines[strings.ToLower(t.Engine)] {
		return fmt.Errorf("engine must be 'AssemblyAI' or 'Whisper', got '%s'", t.Engine)
	}

	if t.MaxConcurrentChunks < 0 {
		return fmt.Errorf("max_concurrent_chunks cannot be negative, got %d", t.MaxConcurrentChunks)
	}

	if t.AssemblyAI.BaseURL == "" {
		return fmt.Errorf("assemblyai base_url cannot be empty")
	}

	if t.AssemblyAI.RequestTimeout < 1 {
		return fmt.Errorf("assemblyai request_timeout must be at least 1 second, got %d", t.AssemblyAI.RequestTimeout)
	}

	if t.AssemblyAI.PollInterval < 1 {
		return fmt.Errorf("assemblyai poll_interval_ms must be positive, got %d", t.AssemblyAI.PollInterval)
	}

	if t.AssemblyAI.PollTimeout < 1 {
		return fmt.Errorf("assemblyai poll_timeout must be at least 1 second, got %d", t.AssemblyAI.PollTimeout)
	}

	if t.AssemblyAI.MaxRetries < 0 {
		return fmt.Errorf("assemblyai max_retries cannot be negative, got %d", t.AssemblyAI.MaxRetries)
	}

	if t.Whisper.Threads < 0 {
		return fmt.Errorf("whisper threads cannot be negative, got %d", t.Whisper.Threads)
	}

	return nil
}

// Validate validates the fallback chain configuration
func (l *LLMConfig) Validate() error {
	if l.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", l.Timeout)
	}

	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", l.Temperature)
	}

	if l.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be at least 1, got %d", l.MaxTokens)
	}

	if len(l.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}

	seen := make(map[string]bool)
	for i, p := range l.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider %d: name cannot be empty", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("provider %d: duplicate name '%s'", i, p.Name)
		}
		seen[p.Name] = true

		switch p.Kind {
		case "openai":
			if p.BaseURL == "" {
				return fmt.Errorf("provider %s: base_url cannot be empty for kind 'openai'", p.Name)
			}
		case "gemini":
		default:
			return fmt.Errorf("provider %s: kind must be 'openai' or 'gemini', got '%s'", p.Name, p.Kind)
		}

		if p.Model == "" {
			return fmt.Errorf("provider %s: model cannot be empty", p.Name)
		}
	}

	return nil
}

// Validate validates dictionary configuration
func (d *DictionaryConfig) Validate() error {
	if d.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	if d.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", d.Timeout)
	}

	if d.CacheSize < 0 {
		return fmt.Errorf("cache_size cannot be negative, got %d", d.CacheSize)
	}

	if d.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl cannot be negative, got %d", d.CacheTTL)
	}

	return nil
}

// Validate validates enrichment configuration
func (e *EnrichmentConfig) Validate() error {
	if e.RarityThreshold <= 0 || e.RarityThreshold >= 1 {
		return fmt.Errorf("rarity_threshold must be between 0 and 1 (exclusive), got %g", e.RarityThreshold)
	}

	if e.ConceptSimilarity <= 0 || e.ConceptSimilarity > 1 {
		return fmt.Errorf("concept_similarity must be in (0, 1], got %f", e.ConceptSimilarity)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.Enabled && s.Path == "" {
		return fmt.Errorf("path cannot be empty when storage is enabled")
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetPollInterval returns the windower poll interval as a time.Duration
func (a *AudioConfig) GetPollInterval() time.Duration {
	return time.Duration(a.PollInterval) * time.Millisecond
}

// GetChunkDuration returns the audio length of one chunk
func (a *AudioConfig) GetChunkDuration() time.Duration {
	return time.Duration(a.ChunkSamples) * time.Second / time.Duration(a.SampleRate)
}

// GetRequestTimeout returns the per-request HTTP timeout as a time.Duration
func (a *AssemblyAIConfig) GetRequestTimeout() time.Duration {
	return time.Duration(a.RequestTimeout) * time.Second
}

// GetPollInterval returns the transcript poll interval as a time.Duration
func (a *AssemblyAIConfig) GetPollInterval() time.Duration {
	return time.Duration(a.PollInterval) * time.Millisecond
}

// GetPollTimeout returns the transcript poll deadline as a time.Duration
func (a *AssemblyAIConfig) GetPollTimeout() time.Duration {
	return time.Duration(a.PollTimeout) * time.Second
}

// GetTimeoutDuration returns the per-provider timeout as a time.Duration
func (l *LLMConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(l.Timeout) * time.Second
}

// GetTimeoutDuration returns the dictionary request timeout as a time.Duration
func (d *DictionaryConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(d.Timeout) * time.Second
}

// GetCacheTTL returns the definition cache TTL as a time.Duration
func (d *DictionaryConfig) GetCacheTTL() time.Duration {
	return time.Duration(d.CacheTTL) * time.Minute
}
