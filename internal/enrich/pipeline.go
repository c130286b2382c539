package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ryanboscobanze/speech-companion/internal/convo"
	"github.com/ryanboscobanze/speech-companion/internal/llm"
	"github.com/ryanboscobanze/speech-companion/internal/metrics"
	"github.com/ryanboscobanze/speech-companion/internal/transcription"
)

// MinContextUtterances is the context size at which signals and suggestions are computed
const MinContextUtterances = 2

// Definer looks up a single word's definition
type Definer interface {
	Define(ctx context.Context, word string) (string, bool)
}

// Completer answers a prompt, typically through the LLM fallback chain
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// PipelineConfig contains enrichment parameters
type PipelineConfig struct {
	RarityThreshold float64
}

// Pipeline turns an utterance into a Result. It is safe for concurrent use;
// the only shared state is the conversation window.
type Pipeline struct {
	config    PipelineConfig
	analyzer  Analyzer
	window    *convo.Window
	completer Completer
	definer   Definer
	table     *FrequencyTable
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// Statistics
	processed         uint64
	ambiguous         uint64
	hesitant          uint64
	supportRequests   uint64
	completionErrors  uint64
	definitionErrors  uint64
	analysisErrors    uint64
	avgProcessingTime time.Duration

	mu sync.RWMutex
}

// PipelineStats represents pipeline statistics
type PipelineStats struct {
	Processed         uint64        `json:"processed"`
	Ambiguous         uint64        `json:"ambiguous"`
	Hesitant          uint64        `json:"hesitant"`
	SupportRequests   uint64        `json:"support_requests"`
	CompletionErrors  uint64        `json:"completion_errors"`
	DefinitionErrors  uint64        `json:"definition_errors"`
	AnalysisErrors    uint64        `json:"analysis_errors"`
	AvgProcessingTime time.Duration `json:"avg_processing_time"`
}

// NewPipeline creates an enrichment pipeline
func NewPipeline(config PipelineConfig, analyzer Analyzer, window *convo.Window, completer Completer,
	definer Definer, table *FrequencyTable, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	if config.RarityThreshold <= 0 {
		config.RarityThreshold = DefaultRarityThreshold
	}

	return &Pipeline{
		config:    config,
		analyzer:  analyzer,
		window:    window,
		completer: completer,
		definer:   definer,
		table:     table,
		metrics:   m,
		logger:    logger,
	}
}

// Process enriches one utterance. It never fails: every field that cannot be
// computed is filled with a placeholder.
func (p *Pipeline) Process(ctx context.Context, u transcription.Utterance) Result {
	start := time.Now()
	logger := p.logger.With(slog.String("chunk_id", u.ChunkID))

	result := Result{
		Text:      u.Text,
		Engine:    u.Engine,
		ChunkID:   u.ChunkID,
		SessionID: u.SessionID,
	}

	// Concepts and entities
	if p.analyzer != nil {
		analysis, err := p.analyzer.Analyze(u.Text)
		if err != nil {
			p.increment(&p.analysisErrors)
			logger.Warn("Concept extraction failed", slog.String("error", err.Error()))
		} else {
			result.Concepts = strings.Join(analysis.Concepts, ", ")
			result.Entities = strings.Join(analysis.Entities, ", ")
		}
	}

	// Context, signals and suggestions
	snapshot := p.window.Append(u.Text)
	if len(snapshot) >= MinContextUtterances {
		p.advise(ctx, convo.Join(snapshot), &result, logger)
	}

	// Difficult word definitions
	definitions, err := p.definitions(ctx, u.Text)
	if err != nil {
		p.increment(&p.definitionErrors)
		logger.Error("Failed to extract difficult word definitions", slog.String("error", err.Error()))
		result.Definitions = DefinitionError
	} else {
		result.Definitions = definitions
	}

	result.fillPlaceholders()
	result.CompletedAt = time.Now()

	elapsed := time.Since(start)
	p.recordProcessed(elapsed)
	p.metrics.RecordRow(elapsed.Seconds())

	logger.Debug("Utterance enriched",
		slog.Bool("ambiguous", result.Ambiguous),
		slog.Bool("hesitant", result.Hesitant),
		slog.Duration("elapsed", elapsed))

	return result
}

// advise runs the signal detectors over the joined context and asks the
// completer for a support response (when a signal fires) and a suggestion
func (p *Pipeline) advise(ctx context.Context, joined string, result *Result, logger *slog.Logger) {
	result.Ambiguous = DetectAmbiguity(joined)
	result.Hesitant = DetectHesitation(joined)

	if result.Ambiguous {
		p.increment(&p.ambiguous)
		p.metrics.RecordSignal("ambiguity")
	}
	if result.Hesitant {
		p.increment(&p.hesitant)
		p.metrics.RecordSignal("hesitation")
	}

	if p.completer == nil {
		return
	}

	if result.Ambiguous || result.Hesitant {
		p.increment(&p.supportRequests)
		result.Support = p.complete(ctx, SupportPrompt(joined, result.Ambiguous, result.Hesitant), "support", logger)
	}

	result.Suggestion = p.complete(ctx, SuggestionPrompt(joined), "suggestion", logger)
}

func (p *Pipeline) complete(ctx context.Context, prompt, purpose string, logger *slog.Logger) string {
	text, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		p.increment(&p.completionErrors)
		level := slog.LevelWarn
		if !errors.Is(err, llm.ErrAllProvidersFailed) {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "LLM request failed",
			slog.String("purpose", purpose),
			slog.String("error", err.Error()))
		return Placeholder
	}
	return text
}

// definitions extracts difficult words and formats their definitions. A
// panic anywhere in extraction is reported as an error.
func (p *Pipeline) definitions(ctx context.Context, text string) (defs string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during extraction: %v", r)
		}
	}()

	words, err := DifficultWords(text, p.table, p.config.RarityThreshold)
	if err != nil {
		return "", err
	}

	if len(words) == 0 || p.definer == nil {
		return "", nil
	}

	return FormatDefinitions(ctx, words, p.definer), nil
}

func (p *Pipeline) increment(counter *uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*counter++
}

func (p *Pipeline) recordProcessed(elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	if p.avgProcessingTime == 0 {
		p.avgProcessingTime = elapsed
	} else {
		p.avgProcessingTime = (p.avgProcessingTime + elapsed) / 2
	}
}

// GetStats returns current pipeline statistics
func (p *Pipeline) GetStats() PipelineStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PipelineStats{
		Processed:         p.processed,
		Ambiguous:         p.ambiguous,
		Hesitant:          p.hesitant,
		SupportRequests:   p.supportRequests,
		CompletionErrors:  p.completionErrors,
		DefinitionErrors:  p.definitionErrors,
		AnalysisErrors:    p.analysisErrors,
		AvgProcessingTime: p.avgProcessingTime,
	}
}
