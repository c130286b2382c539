package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/ryanboscobanze/speech-companion/internal/convo"
	"github.com/ryanboscobanze/speech-companion/internal/llm"
	"github.com/ryanboscobanze/speech-companion/internal/transcription"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeAnalyzer struct {
	analysis Analysis
	err      error
}

func (f fakeAnalyzer) Analyze(string) (Analysis, error) {
	return f.analysis, f.err
}

// recordingCompleter answers support and suggestion prompts and remembers them
type recordingCompleter struct {
	support    string
	suggestion string
	err        error

	mu      sync.Mutex
	prompts []string
}

func (c *recordingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()

	if c.err != nil {
		return "", c.err
	}
	if strings.Contains(prompt, "Respond using clean markdown bullet points only.") {
		return c.suggestion, nil
	}
	return c.support, nil
}

func (c *recordingCompleter) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

func newTestPipeline(t *testing.T, analyzer Analyzer, completer Completer, definer Definer, table *FrequencyTable) *Pipeline {
	t.Helper()

	window, err := convo.NewWindow(2, 5)
	if err != nil {
		t.Fatalf("Failed to create window: %v", err)
	}
	return NewPipeline(PipelineConfig{}, analyzer, window, completer, definer, table, nil, testLogger())
}

func utterance(text string, seq uint64) transcription.Utterance {
	return transcription.Utterance{
		Text:      text,
		Engine:    transcription.EngineWhisper,
		ChunkID:   fmt.Sprintf("chunk-%d", seq),
		ChunkSeq:  seq,
		SessionID: "session-1",
	}
}

func assertNoEmptyFields(t *testing.T, r Result) {
	t.Helper()

	fields := map[string]string{
		"text":        r.Text,
		"engine":      r.Engine,
		"concepts":    r.Concepts,
		"entities":    r.Entities,
		"definitions": r.Definitions,
		"suggestion":  r.Suggestion,
		"support":     r.Support,
		"chunk_id":    r.ChunkID,
		"session_id":  r.SessionID,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			t.Errorf("Expected %s to be non-empty", name)
		}
	}
}

func TestPipelineFirstUtteranceHasNoSuggestion(t *testing.T) {
	completer := &recordingCompleter{support: "- support", suggestion: "- suggestion"}
	p := newTestPipeline(t, fakeAnalyzer{}, completer, mapDefiner{}, DefaultFrequencyTable())

	result := p.Process(context.Background(), utterance("we deployed on friday", 1))

	assertNoEmptyFields(t, result)
	if result.Suggestion != Placeholder {
		t.Errorf("Expected suggestion placeholder with one utterance of context, got %q", result.Suggestion)
	}
	if result.Support != Placeholder {
		t.Errorf("Expected support placeholder, got %q", result.Support)
	}
	if len(completer.Prompts()) != 0 {
		t.Errorf("Expected no LLM calls, got %d", len(completer.Prompts()))
	}
	if result.Text != "we deployed on friday" {
		t.Errorf("Expected text preserved, got %q", result.Text)
	}
}

func TestPipelineAmbiguityInvokesSupport(t *testing.T) {
	completer := &recordingCompleter{support: "- gyroscope\n- spinning top", suggestion: "- What does it measure?"}
	p := newTestPipeline(t, fakeAnalyzer{}, completer, mapDefiner{}, DefaultFrequencyTable())

	first := p.Process(context.Background(), utterance("I forgot the word for it", 1))
	if len(completer.Prompts()) != 0 {
		t.Fatalf("Expected no LLM calls for the first utterance, got %d", len(completer.Prompts()))
	}
	assertNoEmptyFields(t, first)

	second := p.Process(context.Background(), utterance("the thing that spins", 2))
	assertNoEmptyFields(t, second)

	if !second.Ambiguous {
		t.Error("Expected ambiguity detected over the joined context")
	}
	if second.Hesitant {
		t.Error("Expected no hesitation")
	}
	if second.Support != "- gyroscope\n- spinning top" {
		t.Errorf("Expected support response, got %q", second.Support)
	}
	if second.Suggestion != "- What does it measure?" {
		t.Errorf("Expected suggestion response, got %q", second.Suggestion)
	}

	prompts := completer.Prompts()
	if len(prompts) != 2 {
		t.Fatalf("Expected 2 LLM calls, got %d", len(prompts))
	}
	joined := "I forgot the word for it the thing that spins"
	expectedSupport := SupportPrompt(joined, true, false)
	if prompts[0] != expectedSupport {
		t.Errorf("Expected ambiguity support prompt, got:\n%s", prompts[0])
	}
	if prompts[1] != SuggestionPrompt(joined) {
		t.Errorf("Expected suggestion prompt, got:\n%s", prompts[1])
	}

	stats := p.GetStats()
	if stats.Processed != 2 {
		t.Errorf("Expected 2 processed, got %d", stats.Processed)
	}
	if stats.Ambiguous != 1 || stats.SupportRequests != 1 {
		t.Errorf("Expected 1 ambiguous and 1 support request, got %d and %d", stats.Ambiguous, stats.SupportRequests)
	}
}

func TestPipelineNoSignalSkipsSupport(t *testing.T) {
	completer := &recordingCompleter{support: "- support", suggestion: "- suggestion"}
	p := newTestPipeline(t, fakeAnalyzer{}, completer, mapDefiner{}, DefaultFrequencyTable())

	p.Process(context.Background(), utterance("the build finished early", 1))
	result := p.Process(context.Background(), utterance("then we shipped the release", 2))

	if result.Support != Placeholder {
		t.Errorf("Expected support placeholder without signals, got %q", result.Support)
	}
	if result.Suggestion != "- suggestion" {
		t.Errorf("Expected suggestion, got %q", result.Suggestion)
	}
	if len(completer.Prompts()) != 1 {
		t.Errorf("Expected only the suggestion call, got %d", len(completer.Prompts()))
	}
}

func TestPipelineCompletionFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "chain exhausted", err: fmt.Errorf("%w: %w", llm.ErrAllProvidersFailed, errors.New("boom"))},
		{name: "unexpected error", err: errors.New("unexpected")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &recordingCompleter{err: tt.err}
			p := newTestPipeline(t, fakeAnalyzer{}, completer, mapDefiner{}, DefaultFrequencyTable())

			p.Process(context.Background(), utterance("um I forgot the word for it", 1))
			result := p.Process(context.Background(), utterance("uh, you know, the thing that spins", 2))

			assertNoEmptyFields(t, result)
			if result.Suggestion != Placeholder {
				t.Errorf("Expected suggestion placeholder, got %q", result.Suggestion)
			}
			if result.Support != Placeholder {
				t.Errorf("Expected support placeholder, got %q", result.Support)
			}
			if got := p.GetStats().CompletionErrors; got != 2 {
				t.Errorf("Expected 2 completion errors, got %d", got)
			}
		})
	}
}

func TestPipelineDefinitions(t *testing.T) {
	definer := mapDefiner{
		"gyroscope":  "A spinning wheel mounted so its axis keeps direction.",
		"precession": "A slow change in the orientation of a rotating axis.",
	}
	p := newTestPipeline(t, fakeAnalyzer{}, nil, definer, DefaultFrequencyTable())

	result := p.Process(context.Background(), utterance("The gyroscope showed precession", 1))

	expected := "gyroscope: A spinning wheel mounted so its axis keeps direction.\n\n" +
		"precession: A slow change in the orientation of a rotating axis."
	if result.Definitions != expected {
		t.Errorf("Expected %q, got %q", expected, result.Definitions)
	}

	plain := p.Process(context.Background(), utterance("the door is open", 2))
	if plain.Definitions != Placeholder {
		t.Errorf("Expected definitions placeholder for common words, got %q", plain.Definitions)
	}
}

func TestPipelineDefinitionError(t *testing.T) {
	p := newTestPipeline(t, fakeAnalyzer{}, nil, mapDefiner{}, nil)

	result := p.Process(context.Background(), utterance("The gyroscope showed precession", 1))

	if result.Definitions != DefinitionError {
		t.Errorf("Expected %q, got %q", DefinitionError, result.Definitions)
	}
	assertNoEmptyFields(t, result)
	if got := p.GetStats().DefinitionErrors; got != 1 {
		t.Errorf("Expected 1 definition error, got %d", got)
	}
}

func TestPipelineAnalysis(t *testing.T) {
	tests := []struct {
		name     string
		analyzer Analyzer
		concepts string
		entities string
	}{
		{
			name:     "concepts and entities joined",
			analyzer: fakeAnalyzer{analysis: Analysis{Concepts: []string{"gyroscope", "museum"}, Entities: []string{"Paris"}}},
			concepts: "gyroscope, museum",
			entities: "Paris",
		},
		{
			name:     "analyzer error",
			analyzer: fakeAnalyzer{err: errors.New("tagger failed")},
			concepts: Placeholder,
			entities: Placeholder,
		},
		{
			name:     "nothing found",
			analyzer: fakeAnalyzer{},
			concepts: Placeholder,
			entities: Placeholder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, tt.analyzer, nil, mapDefiner{}, DefaultFrequencyTable())
			result := p.Process(context.Background(), utterance("the museum in paris", 1))

			if result.Concepts != tt.concepts {
				t.Errorf("Expected concepts %q, got %q", tt.concepts, result.Concepts)
			}
			if result.Entities != tt.entities {
				t.Errorf("Expected entities %q, got %q", tt.entities, result.Entities)
			}
		})
	}
}

func TestPipelineConcurrentProcess(t *testing.T) {
	completer := &recordingCompleter{support: "- s", suggestion: "- q"}
	p := newTestPipeline(t, fakeAnalyzer{}, completer, mapDefiner{}, DefaultFrequencyTable())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(seq int) {
			defer wg.Done()
			result := p.Process(context.Background(), utterance(fmt.Sprintf("utterance number %d", seq), uint64(seq)))
			assertNoEmptyFields(t, result)
		}(i)
	}
	wg.Wait()

	if got := p.GetStats().Processed; got != 20 {
		t.Errorf("Expected 20 processed, got %d", got)
	}
}
