package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ryanboscobanze/speech-companion/internal/audio"
	"github.com/ryanboscobanze/speech-companion/internal/metrics"
)

// Handler receives every non-empty utterance, on the worker goroutine that produced it
type Handler func(ctx context.Context, u Utterance)

// DispatcherConfig contains dispatcher configuration
type DispatcherConfig struct {
	MaxConcurrent int    // 0 means one goroutine per chunk without a cap
	TempDir       string // "" uses the OS temp directory
}

// Dispatcher runs each chunk through transcription on its own goroutine
type Dispatcher struct {
	config  DispatcherConfig
	engines map[string]Transcriber
	handler Handler
	sem     *semaphore.Weighted
	metrics *metrics.Metrics
	logger  *slog.Logger

	wg sync.WaitGroup

	// Statistics
	dispatched   uint64
	delivered    uint64
	failed       uint64
	empty        uint64
	configErrors uint64
	panics       uint64
	inFlight     int

	mu sync.RWMutex
}

// DispatcherStats represents dispatcher statistics
type DispatcherStats struct {
	Dispatched   uint64 `json:"dispatched"`
	Delivered    uint64 `json:"delivered"`
	Failed       uint64 `json:"failed"`
	Empty        uint64 `json:"empty"`
	ConfigErrors uint64 `json:"config_errors"`
	Panics       uint64 `json:"panics"`
	InFlight     int    `json:"in_flight"`
}

// NewDispatcher creates a dispatcher over the given engines, keyed by engine name
func NewDispatcher(config DispatcherConfig, engines map[string]Transcriber, handler Handler, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	registered := make(map[string]Transcriber, len(engines))
	for name, t := range engines {
		registered[strings.ToLower(name)] = t
	}

	d := &Dispatcher{
		config:  config,
		engines: registered,
		handler: handler,
		metrics: m,
		logger:  logger,
	}

	if config.MaxConcurrent > 0 {
		d.sem = semaphore.NewWeighted(int64(config.MaxConcurrent))
	}

	return d
}

// Dispatch starts a worker for chunk and returns immediately. Workers run
// under ctx, so callers pass a context that outlives the recording session.
func (d *Dispatcher) Dispatch(ctx context.Context, chunk audio.Chunk, engine string) {
	d.mu.Lock()
	d.dispatched++
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.work(ctx, chunk, engine)
	}()
}

func (d *Dispatcher) work(ctx context.Context, chunk audio.Chunk, engine string) {
	logger := d.logger.With(
		slog.String("chunk_id", chunk.ID),
		slog.Uint64("chunk_seq", chunk.Seq),
		slog.String("engine", engine))

	defer func() {
		if r := recover(); r != nil {
			d.mu.Lock()
			d.panics++
			d.mu.Unlock()
			logger.Error("Chunk worker panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()

	if d.sem != nil {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			logger.Warn("Chunk abandoned before transcription", slog.String("error", err.Error()))
			d.recordFailure()
			return
		}
		defer d.sem.Release(1)
	}

	d.setInFlight(1)
	d.metrics.ChunkStarted()
	defer func() {
		d.setInFlight(-1)
		d.metrics.ChunkFinished()
	}()

	utterance, err := d.transcribe(ctx, chunk, engine)
	if err != nil {
		var cfgErr *ConfigurationError
		switch {
		case errors.As(err, &cfgErr):
			d.mu.Lock()
			d.configErrors++
			d.mu.Unlock()
			logger.Error("Chunk aborted", slog.String("error", err.Error()))
		case errors.Is(err, ErrEmptyTranscript):
			d.mu.Lock()
			d.empty++
			d.mu.Unlock()
			logger.Warn("Chunk produced no text")
		default:
			d.recordFailure()
			logger.Warn("Transcription failed", slog.String("error", err.Error()))
		}
		return
	}

	d.mu.Lock()
	d.delivered++
	d.mu.Unlock()

	logger.Debug("Chunk transcribed", slog.Int("text_length", len(utterance.Text)))

	if d.handler != nil {
		d.handler(ctx, utterance)
	}
}

// transcribe resolves the engine, writes the chunk to a temporary WAV file and
// runs the backend. Any failure yields an error and no utterance.
func (d *Dispatcher) transcribe(ctx context.Context, chunk audio.Chunk, engine string) (Utterance, error) {
	name, ok := CanonicalEngine(engine)
	if !ok {
		return Utterance{}, &ConfigurationError{Engine: engine}
	}

	transcriber, ok := d.engines[strings.ToLower(name)]
	if !ok {
		return Utterance{}, &ConfigurationError{Engine: engine}
	}

	path, err := audio.WriteTempWAV(d.config.TempDir, chunk)
	if err != nil {
		return Utterance{}, fmt.Errorf("failed to write chunk audio: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("Failed to remove chunk audio",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}()

	d.metrics.RecordTranscriptionRequest(name)
	start := time.Now()

	text, err := transcriber.Transcribe(ctx, path)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		d.metrics.RecordTranscriptionFailure(name, "error", elapsed)
		return Utterance{}, fmt.Errorf("%s: %w", name, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		d.metrics.RecordTranscriptionFailure(name, "empty", elapsed)
		return Utterance{}, ErrEmptyTranscript
	}

	d.metrics.RecordTranscriptionSuccess(name, elapsed)

	return Utterance{
		Text:          text,
		Engine:        name,
		ChunkID:       chunk.ID,
		ChunkSeq:      chunk.Seq,
		SessionID:     chunk.SessionID,
		TranscribedAt: time.Now(),
	}, nil
}

// Wait blocks until every dispatched worker has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) recordFailure() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failed++
}

func (d *Dispatcher) setInFlight(delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight += delta
}

// GetStats returns current dispatcher statistics
func (d *Dispatcher) GetStats() DispatcherStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return DispatcherStats{
		Dispatched:   d.dispatched,
		Delivered:    d.delivered,
		Failed:       d.failed,
		Empty:        d.empty,
		ConfigErrors: d.configErrors,
		Panics:       d.panics,
		InFlight:     d.inFlight,
	}
}
