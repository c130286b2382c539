package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultChunkSamples is 10 seconds of mono audio at 16 kHz
const DefaultChunkSamples = 160000

// Chunk is a fixed-size window of audio ready for transcription
type Chunk struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Seq        uint64    `json:"seq"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	SampleRate int       `json:"sample_rate"`
	Samples    []int16   `json:"-"`
}

// Duration returns the audio length of the chunk
func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// WindowerConfig contains configuration for the windowing loop
type WindowerConfig struct {
	SessionID    string
	SampleRate   int
	ChunkSamples int
	PollInterval time.Duration
}

// Windower accumulates frames from a FrameQueue and emits fixed-size chunks
type Windower struct {
	config WindowerConfig
	queue  *FrameQueue
	emit   func(Chunk)
	logger *slog.Logger

	// OnFrames, when set, observes every drained batch before windowing
	OnFrames func([]Frame)

	// Accumulator
	pending      []int16
	pendingStart time.Time
	seq          uint64

	// Statistics
	chunksEmitted    uint64
	framesConsumed   uint64
	overflowFrames   uint64
	samplesDiscarded uint64
	running          bool

	mu sync.RWMutex
}

// WindowerStats represents windower statistics
type WindowerStats struct {
	Running          bool   `json:"running"`
	ChunksEmitted    uint64 `json:"chunks_emitted"`
	FramesConsumed   uint64 `json:"frames_consumed"`
	OverflowFrames   uint64 `json:"overflow_frames"`
	PendingSamples   int    `json:"pending_samples"`
	SamplesDiscarded uint64 `json:"samples_discarded"`
}

// NewWindower creates a windower that calls emit once per full chunk
func NewWindower(config WindowerConfig, queue *FrameQueue, emit func(Chunk), logger *slog.Logger) *Windower {
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}

	if config.ChunkSamples <= 0 {
		config.ChunkSamples = DefaultChunkSamples
	}

	if config.PollInterval <= 0 {
		config.PollInterval = 250 * time.Millisecond
	}

	return &Windower{
		config:  config,
		queue:   queue,
		emit:    emit,
		logger:  logger,
		pending: make([]int16, 0, config.ChunkSamples),
	}
}

// Run drains the queue until ctx is cancelled. A partial chunk left when the
// loop stops is discarded.
func (w *Windower) Run(ctx context.Context) {
	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	w.logger.Debug("Windowing loop started",
		slog.String("session_id", w.config.SessionID),
		slog.Int("chunk_samples", w.config.ChunkSamples),
		slog.Duration("poll_interval", w.config.PollInterval),
	)

	for {
		if ctx.Err() != nil {
			w.stop()
			return
		}

		frames := w.queue.Drain(ctx, w.config.PollInterval)
		if len(frames) == 0 {
			continue
		}

		if w.OnFrames != nil {
			w.OnFrames(frames)
		}

		chunks := w.accept(frames)
		for i, chunk := range chunks {
			// Nothing leaves after stop, even from a batch drained just before it
			if ctx.Err() != nil {
				w.discard(chunks[i:])
				break
			}

			w.logger.Info("Audio chunk emitted",
				slog.String("session_id", chunk.SessionID),
				slog.String("chunk_id", chunk.ID),
				slog.Uint64("seq", chunk.Seq),
				slog.Float64("duration", chunk.Duration().Seconds()),
				slog.Int("samples", len(chunk.Samples)),
			)
			w.emit(chunk)
			w.recordEmitted()
		}
	}
}

func (w *Windower) recordEmitted() {
	w.mu.Lock()
	w.chunksEmitted++
	w.mu.Unlock()
}

// discard drops chunks that were cut but not emitted
func (w *Windower) discard(chunks []Chunk) {
	var samples int
	for _, c := range chunks {
		samples += len(c.Samples)
	}

	w.mu.Lock()
	w.samplesDiscarded += uint64(samples)
	w.mu.Unlock()

	w.logger.Debug("Dropped chunks cut during stop",
		slog.String("session_id", w.config.SessionID),
		slog.Int("chunks", len(chunks)),
		slog.Int("samples", samples),
	)
}

// accept appends frames to the accumulator and cuts every full chunk
func (w *Windower) accept(frames []Frame) []Chunk {
	w.mu.Lock()
	defer w.mu.Unlock()

	var chunks []Chunk
	for _, frame := range frames {
		w.framesConsumed++
		if frame.Overflow {
			w.overflowFrames++
			w.logger.Warn("Audio input overflow",
				slog.String("session_id", w.config.SessionID),
				slog.String("warning", StreamStatusWarning{Flags: "input overflow", At: frame.CapturedAt}.Error()),
			)
		}

		if len(w.pending) == 0 {
			w.pendingStart = frame.CapturedAt
		}
		w.pending = append(w.pending, frame.Samples...)

		for len(w.pending) >= w.config.ChunkSamples {
			chunks = append(chunks, w.cut(frame.CapturedAt))
		}
	}

	return chunks
}

// cut removes exactly ChunkSamples samples from the head of the accumulator
func (w *Windower) cut(now time.Time) Chunk {
	samples := make([]int16, w.config.ChunkSamples)
	copy(samples, w.pending[:w.config.ChunkSamples])

	remainder := len(w.pending) - w.config.ChunkSamples
	rest := make([]int16, remainder, w.config.ChunkSamples)
	copy(rest, w.pending[w.config.ChunkSamples:])
	w.pending = rest

	w.seq++

	chunk := Chunk{
		ID:         uuid.New().String(),
		SessionID:  w.config.SessionID,
		Seq:        w.seq,
		StartTime:  w.pendingStart,
		EndTime:    now,
		SampleRate: w.config.SampleRate,
		Samples:    samples,
	}

	// The remainder continues from the end of this chunk
	w.pendingStart = now
	return chunk
}

// stop discards the partial accumulator
func (w *Windower) stop() {
	w.mu.Lock()
	discarded := len(w.pending)
	w.samplesDiscarded += uint64(discarded)
	w.pending = w.pending[:0]
	w.running = false
	w.mu.Unlock()

	w.logger.Debug("Windowing loop stopped",
		slog.String("session_id", w.config.SessionID),
		slog.Int("discarded_samples", discarded),
	)
}

// GetStats returns current windower statistics
func (w *Windower) GetStats() WindowerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return WindowerStats{
		Running:          w.running,
		ChunksEmitted:    w.chunksEmitted,
		FramesConsumed:   w.framesConsumed,
		OverflowFrames:   w.overflowFrames,
		PendingSamples:   len(w.pending),
		SamplesDiscarded: w.samplesDiscarded,
	}
}
