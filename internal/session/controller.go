package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ryanboscobanze/speech-companion/internal/audio"
	"github.com/ryanboscobanze/speech-companion/internal/level"
	"github.com/ryanboscobanze/speech-companion/internal/metrics"
	"github.com/ryanboscobanze/speech-companion/internal/sequencer"
)

var (
	// ErrAlreadyRecording is returned by Start while a session is active
	ErrAlreadyRecording = errors.New("already recording")

	// ErrNotRecording is returned by Stop while idle
	ErrNotRecording = errors.New("not recording")
)

// Capturer opens and closes microphone streams
type Capturer interface {
	Start(deviceID int, queue *audio.FrameQueue) (*audio.Stream, error)
	Stop(stream *audio.Stream) error
}

// ChunkDispatcher hands a chunk to a transcription worker without blocking
type ChunkDispatcher interface {
	Dispatch(ctx context.Context, chunk audio.Chunk, engine string)
}

// Config contains windowing parameters applied to every session
type Config struct {
	SampleRate   int
	ChunkSamples int
	PollInterval time.Duration
}

// State is the single active recording session
type State struct {
	ID        string
	Engine    string
	DeviceID  int
	StartedAt time.Time

	queue    *audio.FrameQueue
	stream   *audio.Stream
	windower *audio.Windower
	cancel   context.CancelFunc
	done     chan struct{}
}

// Snapshot describes the controller for monitoring
type Snapshot struct {
	Recording  bool                `json:"recording"`
	SessionID  string              `json:"session_id,omitempty"`
	Engine     string              `json:"engine,omitempty"`
	DeviceID   int                 `json:"device_id"`
	StartedAt  time.Time           `json:"started_at,omitempty"`
	QueueDepth int                 `json:"queue_depth"`
	Windower   audio.WindowerStats `json:"windower"`
}

// ControllerStats represents controller statistics
type ControllerStats struct {
	SessionsStarted uint64 `json:"sessions_started"`
	SessionsFailed  uint64 `json:"sessions_failed"`
	ChunksEmitted   uint64 `json:"chunks_emitted"`
}

// Controller moves between Idle and Recording. Chunk workers run on the
// application context, so stopping a session never cancels them.
type Controller struct {
	appCtx     context.Context
	config     Config
	capturer   Capturer
	dispatcher ChunkDispatcher
	surface    sequencer.Surface
	meter      *level.Meter
	metrics    *metrics.Metrics
	logger     *slog.Logger

	state *State

	// Statistics
	sessionsStarted uint64
	sessionsFailed  uint64
	chunksEmitted   uint64

	mu      sync.Mutex
	statsMu sync.RWMutex
}

// NewController creates an idle controller. meter may be nil.
func NewController(appCtx context.Context, config Config, capturer Capturer, dispatcher ChunkDispatcher,
	surface sequencer.Surface, meter *level.Meter, m *metrics.Metrics, logger *slog.Logger) *Controller {
	return &Controller{
		appCtx:     appCtx,
		config:     config,
		capturer:   capturer,
		dispatcher: dispatcher,
		surface:    surface,
		meter:      meter,
		metrics:    m,
		logger:     logger,
	}
}

// Toggle starts a session when idle and stops the active one otherwise
func (c *Controller) Toggle(engine string, deviceID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != nil {
		return c.stop()
	}
	return c.start(engine, deviceID)
}

// Start opens the input device and begins windowing. Engine and device stay
// fixed until Stop.
func (c *Controller) Start(engine string, deviceID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start(engine, deviceID)
}

func (c *Controller) start(engine string, deviceID int) error {
	if c.state != nil {
		return ErrAlreadyRecording
	}

	c.setControlsEnabled(false)
	defer c.setControlsEnabled(true)

	queue := audio.NewFrameQueue()
	stream, err := c.capturer.Start(deviceID, queue)
	if err != nil {
		c.statsMu.Lock()
		c.sessionsFailed++
		c.statsMu.Unlock()

		c.logger.Error("Failed to start recording",
			slog.Int("device_id", deviceID),
			slog.String("error", err.Error()))

		c.setStatus(sequencer.Status{
			Recording: false,
			Engine:    engine,
			Device:    deviceLabel(deviceID),
			Message:   "Idle",
			Error:     err.Error(),
		})
		return fmt.Errorf("failed to start capture: %w", err)
	}

	state := &State{
		ID:        uuid.New().String(),
		Engine:    engine,
		DeviceID:  deviceID,
		StartedAt: time.Now(),
		queue:     queue,
		stream:    stream,
		done:      make(chan struct{}),
	}

	state.windower = audio.NewWindower(audio.WindowerConfig{
		SessionID:    state.ID,
		SampleRate:   c.config.SampleRate,
		ChunkSamples: c.config.ChunkSamples,
		PollInterval: c.config.PollInterval,
	}, queue, func(chunk audio.Chunk) {
		c.statsMu.Lock()
		c.chunksEmitted++
		c.statsMu.Unlock()

		c.metrics.RecordChunkEmitted(chunk.Duration().Seconds())
		c.dispatcher.Dispatch(c.appCtx, chunk, engine)
	}, c.logger)
	state.windower.OnFrames = c.observeFrames(queue)

	sessionCtx, cancel := context.WithCancel(c.appCtx)
	state.cancel = cancel

	go func() {
		defer close(state.done)
		state.windower.Run(sessionCtx)
	}()

	c.state = state

	c.statsMu.Lock()
	c.sessionsStarted++
	c.statsMu.Unlock()
	c.metrics.RecordSessionStarted()

	c.logger.Info("Recording started",
		slog.String("session_id", state.ID),
		slog.String("engine", engine),
		slog.Int("device_id", deviceID))

	c.setStatus(sequencer.Status{
		Recording: true,
		Engine:    engine,
		Device:    deviceLabel(deviceID),
		Message:   "Recording",
	})
	return nil
}

// Stop ends the session. Chunks already dispatched keep running and still
// produce rows; the partial window is discarded.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop()
}

func (c *Controller) stop() error {
	state := c.state
	if state == nil {
		return ErrNotRecording
	}

	c.setControlsEnabled(false)
	defer c.setControlsEnabled(true)

	state.cancel()

	var stopErr error
	if err := c.capturer.Stop(state.stream); err != nil {
		stopErr = fmt.Errorf("failed to stop capture: %w", err)
		c.logger.Warn("Error stopping capture",
			slog.String("session_id", state.ID),
			slog.String("error", err.Error()))
	}

	<-state.done
	c.state = nil

	stats := state.windower.GetStats()
	duration := time.Since(state.StartedAt)
	c.metrics.RecordSessionStopped(duration.Seconds(), stats.SamplesDiscarded)

	c.logger.Info("Recording stopped",
		slog.String("session_id", state.ID),
		slog.Duration("duration", duration),
		slog.Uint64("chunks_emitted", stats.ChunksEmitted),
		slog.Uint64("frames_consumed", stats.FramesConsumed),
		slog.Uint64("samples_discarded", stats.SamplesDiscarded))

	c.setStatus(sequencer.Status{
		Recording: false,
		Engine:    state.Engine,
		Device:    deviceLabel(state.DeviceID),
		Message:   "Idle",
	})
	return stopErr
}

// Recording reports whether a session is active
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != nil
}

// Snapshot returns the current session state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == nil {
		return Snapshot{DeviceID: -1}
	}

	return Snapshot{
		Recording:  true,
		SessionID:  c.state.ID,
		Engine:     c.state.Engine,
		DeviceID:   c.state.DeviceID,
		StartedAt:  c.state.StartedAt,
		QueueDepth: c.state.queue.Len(),
		Windower:   c.state.windower.GetStats(),
	}
}

// GetStats returns current controller statistics
func (c *Controller) GetStats() ControllerStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()

	return ControllerStats{
		SessionsStarted: c.sessionsStarted,
		SessionsFailed:  c.sessionsFailed,
		ChunksEmitted:   c.chunksEmitted,
	}
}

// observeFrames feeds drained frames to the level meter and metrics
func (c *Controller) observeFrames(queue *audio.FrameQueue) func([]audio.Frame) {
	return func(frames []audio.Frame) {
		for _, frame := range frames {
			c.metrics.RecordFrame(frame.Overflow)
			if c.meter != nil {
				c.meter.Process(frame.Samples)
			}
		}
		if c.meter != nil {
			c.metrics.SetInputLevel(c.meter.Level())
		}
		c.metrics.SetQueueDepth(queue.Len())
	}
}

func (c *Controller) setStatus(status sequencer.Status) {
	if c.surface != nil {
		c.surface.SetStatus(status)
	}
}

func (c *Controller) setControlsEnabled(enabled bool) {
	if c.surface != nil {
		c.surface.SetControlsEnabled(enabled)
	}
}

func deviceLabel(deviceID int) string {
	if deviceID < 0 {
		return "default"
	}
	return fmt.Sprintf("%d", deviceID)
}
