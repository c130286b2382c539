package sequencer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ryanboscobanze/speech-companion/internal/enrich"
)

// Status describes the recording state shown in the status line
type Status struct {
	Recording bool   `json:"recording"`
	Engine    string `json:"engine"`
	Device    string `json:"device"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

// Surface is the presentation layer. RenderRows always receives the complete
// newest-first list.
type Surface interface {
	RenderRows(rows []Row)
	SetStatus(status Status)
	SetControlsEnabled(enabled bool)
}

// Persister stores rendered rows
type Persister interface {
	Insert(ctx context.Context, row Row) error
}

const (
	defaultBufferSize = 64
	persistTimeout    = 2 * time.Second
)

// Sequencer accepts results from any goroutine and applies them to the display
// list from a single loop, in the order they arrive
type Sequencer struct {
	surface   Surface
	persister Persister
	logger    *slog.Logger

	results chan enrich.Result
	done    chan struct{}

	// closeMu is held shared by senders; Run takes it exclusively to mark
	// the sequencer closed before draining the buffer
	closeMu sync.RWMutex
	closed  bool

	rows []Row

	// Statistics
	submitted     uint64
	rendered      uint64
	dropped       uint64
	persistErrors uint64

	mu sync.RWMutex
}

// Stats represents sequencer statistics
type Stats struct {
	Submitted     uint64 `json:"submitted"`
	Rendered      uint64 `json:"rendered"`
	Dropped       uint64 `json:"dropped"`
	PersistErrors uint64 `json:"persist_errors"`
	Rows          int    `json:"rows"`
}

// New creates a sequencer. persister may be nil.
func New(surface Surface, persister Persister, logger *slog.Logger) *Sequencer {
	return &Sequencer{
		surface:   surface,
		persister: persister,
		logger:    logger,
		results:   make(chan enrich.Result, defaultBufferSize),
		done:      make(chan struct{}),
	}
}

// Submit hands a finished result to the loop. It blocks while the buffer is
// full and drops the result once the loop has stopped.
func (s *Sequencer) Submit(r enrich.Result) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	if s.closed {
		s.drop(1, r.ChunkID)
		return
	}

	select {
	case s.results <- r:
		s.mu.Lock()
		s.submitted++
		s.mu.Unlock()
	case <-s.done:
		s.drop(1, r.ChunkID)
	}
}

func (s *Sequencer) drop(n int, chunkID string) {
	s.mu.Lock()
	s.dropped += uint64(n)
	s.mu.Unlock()
	s.logger.Warn("Result dropped after shutdown",
		slog.String("chunk_id", chunkID),
		slog.Int("count", n))
}

// Run owns the display list until ctx is cancelled
func (s *Sequencer) Run(ctx context.Context) error {
	defer s.shutdown()

	s.logger.Info("Sequencer started")
	for {
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case r := <-s.results:
			s.apply(ctx, NewRow(r))
		}
	}
}

// shutdown releases blocked senders, waits for in-flight sends to settle and
// counts whatever is still buffered as dropped
func (s *Sequencer) shutdown() {
	close(s.done)

	s.closeMu.Lock()
	s.closed = true
	s.closeMu.Unlock()

	pending := 0
	lastID := ""
	for drained := false; !drained; {
		select {
		case r := <-s.results:
			pending++
			lastID = r.ChunkID
		default:
			drained = true
		}
	}

	if pending > 0 {
		s.drop(pending, lastID)
	}

	s.logger.Info("Sequencer stopped", slog.Int("dropped_on_shutdown", pending))
}

func (s *Sequencer) apply(ctx context.Context, row Row) {
	if s.persister != nil {
		persistCtx, cancel := context.WithTimeout(ctx, persistTimeout)
		if err := s.persister.Insert(persistCtx, row); err != nil {
			s.mu.Lock()
			s.persistErrors++
			s.mu.Unlock()
			s.logger.Warn("Failed to persist row",
				slog.String("chunk_id", row.ChunkID),
				slog.String("error", err.Error()))
		}
		cancel()
	}

	s.mu.Lock()
	s.rows = append([]Row{row}, s.rows...)
	s.rendered++
	snapshot := make([]Row, len(s.rows))
	copy(snapshot, s.rows)
	s.mu.Unlock()

	if s.surface != nil {
		s.surface.RenderRows(snapshot)
	}

	s.logger.Debug("Row rendered",
		slog.String("chunk_id", row.ChunkID),
		slog.String("engine", row.Engine),
		slog.Int("rows", len(snapshot)))
}

// Rows returns the current display list, newest first
func (s *Sequencer) Rows() []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]Row, len(s.rows))
	copy(rows, s.rows)
	return rows
}

// GetStats returns current sequencer statistics
func (s *Sequencer) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Submitted:     s.submitted,
		Rendered:      s.rendered,
		Dropped:       s.dropped,
		PersistErrors: s.persistErrors,
		Rows:          len(s.rows),
	}
}
