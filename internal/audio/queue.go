package audio

import (
	"context"
	"sync"
	"time"
)

// Frame is one block of mono PCM-16 samples delivered by the capture callback
type Frame struct {
	Samples    []int16   // PCM samples, owned by the frame
	CapturedAt time.Time // When the callback delivered the block
	Overflow   bool      // Input overflow was flagged for this block
}

// FrameQueue is an unbounded single-producer single-consumer hand-off between
// the capture callback and the windowing loop
type FrameQueue struct {
	frames []Frame
	notify chan struct{}

	// Statistics
	totalFrames  uint64
	totalSamples uint64
	maxDepth     int
	lastPush     time.Time

	mu sync.Mutex
}

// QueueStats represents queue statistics for monitoring
type QueueStats struct {
	Depth        int       `json:"depth"`
	MaxDepth     int       `json:"max_depth"`
	TotalFrames  uint64    `json:"total_frames"`
	TotalSamples uint64    `json:"total_samples"`
	LastPush     time.Time `json:"last_push"`
}

// NewFrameQueue creates an empty frame queue
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{
		frames: make([]Frame, 0, 64),
		notify: make(chan struct{}, 1),
	}
}

// Push appends a frame. It never blocks beyond the internal lock, so it is
// safe to call from the audio callback.
func (q *FrameQueue) Push(frame Frame) {
	q.mu.Lock()
	q.frames = append(q.frames, frame)
	q.totalFrames++
	q.totalSamples += uint64(len(frame.Samples))
	q.lastPush = frame.CapturedAt
	if len(q.frames) > q.maxDepth {
		q.maxDepth = len(q.frames)
	}
	q.mu.Unlock()

	// Wake the consumer without blocking if a wake-up is already pending
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Drain waits up to timeout for at least one frame and returns every queued
// frame in arrival order. It returns nil on timeout or when ctx is done.
func (q *FrameQueue) Drain(ctx context.Context, timeout time.Duration) []Frame {
	if frames := q.takeAll(); len(frames) > 0 {
		return frames
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			return q.takeAll()
		case <-q.notify:
			if frames := q.takeAll(); len(frames) > 0 {
				return frames
			}
		}
	}
}

// takeAll swaps out the pending frames
func (q *FrameQueue) takeAll() []Frame {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return nil
	}

	frames := q.frames
	q.frames = make([]Frame, 0, cap(frames))
	return frames
}

// Len returns the number of frames waiting to be drained
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// GetStats returns current queue statistics
func (q *FrameQueue) GetStats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return QueueStats{
		Depth:        len(q.frames),
		MaxDepth:     q.maxDepth,
		TotalFrames:  q.totalFrames,
		TotalSamples: q.totalSamples,
		LastPush:     q.lastPush,
	}
}
