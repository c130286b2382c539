package convo

import (
	"fmt"
	"strings"
	"sync"
)

// Window is a bounded, growing buffer of the most recent utterances.
// Capacity starts at the initial size, grows by one slot per append until it
// reaches the ceiling, and never shrinks.
type Window struct {
	items    []string
	capacity int
	ceiling  int

	// Statistics
	totalAppended uint64
	evicted       uint64

	mu sync.RWMutex
}

// WindowStats represents window statistics
type WindowStats struct {
	Len           int    `json:"len"`
	Capacity      int    `json:"capacity"`
	Ceiling       int    `json:"ceiling"`
	TotalAppended uint64 `json:"total_appended"`
	Evicted       uint64 `json:"evicted"`
}

// NewWindow creates a window with the given initial capacity and ceiling
func NewWindow(initial, ceiling int) (*Window, error) {
	if initial <= 0 {
		return nil, fmt.Errorf("initial capacity must be positive, got %d", initial)
	}
	if ceiling < initial {
		return nil, fmt.Errorf("ceiling %d must be at least initial capacity %d", ceiling, initial)
	}

	return &Window{
		items:    make([]string, 0, ceiling),
		capacity: initial,
		ceiling:  ceiling,
	}, nil
}

// Append grows the capacity if below the ceiling, adds text, evicts the oldest
// entries beyond capacity, and returns the resulting snapshot. All of it
// happens under one lock so concurrent appends never interleave.
func (w *Window) Append(text string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.capacity < w.ceiling {
		w.capacity++
	}

	w.items = append(w.items, text)
	w.totalAppended++

	if over := len(w.items) - w.capacity; over > 0 {
		w.items = append(w.items[:0], w.items[over:]...)
		w.evicted += uint64(over)
	}

	return w.snapshotLocked()
}

// Snapshot returns a copy of the current contents, oldest first
func (w *Window) Snapshot() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotLocked()
}

func (w *Window) snapshotLocked() []string {
	out := make([]string, len(w.items))
	copy(out, w.items)
	return out
}

// Len returns the number of utterances held
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.items)
}

// Cap returns the current capacity
func (w *Window) Cap() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.capacity
}

// GetStats returns current window statistics
func (w *Window) GetStats() WindowStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return WindowStats{
		Len:           len(w.items),
		Capacity:      w.capacity,
		Ceiling:       w.ceiling,
		TotalAppended: w.totalAppended,
		Evicted:       w.evicted,
	}
}

// Join renders a snapshot as one space-separated context string
func Join(snapshot []string) string {
	return strings.Join(snapshot, " ")
}
