package audio

import (
	"context"
	"testing"
	"time"
)

func TestFrameQueueDrainReturnsAllInOrder(t *testing.T) {
	q := NewFrameQueue()
	for i := 0; i < 5; i++ {
		q.Push(frameOf(i*10, 10))
	}

	frames := q.Drain(context.Background(), 10*time.Millisecond)
	if len(frames) != 5 {
		t.Fatalf("Expected 5 frames, got %d", len(frames))
	}

	for i, f := range frames {
		if f.Samples[0] != int16(i*10) {
			t.Errorf("Frame %d out of order: first sample %d", i, f.Samples[0])
		}
	}

	if q.Len() != 0 {
		t.Errorf("Expected empty queue after drain, got %d", q.Len())
	}
}

func TestFrameQueueDrainTimesOut(t *testing.T) {
	q := NewFrameQueue()

	start := time.Now()
	frames := q.Drain(context.Background(), 30*time.Millisecond)
	elapsed := time.Since(start)

	if frames != nil {
		t.Errorf("Expected nil on timeout, got %d frames", len(frames))
	}

	if elapsed < 25*time.Millisecond {
		t.Errorf("Drain returned too early: %v", elapsed)
	}
}

func TestFrameQueueDrainWakesOnPush(t *testing.T) {
	q := NewFrameQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(frameOf(0, 4))
	}()

	frames := q.Drain(context.Background(), time.Second)
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
}

func TestFrameQueueDrainHonoursContext(t *testing.T) {
	q := NewFrameQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if frames := q.Drain(ctx, time.Second); frames != nil {
		t.Errorf("Expected nil for cancelled context, got %d frames", len(frames))
	}
}

func TestFrameQueueStats(t *testing.T) {
	q := NewFrameQueue()
	q.Push(frameOf(0, 100))
	q.Push(frameOf(0, 50))

	stats := q.GetStats()
	if stats.Depth != 2 || stats.MaxDepth != 2 {
		t.Errorf("Expected depth 2/2, got %d/%d", stats.Depth, stats.MaxDepth)
	}

	if stats.TotalFrames != 2 || stats.TotalSamples != 150 {
		t.Errorf("Expected 2 frames / 150 samples, got %d / %d", stats.TotalFrames, stats.TotalSamples)
	}

	q.Drain(context.Background(), time.Millisecond)
	if stats := q.GetStats(); stats.Depth != 0 || stats.MaxDepth != 2 {
		t.Errorf("Expected depth 0 with max 2, got %d/%d", stats.Depth, stats.MaxDepth)
	}
}
