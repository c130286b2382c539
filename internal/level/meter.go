package level

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Meter tracks the smoothed input energy of captured audio and flags blocks
// loud enough to contain speech
type Meter struct {
	threshold float32 // Level at or above which a block counts as voiced
	fullScale float64 // RMS treated as level 1.0
	smoothing float32 // Weight of the newest block in the running level

	// State
	level float32

	// Statistics
	totalBlocks   uint64
	voicedBlocks  uint64
	peak          float32
	lastProcessed time.Time

	mu sync.RWMutex
}

// Reading is the result of metering one block
type Reading struct {
	RMS      float64   `json:"rms"`
	Level    float32   `json:"level"` // Smoothed level, 0.0 - 1.0
	HasVoice bool      `json:"has_voice"`
	At       time.Time `json:"at"`
}

// Stats represents meter statistics
type Stats struct {
	TotalBlocks     uint64    `json:"total_blocks"`
	VoicedBlocks    uint64    `json:"voiced_blocks"`
	VoicePercentage float64   `json:"voice_percentage"`
	Level           float32   `json:"level"`
	Peak            float32   `json:"peak"`
	Threshold       float32   `json:"threshold"`
	LastProcessed   time.Time `json:"last_processed"`
}

// NewMeter creates a meter with the given voice threshold
func NewMeter(threshold float32) (*Meter, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %f", threshold)
	}

	return &Meter{
		threshold: threshold,
		fullScale: 10000.0,
		smoothing: 0.3,
	}, nil
}

// Process meters one block of samples
func (m *Meter) Process(samples []int16) Reading {
	rms := RMS(samples)

	normalized := float32(rms / m.fullScale)
	if normalized > 1 {
		normalized = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.totalBlocks == 0 {
		m.level = normalized
	} else {
		m.level = m.smoothing*normalized + (1-m.smoothing)*m.level
	}

	hasVoice := m.level >= m.threshold

	m.totalBlocks++
	if hasVoice {
		m.voicedBlocks++
	}
	if m.level > m.peak {
		m.peak = m.level
	}
	m.lastProcessed = time.Now()

	return Reading{
		RMS:      rms,
		Level:    m.level,
		HasVoice: hasVoice,
		At:       m.lastProcessed,
	}
}

// RMS returns the root mean square amplitude of samples
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var energy float64
	for _, s := range samples {
		energy += float64(s) * float64(s)
	}
	return math.Sqrt(energy / float64(len(samples)))
}

// Level returns the current smoothed level
func (m *Meter) Level() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level
}

// GetStats returns current meter statistics
func (m *Meter) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	voicePercentage := float64(0)
	if m.totalBlocks > 0 {
		voicePercentage = float64(m.voicedBlocks) / float64(m.totalBlocks) * 100
	}

	return Stats{
		TotalBlocks:     m.totalBlocks,
		VoicedBlocks:    m.voicedBlocks,
		VoicePercentage: voicePercentage,
		Level:           m.level,
		Peak:            m.peak,
		Threshold:       m.threshold,
		LastProcessed:   m.lastProcessed,
	}
}

// Reset clears level and statistics
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.level = 0
	m.peak = 0
	m.totalBlocks = 0
	m.voicedBlocks = 0
	m.lastProcessed = time.Time{}
}
