package level

import (
	"math"
	"testing"
)

func constantSamples(value int16, n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = value
	}
	return samples
}

func TestNewMeterValidation(t *testing.T) {
	tests := []struct {
		name      string
		threshold float32
		expectErr bool
	}{
		{name: "valid threshold", threshold: 0.1, expectErr: false},
		{name: "zero threshold", threshold: 0, expectErr: false},
		{name: "threshold too low", threshold: -0.1, expectErr: true},
		{name: "threshold too high", threshold: 1.1, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMeter(tt.threshold)
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestRMS(t *testing.T) {
	if RMS(nil) != 0 {
		t.Error("Expected 0 RMS for empty input")
	}

	if got := RMS(constantSamples(1000, 64)); math.Abs(got-1000) > 1e-9 {
		t.Errorf("Expected RMS 1000, got %f", got)
	}

	if got := RMS([]int16{3, -4, 3, -4}); math.Abs(got-math.Sqrt(12.5)) > 1e-9 {
		t.Errorf("Expected RMS %f, got %f", math.Sqrt(12.5), got)
	}
}

func TestMeterSilenceAndSpeech(t *testing.T) {
	meter, err := NewMeter(0.1)
	if err != nil {
		t.Fatalf("Failed to create meter: %v", err)
	}

	reading := meter.Process(constantSamples(0, 512))
	if reading.HasVoice {
		t.Error("Expected silence to not count as voice")
	}

	// Loud blocks drive the smoothed level over the threshold
	for i := 0; i < 10; i++ {
		reading = meter.Process(constantSamples(8000, 512))
	}

	if !reading.HasVoice {
		t.Errorf("Expected voice after loud blocks, level %f", reading.Level)
	}

	if reading.Level > 1 {
		t.Errorf("Level must not exceed 1, got %f", reading.Level)
	}

	stats := meter.GetStats()
	if stats.TotalBlocks != 11 {
		t.Errorf("Expected 11 blocks, got %d", stats.TotalBlocks)
	}

	if stats.VoicedBlocks == 0 || stats.VoicePercentage <= 0 {
		t.Errorf("Expected voiced blocks, got %+v", stats)
	}

	if stats.Peak < stats.Level {
		t.Errorf("Peak %f must be at least level %f", stats.Peak, stats.Level)
	}
}

func TestMeterClampsFullScale(t *testing.T) {
	meter, _ := NewMeter(0.5)

	reading := meter.Process(constantSamples(math.MaxInt16, 128))
	if reading.Level != 1 {
		t.Errorf("Expected level clamped to 1, got %f", reading.Level)
	}
}

func TestMeterReset(t *testing.T) {
	meter, _ := NewMeter(0.1)
	meter.Process(constantSamples(5000, 128))
	meter.Reset()

	stats := meter.GetStats()
	if stats.TotalBlocks != 0 || stats.Level != 0 || stats.Peak != 0 {
		t.Errorf("Expected cleared stats after reset, got %+v", stats)
	}
}
