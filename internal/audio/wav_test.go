package audio

import (
	"encoding/binary"
	"math"
	"os"
	"testing"
	"time"
)

func TestEncodeWAV(t *testing.T) {
	// 440Hz sine wave for 0.1 seconds at 16kHz
	sampleRate := 16000
	numSamples := sampleRate / 10
	samples := make([]int16, numSamples)

	for i := 0; i < numSamples; i++ {
		ts := float64(i) / float64(sampleRate)
		samples[i] = int16(16383.0 * math.Sin(2*math.Pi*440.0*ts))
	}

	wavData, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	expectedSize := 44 + len(samples)*2
	if len(wavData) != expectedSize {
		t.Errorf("Expected WAV size %d, got %d", expectedSize, len(wavData))
	}

	if string(wavData[0:4]) != "RIFF" || string(wavData[8:12]) != "WAVE" {
		t.Errorf("Expected RIFF/WAVE header, got %q/%q", wavData[0:4], wavData[8:12])
	}
}

func TestDecodeWAV(t *testing.T) {
	originalSamples := []int16{100, -200, 300, -400, 500}

	wavData, err := EncodeWAV(originalSamples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, rate, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}

	if len(decoded) != len(originalSamples) {
		t.Fatalf("Expected %d samples, got %d", len(originalSamples), len(decoded))
	}

	for i := range originalSamples {
		if decoded[i] != originalSamples[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, originalSamples[i], decoded[i])
		}
	}
}

func TestEncodeWAVErrors(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("Expected error for empty samples")
	}

	if _, err := EncodeWAV([]int16{1}, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "too short", data: []byte("RIFF")},
		{name: "not riff", data: make([]byte, 64)},
		{name: "truncated data", data: truncatedWAV()},
		{name: "stereo", data: stereoWAV()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

// truncatedWAV declares more samples than it carries
func truncatedWAV() []byte {
	data, _ := EncodeWAV([]int16{1, 2, 3, 4}, 16000)
	return data[:len(data)-4]
}

func stereoWAV() []byte {
	data, _ := EncodeWAV([]int16{1, 2, 3, 4}, 16000)
	binary.LittleEndian.PutUint16(data[22:24], 2)
	return data
}

func TestWriteTempWAVEmptyChunk(t *testing.T) {
	dir := t.TempDir()

	if _, err := WriteTempWAV(dir, Chunk{SampleRate: 16000}); err == nil {
		t.Fatal("Expected error for empty chunk")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected failed write to leave no files, found %d", len(entries))
	}
}

func TestWriteTempWAV(t *testing.T) {
	dir := t.TempDir()
	chunk := Chunk{
		ID:         "test",
		SampleRate: 16000,
		Samples:    []int16{1, 2, 3, 4},
		StartTime:  time.Now(),
	}

	path, err := WriteTempWAV(dir, chunk)
	if err != nil {
		t.Fatalf("WriteTempWAV failed: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read temp WAV: %v", err)
	}

	samples, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("Temp WAV does not decode: %v", err)
	}

	if rate != 16000 || len(samples) != 4 {
		t.Errorf("Expected 4 samples at 16000 Hz, got %d at %d", len(samples), rate)
	}
}

func TestPCM16ToFloat32(t *testing.T) {
	out := PCM16ToFloat32([]int16{0, 16384, -32768})

	expected := []float32{0, 0.5, -1}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("Index %d: expected %f, got %f", i, expected[i], out[i])
		}
	}
}
