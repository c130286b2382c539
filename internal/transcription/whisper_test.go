package transcription

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ryanboscobanze/speech-companion/internal/audio"
)

func writeWAV(t *testing.T, dir string) string {
	t.Helper()

	data, err := audio.EncodeWAV(make([]int16, 1600), 16000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	path := filepath.Join(dir, "chunk.wav")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write WAV: %v", err)
	}
	return path
}

func TestWhisperErrors(t *testing.T) {
	dir := t.TempDir()
	wavPath := writeWAV(t, dir)

	garbage := filepath.Join(dir, "garbage.wav")
	os.WriteFile(garbage, []byte("not audio"), 0o600)

	tests := []struct {
		name     string
		config   WhisperConfig
		path     string
		errorMsg string
	}{
		{
			name:     "missing audio file",
			config:   WhisperConfig{ModelPath: "model.bin"},
			path:     filepath.Join(dir, "missing.wav"),
			errorMsg: "failed to read audio file",
		},
		{
			name:     "invalid audio",
			config:   WhisperConfig{ModelPath: "model.bin"},
			path:     garbage,
			errorMsg: "failed to decode audio file",
		},
		{
			name:     "model path not configured",
			config:   WhisperConfig{},
			path:     wavPath,
			errorMsg: "whisper model path not configured",
		},
		{
			name:     "model file missing",
			config:   WhisperConfig{ModelPath: filepath.Join(dir, "ggml-missing.bin")},
			path:     wavPath,
			errorMsg: "failed to load whisper model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWhisper(tt.config, testLogger())
			defer w.Close()

			_, err := w.Transcribe(context.Background(), tt.path)
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestWhisperCancelledBeforeLoad(t *testing.T) {
	wavPath := writeWAV(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWhisper(WhisperConfig{}, testLogger())
	if _, err := w.Transcribe(ctx, wavPath); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestNextEngine(t *testing.T) {
	tests := []struct {
		current  string
		expected string
	}{
		{current: EngineAssemblyAI, expected: EngineWhisper},
		{current: EngineWhisper, expected: EngineAssemblyAI},
		{current: "unknown", expected: EngineAssemblyAI},
	}

	for _, tt := range tests {
		if got := NextEngine(tt.current); got != tt.expected {
			t.Errorf("NextEngine(%q): expected %q, got %q", tt.current, tt.expected, got)
		}
	}
}
