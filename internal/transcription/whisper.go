package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/ryanboscobanze/speech-companion/internal/audio"
)

// WhisperConfig contains local model configuration
type WhisperConfig struct {
	ModelPath string
	Language  string
	Threads   int
}

// Whisper transcribes audio locally with whisper.cpp. The model is loaded on
// first use and shared; each call gets its own inference context.
type Whisper struct {
	config WhisperConfig
	logger *slog.Logger

	once    sync.Once
	model   whisperlib.Model
	loadErr error
}

// NewWhisper creates a lazily loaded whisper.cpp transcriber
func NewWhisper(config WhisperConfig, logger *slog.Logger) *Whisper {
	if config.Language == "" {
		config.Language = "en"
	}

	return &Whisper{
		config: config,
		logger: logger.With(slog.String("engine", EngineWhisper)),
	}
}

func (w *Whisper) load() (whisperlib.Model, error) {
	w.once.Do(func() {
		if w.config.ModelPath == "" {
			w.loadErr = errors.New("whisper model path not configured")
			return
		}

		w.logger.Info("Loading whisper model", slog.String("path", w.config.ModelPath))

		model, err := whisperlib.New(w.config.ModelPath)
		if err != nil {
			w.loadErr = fmt.Errorf("failed to load whisper model %q: %w", w.config.ModelPath, err)
			return
		}
		w.model = model
	})
	return w.model, w.loadErr
}

// Transcribe runs local inference over a mono 16-bit WAV file
func (w *Whisper) Transcribe(ctx context.Context, wavPath string) (string, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}

	samples, _, err := audio.DecodeWAV(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode audio file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	model, err := w.load()
	if err != nil {
		return "", err
	}

	wctx, err := model.NewContext()
	if err != nil {
		return "", fmt.Errorf("failed to create whisper context: %w", err)
	}

	if err := wctx.SetLanguage(w.config.Language); err != nil {
		w.logger.Warn("Failed to set whisper language, using default",
			slog.String("language", w.config.Language),
			slog.String("error", err.Error()))
	}

	if w.config.Threads > 0 {
		wctx.SetThreads(uint(w.config.Threads))
	}

	if err := wctx.Process(audio.PCM16ToFloat32(samples), nil, nil, nil); err != nil {
		return "", fmt.Errorf("failed to process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}

// Close releases the model if it was loaded
func (w *Whisper) Close() error {
	if w.model != nil {
		return w.model.Close()
	}
	return nil
}
