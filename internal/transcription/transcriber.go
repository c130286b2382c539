package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Engine names as shown in the UI and accepted in configuration
const (
	EngineAssemblyAI = "AssemblyAI"
	EngineWhisper    = "Whisper"
)

// Engines lists the selectable engines in picker order
var Engines = []string{EngineAssemblyAI, EngineWhisper}

// ErrEmptyTranscript is returned when a backend completes but produces no text
var ErrEmptyTranscript = errors.New("transcription produced no text")

// ConfigurationError reports an engine name that no backend is registered for
type ConfigurationError struct {
	Engine string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unknown transcription engine %q", e.Engine)
}

// Transcriber converts a WAV file into text
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// Utterance is the text recognized from one chunk
type Utterance struct {
	Text          string    `json:"text"`
	Engine        string    `json:"engine"`
	ChunkID       string    `json:"chunk_id"`
	ChunkSeq      uint64    `json:"chunk_seq"`
	SessionID     string    `json:"session_id"`
	TranscribedAt time.Time `json:"transcribed_at"`
}

// CanonicalEngine maps a case-insensitive engine name to its display form.
// The second return value is false for unknown names.
func CanonicalEngine(name string) (string, bool) {
	for _, e := range Engines {
		if strings.EqualFold(strings.TrimSpace(name), e) {
			return e, true
		}
	}
	return "", false
}

// NextEngine returns the engine after current in picker order
func NextEngine(current string) string {
	for i, e := range Engines {
		if e == current {
			return Engines[(i+1)%len(Engines)]
		}
	}
	return Engines[0]
}
