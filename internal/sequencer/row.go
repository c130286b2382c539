package sequencer

import (
	"time"

	"github.com/ryanboscobanze/speech-companion/internal/enrich"
)

// Row is one line of the results table
type Row struct {
	Speech      string    `json:"speech"`
	Concepts    string    `json:"concepts"`
	Definitions string    `json:"definitions"`
	Suggestion  string    `json:"suggestion"`
	Support     string    `json:"support"`
	Ambiguous   bool      `json:"ambiguous"`
	Hesitant    bool      `json:"hesitant"`
	Engine      string    `json:"engine"`
	ChunkID     string    `json:"chunk_id"`
	SessionID   string    `json:"session_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewRow builds a display row from an enrichment result. Entities are shown
// after the concepts.
func NewRow(r enrich.Result) Row {
	concepts := r.Concepts
	if r.Entities != "" && r.Entities != enrich.Placeholder {
		if concepts == "" || concepts == enrich.Placeholder {
			concepts = r.Entities
		} else {
			concepts = concepts + ", " + r.Entities
		}
	}

	return Row{
		Speech:      r.Text,
		Concepts:    concepts,
		Definitions: r.Definitions,
		Suggestion:  r.Suggestion,
		Support:     r.Support,
		Ambiguous:   r.Ambiguous,
		Hesitant:    r.Hesitant,
		Engine:      r.Engine,
		ChunkID:     r.ChunkID,
		SessionID:   r.SessionID,
		CompletedAt: r.CompletedAt,
	}
}
