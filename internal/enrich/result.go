package enrich

import (
	"strings"
	"time"
)

const (
	// Placeholder stands in for any field with nothing to show
	Placeholder = "—"

	// DefinitionError is shown when difficult words could not be extracted
	DefinitionError = "❌ Error extracting definitions"
)

// Result is one fully enriched utterance. No string field is ever empty.
type Result struct {
	Text        string    `json:"text"`
	Engine      string    `json:"engine"`
	Concepts    string    `json:"concepts"`
	Entities    string    `json:"entities"`
	Definitions string    `json:"definitions"`
	Suggestion  string    `json:"suggestion"`
	Support     string    `json:"support"`
	Ambiguous   bool      `json:"ambiguous"`
	Hesitant    bool      `json:"hesitant"`
	ChunkID     string    `json:"chunk_id"`
	SessionID   string    `json:"session_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// orPlaceholder returns s trimmed, or the placeholder when that is empty
func orPlaceholder(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return Placeholder
	}
	return s
}

// fillPlaceholders replaces every empty display field with the placeholder
func (r *Result) fillPlaceholders() {
	r.Text = orPlaceholder(r.Text)
	r.Engine = orPlaceholder(r.Engine)
	r.Concepts = orPlaceholder(r.Concepts)
	r.Entities = orPlaceholder(r.Entities)
	r.Definitions = orPlaceholder(r.Definitions)
	r.Suggestion = orPlaceholder(r.Suggestion)
	r.Support = orPlaceholder(r.Support)
	r.ChunkID = orPlaceholder(r.ChunkID)
	r.SessionID = orPlaceholder(r.SessionID)
}
