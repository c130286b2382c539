package enrich

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultRarityThreshold marks words rarer than about five per million as difficult
const DefaultRarityThreshold = 5e-6

var (
	wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+(?:['’][\p{L}]+)?`)

	errNoFrequencyTable = errors.New("frequency table not loaded")
)

// DifficultWords returns the rare alphabetic words of text, lowercased and
// deduplicated in order of first appearance
func DifficultWords(text string, table *FrequencyTable, threshold float64) ([]string, error) {
	if table == nil {
		return nil, errNoFrequencyTable
	}

	seen := make(map[string]struct{})
	var words []string

	for _, token := range wordPattern.FindAllString(text, -1) {
		if !isAlpha(token) {
			continue
		}

		word := strings.ToLower(token)
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}

		if table.Frequency(word) < threshold {
			words = append(words, word)
		}
	}

	return words, nil
}

// FormatDefinitions looks up each word and joins "word: definition" pairs with
// a blank line. Words without a definition are skipped.
func FormatDefinitions(ctx context.Context, words []string, definer Definer) string {
	var found []string
	for _, word := range words {
		if ctx.Err() != nil {
			break
		}
		if definition, ok := definer.Define(ctx, word); ok {
			found = append(found, fmt.Sprintf("%s: %s", word, definition))
		}
	}
	return strings.Join(found, "\n\n")
}
