package enrich

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"
)

//go:embed data/word_frequencies.txt
var wordFrequencies string

// FrequencyTable estimates how often an English word occurs, as a fraction of
// all words. Unknown words have frequency 0.
type FrequencyTable struct {
	freq map[string]float64
}

// DefaultFrequencyTable builds a table from the embedded Zipf-banded word list
func DefaultFrequencyTable() *FrequencyTable {
	table, err := parseZipfList(strings.NewReader(wordFrequencies))
	if err != nil {
		// The embedded list is static and always parses
		panic(fmt.Sprintf("embedded word list: %v", err))
	}
	return table
}

// LoadFrequencyTable reads a "word<TAB>frequency" file and layers it over the
// embedded list, overriding estimates for the words it names
func LoadFrequencyTable(path string) (*FrequencyTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frequency list: %w", err)
	}
	defer f.Close()

	table := DefaultFrequencyTable()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("frequency list line %d: expected word and frequency", lineNo)
		}

		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || value < 0 || value > 1 {
			return nil, fmt.Errorf("frequency list line %d: invalid frequency %q", lineNo, fields[1])
		}

		table.freq[strings.ToLower(fields[0])] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read frequency list: %w", err)
	}

	return table, nil
}

// ZipfToFrequency converts a Zipf value (log10 of occurrences per billion
// words) to a fraction of all words. Zipf 3.7 is about 5e-6.
func ZipfToFrequency(zipf float64) float64 {
	return math.Pow(10, zipf-9)
}

// parseZipfList reads lines of the form "<zipf><TAB><word> <word> ...". A word
// listed more than once keeps its highest value.
func parseZipfList(r io.Reader) (*FrequencyTable, error) {
	table := &FrequencyTable{freq: make(map[string]float64)}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		zipf, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || zipf <= 0 || zipf > 9 {
			return nil, fmt.Errorf("line %d: invalid zipf value %q", lineNo, fields[0])
		}
		value := ZipfToFrequency(zipf)

		for _, word := range fields[1:] {
			word = strings.ToLower(word)
			if !isAlpha(word) {
				continue
			}
			if value > table.freq[word] {
				table.freq[word] = value
			}
		}
	}

	return table, scanner.Err()
}

// Frequency returns the estimated frequency of word, also trying its common
// inflectional base forms
func (t *FrequencyTable) Frequency(word string) float64 {
	best := 0.0
	for _, form := range baseForms(strings.ToLower(word)) {
		if f := t.freq[form]; f > best {
			best = f
		}
	}
	return best
}

// Len returns the number of known words
func (t *FrequencyTable) Len() int {
	return len(t.freq)
}

// baseForms returns word followed by plausible stems with inflectional suffixes removed
func baseForms(word string) []string {
	forms := []string{word}
	add := func(s string) {
		if len(s) >= 2 {
			forms = append(forms, s)
		}
	}

	switch {
	case strings.HasSuffix(word, "ies"):
		add(strings.TrimSuffix(word, "ies") + "y")
	case strings.HasSuffix(word, "es"):
		add(strings.TrimSuffix(word, "es"))
		add(strings.TrimSuffix(word, "s"))
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		add(strings.TrimSuffix(word, "s"))
	}

	for _, suffix := range []string{"ing", "ed", "er", "est"} {
		if !strings.HasSuffix(word, suffix) {
			continue
		}
		stem := strings.TrimSuffix(word, suffix)
		add(stem)
		add(stem + "e")
		if n := len(stem); n >= 2 && stem[n-1] == stem[n-2] {
			add(stem[:n-1])
		}
		if strings.HasSuffix(stem, "i") {
			add(strings.TrimSuffix(stem, "i") + "y")
		}
	}

	if strings.HasSuffix(word, "ly") {
		add(strings.TrimSuffix(word, "ly"))
		if strings.HasSuffix(word, "ily") {
			add(strings.TrimSuffix(word, "ily") + "y")
		}
	}

	return forms
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
