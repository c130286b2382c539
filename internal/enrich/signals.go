package enrich

import (
	"regexp"
	"strings"
)

// Phrases that suggest the speaker is searching for a term
var ambiguityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bi (?:don['’]t|can['’]t|cannot)?\s?(?:remember|get|know|recall)\b.*\b(?:name|term|word|thing|what)\b`),
	regexp.MustCompile(`\bwhat(?:['’]?s| is) it called\b`),
	regexp.MustCompile(`\bnot sure\b`),
	regexp.MustCompile(`\bi['’]m drawing a blank\b`),
	regexp.MustCompile(`\bthe word for it\b`),
	regexp.MustCompile(`\btip of (?:my|the) tongue\b`),
	regexp.MustCompile(`\bit['’]?s (?:kind of|something|sort of) like\b`),
	regexp.MustCompile(`\bthe thing that\b`),
	regexp.MustCompile(`\bsimilar to\b`),
}

// Fillers and pauses; each pattern counts at most once
var hesitationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\buh+\b`),
	regexp.MustCompile(`\bum+\b`),
	regexp.MustCompile(`\ber+\b`),
	regexp.MustCompile(`\blike\b`),
	regexp.MustCompile(`\byou know\b`),
	regexp.MustCompile(`\bwell,`),
	regexp.MustCompile(`\bkind of\b`),
	regexp.MustCompile(`\bso like\b`),
	regexp.MustCompile(`\.\.\.|…`),
}

// minAmbiguityWords is the shortest text that can be flagged as ambiguous
const minAmbiguityWords = 4

// DetectAmbiguity reports whether text has at least four words and matches
// any recall-difficulty phrase
func DetectAmbiguity(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if len(strings.Fields(text)) < minAmbiguityWords {
		return false
	}

	for _, p := range ambiguityPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// HesitationSignals counts the distinct filler patterns present in text
func HesitationSignals(text string) int {
	text = strings.ToLower(text)

	hits := 0
	for _, p := range hesitationPatterns {
		if p.MatchString(text) {
			hits++
		}
	}
	return hits
}

// DetectHesitation reports whether at least two distinct filler patterns occur
func DetectHesitation(text string) bool {
	return HesitationSignals(text) >= 2
}
