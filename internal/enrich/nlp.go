package enrich

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/jdkato/prose/v2"
)

// Analysis is the linguistic summary of one utterance
type Analysis struct {
	Concepts []string `json:"concepts"`
	Entities []string `json:"entities"`
}

// Analyzer extracts concepts and named entities from text
type Analyzer interface {
	Analyze(text string) (Analysis, error)
}

// taggedToken is a token with its Penn Treebank part-of-speech tag
type taggedToken struct {
	Text string
	Tag  string
}

// ProseAnalyzer tags text with prose and keeps content nouns and adjectives
// as concepts. Near-duplicate concepts are folded by Jaro-Winkler similarity.
type ProseAnalyzer struct {
	similarity float64
}

// NewProseAnalyzer creates an analyzer. similarity in (0, 1] is the
// Jaro-Winkler score at or above which two concepts count as one.
func NewProseAnalyzer(similarity float64) *ProseAnalyzer {
	if similarity <= 0 || similarity > 1 {
		similarity = 0.95
	}
	return &ProseAnalyzer{similarity: similarity}
}

// Analyze tags text and returns its concepts and entities
func (a *ProseAnalyzer) Analyze(text string) (Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return Analysis{}, nil
	}

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to tag text: %w", err)
	}

	var tokens []taggedToken
	for _, tok := range doc.Tokens() {
		tokens = append(tokens, taggedToken{Text: tok.Text, Tag: tok.Tag})
	}

	var entities []string
	for _, ent := range doc.Entities() {
		entities = append(entities, ent.Text)
	}

	return buildAnalysis(tokens, entities, a.similarity), nil
}

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// buildAnalysis keeps non-stopword nouns and adjectives longer than two
// letters that are not part of an entity, lemmatized, sorted and folded
func buildAnalysis(tokens []taggedToken, entities []string, similarity float64) Analysis {
	entityTexts := make(map[string]struct{})
	var uniqueEntities []string
	for _, e := range entities {
		e = strings.TrimSpace(e)
		key := strings.ToLower(e)
		if key == "" {
			continue
		}
		if _, ok := entityTexts[key]; ok {
			continue
		}
		entityTexts[key] = struct{}{}
		uniqueEntities = append(uniqueEntities, e)
		for _, part := range strings.Fields(key) {
			entityTexts[part] = struct{}{}
		}
	}

	concepts := make(map[string]struct{})
	for _, tok := range tokens {
		if !isContentTag(tok.Tag) {
			continue
		}

		word := strings.ToLower(punctuation.ReplaceAllString(tok.Text, ""))
		if !isAlpha(word) || isStopword(word) {
			continue
		}

		lemma := lemmatize(word, tok.Tag)
		if len(lemma) <= 2 {
			continue
		}
		if _, ok := entityTexts[lemma]; ok {
			continue
		}
		if _, ok := entityTexts[word]; ok {
			continue
		}
		concepts[lemma] = struct{}{}
	}

	sorted := make([]string, 0, len(concepts))
	for c := range concepts {
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)

	return Analysis{
		Concepts: foldSimilar(sorted, similarity),
		Entities: uniqueEntities,
	}
}

// foldSimilar drops any concept that is a near duplicate of an earlier kept one
func foldSimilar(sorted []string, similarity float64) []string {
	var kept []string
	for _, c := range sorted {
		duplicate := false
		for _, k := range kept {
			if matchr.JaroWinkler(c, k, false) >= similarity {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, c)
		}
	}
	return kept
}

func isContentTag(tag string) bool {
	switch tag {
	case "NN", "NNS", "NNP", "NNPS", "JJ", "JJR", "JJS":
		return true
	}
	return false
}

// lemmatize reduces plural nouns to their singular form
func lemmatize(word, tag string) string {
	if tag != "NNS" && tag != "NNPS" {
		return word
	}

	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return strings.TrimSuffix(word, "ies") + "y"
	case strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "sses"), strings.HasSuffix(word, "xes"):
		return strings.TrimSuffix(word, "es")
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return strings.TrimSuffix(word, "s")
	}
	return word
}

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`
		a about above after again against all almost alone along already also although always am among
		an and another any anyone anything anyway anywhere are around as at back be became because become
		been before behind being below beside besides between beyond both but by can cannot could did do
		does doing done down due during each either else elsewhere enough even ever every everyone
		everything everywhere few first for former from front full further get give go had has have he
		hence her here hers herself him himself his how however i if in indeed into is it its itself just
		keep last latter least less made make many may me meanwhile might mine more moreover most mostly
		move much must my myself name namely neither never nevertheless next no nobody none noone nor not
		nothing now nowhere of off often on once one only onto or other others otherwise our ours ourselves
		out over own part per perhaps please put quite rather re really regarding same say see seem seemed
		seeming seems serious several she should show side since so some somehow someone something
		sometime sometimes somewhere still such take than that the their them themselves then thence there
		thereafter thereby therefore therein thereupon these they third this those though three through
		throughout thru thus to together too top toward towards two under unless until up upon us used
		using various very via was we well were what whatever when whence whenever where whereafter
		whereas whereby wherein whereupon wherever whether which while whither who whoever whole whom
		whose why will with within without would yet you your yours yourself yourselves
		thing things kind sort lot`)

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()

func isStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}
