// Package answer assembles an extractive answer from the best retrieved
// passages: the sentences sharing the most vocabulary with the query are
// copied verbatim into a short bullet list.
package answer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/ranker"
)

const (
	// NothingFound is returned when retrieval produced no passages.
	NothingFound = "No relevant information found."
	// Header opens a synthesized answer.
	Header = "Based on the retrieved passages:\n\n"
	// Bullet prefixes each answer sentence.
	Bullet = "• "

	sourcePassages = 3
	maxSentences   = 3
	minSentenceLen = 20
)

// Sentence is a candidate answer sentence and its query overlap.
type Sentence struct {
	Text    string
	Overlap int
}

// Synthesize builds the answer for query from passages, which must be in
// rank order. It is a pure function.
func Synthesize(query string, passages []ranker.ScoredPassage) string {
	if len(passages) == 0 {
		return NothingFound
	}
	picked := Select(query, passages)
	if len(picked) == 0 {
		return NoDirectAnswer(query)
	}
	var b strings.Builder
	b.WriteString(Header)
	for _, s := range picked {
		b.WriteString(Bullet)
		b.WriteString(s.Text)
		b.WriteString(".\n")
	}
	return b.String()
}

// Select returns up to three sentences from the top passages, ordered by
// overlap with the query and then by position.
func Select(query string, passages []ranker.ScoredPassage) []Sentence {
	if len(passages) > sourcePassages {
		passages = passages[:sourcePassages]
	}
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	queryTerms := tokenizer.TermSet(query)

	var candidates []Sentence
	for _, s := range tokenizer.SplitSentences(strings.Join(texts, " ")) {
		s = strings.TrimSpace(s)
		if tokenizer.RuneLen(s) < minSentenceLen {
			continue
		}
		overlap := 0
		for term := range tokenizer.TermSet(s) {
			if _, ok := queryTerms[term]; ok {
				overlap++
			}
		}
		if overlap >= 1 {
			candidates = append(candidates, Sentence{Text: s, Overlap: overlap})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Overlap > candidates[j].Overlap
	})
	if len(candidates) > maxSentences {
		candidates = candidates[:maxSentences]
	}
	return candidates
}

// NoDirectAnswer is the fallback when passages were found but no sentence
// shares a term with the query.
func NoDirectAnswer(query string) string {
	return fmt.Sprintf("The retrieved passages mention \"%s\" but contain no direct answer.", query)
}
