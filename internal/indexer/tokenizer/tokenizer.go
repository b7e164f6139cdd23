// Package tokenizer turns raw text into index-safe terms and sentence-like
// units. Every function here is pure and total.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTermLength is the exclusive lower bound on an indexable term's rune
// length. Shorter terms are discarded at build and query time alike.
const MinTermLength = 2

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// Normalize lower-cases token, drops every rune that is neither a letter, a
// number nor whitespace, and trims the result. The empty string is a valid
// output.
func Normalize(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range strings.ToLower(token) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Indexable reports whether a normalized term is long enough to be indexed.
func Indexable(term string) bool {
	return utf8.RuneCountInString(term) > MinTermLength
}

// Fields splits text on whitespace and normalizes every piece, keeping
// empty results so that len(Fields(text)) is the raw token count.
func Fields(text string) []string {
	raw := strings.Fields(text)
	out := make([]string, len(raw))
	for i, w := range raw {
		out[i] = Normalize(w)
	}
	return out
}

// Terms returns the indexable normalized terms of text in order, with
// duplicates.
func Terms(text string) []string {
	raw := strings.Fields(text)
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		if term := Normalize(w); Indexable(term) {
			out = append(out, term)
		}
	}
	return out
}

// TermSet returns the distinct indexable terms of text.
func TermSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, term := range Terms(text) {
		set[term] = struct{}{}
	}
	return set
}

// SplitSentences splits text on runs of terminal punctuation. Pieces are
// returned untrimmed and may be empty.
func SplitSentences(text string) []string {
	return sentenceBoundary.Split(text, -1)
}

// RuneLen is the character length used for every size threshold.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
