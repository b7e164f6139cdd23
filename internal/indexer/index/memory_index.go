// Package index holds the passage model and the inverted index built over it.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/tokenizer"
)

// InvertedIndex maps every indexable term to the passages containing it. It
// is derived data: Build reconstructs it in full from the passages and there
// is no incremental path.
type InvertedIndex struct {
	postings map[string]PostingList
}

// Build indexes passages, which must be ordered by ascending id. Posting
// lists come out sorted because ids are appended in that order.
func Build(passages []Passage) *InvertedIndex {
	postings := make(map[string]PostingList)
	for _, p := range passages {
		for _, term := range tokenizer.Terms(p.Text) {
			list := postings[term]
			if n := len(list); n > 0 && list[n-1] == p.ID {
				continue
			}
			postings[term] = append(list, p.ID)
		}
	}
	return &InvertedIndex{postings: postings}
}

// FromPostings wraps postings restored from a snapshot. Each list is copied,
// sorted and deduplicated.
func FromPostings(raw map[string][]int) *InvertedIndex {
	postings := make(map[string]PostingList, len(raw))
	for term, ids := range raw {
		list := append(PostingList(nil), ids...)
		sort.Ints(list)
		out := list[:0]
		for i, id := range list {
			if i > 0 && id == list[i-1] {
				continue
			}
			out = append(out, id)
		}
		postings[term] = out
	}
	return &InvertedIndex{postings: postings}
}

// Postings returns the posting list of term, or nil. Callers must not modify
// the returned slice.
func (ix *InvertedIndex) Postings(term string) PostingList {
	return ix.postings[term]
}

// DocFreq is the number of passages containing term.
func (ix *InvertedIndex) DocFreq(term string) int {
	return len(ix.postings[term])
}

// Contains reports whether term is indexed.
func (ix *InvertedIndex) Contains(term string) bool {
	_, ok := ix.postings[term]
	return ok
}

// Size is the number of distinct terms.
func (ix *InvertedIndex) Size() int {
	return len(ix.postings)
}

// Terms returns all indexed terms in lexical order.
func (ix *InvertedIndex) Terms() []string {
	terms := make([]string, 0, len(ix.postings))
	for term := range ix.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Raw exposes a copy of the term to posting mapping for serialization.
func (ix *InvertedIndex) Raw() map[string][]int {
	out := make(map[string][]int, len(ix.postings))
	for term, list := range ix.postings {
		out[term] = append([]int(nil), list...)
	}
	return out
}
