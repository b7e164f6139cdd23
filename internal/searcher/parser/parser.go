// Package parser turns a raw query string into the terms used for retrieval.
package parser

import (
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/tokenizer"
)

// QueryPlan is a parsed query. Terms keeps repeated words: a term written
// twice contributes its weight twice.
type QueryPlan struct {
	RawQuery string
	Terms    []string
}

func Parse(query string) *QueryPlan {
	return &QueryPlan{
		RawQuery: query,
		Terms:    tokenizer.Terms(query),
	}
}

// Empty reports whether the query has no indexable term.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

// Distinct returns the terms without repeats, in first-seen order.
func (p *QueryPlan) Distinct() []string {
	seen := make(map[string]struct{}, len(p.Terms))
	out := make([]string, 0, len(p.Terms))
	for _, t := range p.Terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
