// Package ranker scores passages against query terms using the precomputed
// TF-IDF weights, and optionally reranks the result with keyword and title
// overlap features.
package ranker

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/errors"
)

// ScoredPassage is a passage with its relevance score.
type ScoredPassage struct {
	index.Passage
	Score float64 `json:"score"`
}

// Source is the read-only view of the index the ranker needs.
type Source interface {
	Postings(term string) index.PostingList
	Weight(id int, term string) float64
	Passage(id int) (index.Passage, bool)
}

// Rank sums, for every query term occurrence, the term's weight in each
// passage of its posting list. Results are ordered by score descending then
// id ascending and cut to limit when limit > 0. A passage matched only
// through zero-weight terms is kept with score 0.
func Rank(src Source, terms []string, limit int) ([]ScoredPassage, error) {
	scores := make(map[int]float64)
	for _, term := range terms {
		for _, id := range src.Postings(term) {
			scores[id] += src.Weight(id, term)
		}
	}

	results := make([]ScoredPassage, 0, len(scores))
	for id, score := range scores {
		p, ok := src.Passage(id)
		if !ok {
			return nil, fmt.Errorf("%w: posting references unknown passage %d", apperrors.ErrInternalConsistency, id)
		}
		results = append(results, ScoredPassage{Passage: p, Score: score})
	}
	sortResults(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Rerank returns a new slice where each score is
//
//	(ScoreWeight*s + OverlapWeight*overlap + TitleWeight*titleBonus) * penalty
//
// overlap is the fraction of distinct query terms found in the passage,
// titleBonus is TitleBonus per distinct query term found in the title, and
// penalty is LengthPivot/len(text) for passages longer than LengthPivot
// characters. results is not modified.
func Rerank(cfg config.RerankConfig, terms []string, results []ScoredPassage) []ScoredPassage {
	query := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		query[t] = struct{}{}
	}

	out := make([]ScoredPassage, len(results))
	for i, r := range results {
		out[i] = ScoredPassage{Passage: r.Passage, Score: RerankScore(cfg, query, r)}
	}
	sortResults(out)
	return out
}

// RerankScore computes the blended score of one result against the distinct
// query term set.
func RerankScore(cfg config.RerankConfig, query map[string]struct{}, r ScoredPassage) float64 {
	var overlap float64
	if len(query) > 0 {
		overlap = float64(shared(query, tokenizer.TermSet(r.Text))) / float64(len(query))
	}
	titleBonus := cfg.TitleBonus * float64(shared(query, tokenizer.TermSet(r.Title)))

	score := cfg.ScoreWeight*r.Score + cfg.OverlapWeight*overlap + cfg.TitleWeight*titleBonus
	if n := tokenizer.RuneLen(r.Text); cfg.LengthPivot > 0 && n > cfg.LengthPivot {
		score *= float64(cfg.LengthPivot) / float64(n)
	}
	return score
}

func shared(query, terms map[string]struct{}) int {
	n := 0
	for t := range query {
		if _, ok := terms[t]; ok {
			n++
		}
	}
	return n
}

func sortResults(results []ScoredPassage) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}
