// Package scorer computes per-passage TF-IDF term weights.
//
// The weight of term t in passage p is
//
//	tf(t, p) * ln(N / df(t))
//
// where tf is the count of t in p divided by the raw whitespace-token count
// of p, N is the passage count and df(t) is the size of t's posting list.
// Scores are deliberately left unnormalized.
package scorer

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/tokenizer"
)

// Compute returns the weight table for passages against ix, which must have
// been built from the same passages.
func Compute(passages []index.Passage, ix *index.InvertedIndex) index.WeightTable {
	total := len(passages)
	weights := make(index.WeightTable, total)
	for _, p := range passages {
		words := tokenizer.Fields(p.Text)
		if len(words) == 0 {
			continue
		}
		counts := make(map[string]int)
		for _, w := range words {
			if tokenizer.Indexable(w) {
				counts[w]++
			}
		}
		scores := make(map[string]float64, len(counts))
		for term, count := range counts {
			df := ix.DocFreq(term)
			if df == 0 {
				continue
			}
			scores[term] = TF(count, len(words)) * IDF(total, df)
		}
		weights[p.ID] = scores
	}
	return weights
}

// TF is the raw term frequency normalized by passage token count.
func TF(count, wordCount int) float64 {
	if wordCount == 0 {
		return 0
	}
	return float64(count) / float64(wordCount)
}

// IDF is ln(total/df). df is at least 1 for any indexed term.
func IDF(total, df int) float64 {
	if df <= 0 || total <= 0 {
		return 0
	}
	return math.Log(float64(total) / float64(df))
}
