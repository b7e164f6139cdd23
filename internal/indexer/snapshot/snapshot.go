// Package snapshot persists the built index as a single JSON document so the
// corpus need not be re-segmented on every start. The file is a cache: a
// missing or malformed snapshot is reported through Result and the caller
// rebuilds.
package snapshot

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/index"
)

// Snapshot is the persisted triple of passages, inverted index and weights.
type Snapshot struct {
	Passages []index.Passage
	Postings map[string][]int
	Weights  index.WeightTable
}

// document mirrors the on-disk layout. Pointer fields distinguish a missing
// key from an empty value.
type document struct {
	Chunks    *[]chunk                       `json:"chunks"`
	WordIndex *map[string][]int              `json:"word_index"`
	Scores    *map[string]map[string]float64 `json:"tf_idf_scores"`
}

type chunk struct {
	ID       *int    `json:"id"`
	Text     *string `json:"text"`
	Title    *string `json:"title"`
	SourceID *string `json:"source_id"`
}

// Encode renders snap in the snapshot file layout.
func Encode(snap *Snapshot) ([]byte, error) {
	chunks := make([]chunk, len(snap.Passages))
	for i := range snap.Passages {
		p := &snap.Passages[i]
		chunks[i] = chunk{ID: &p.ID, Text: &p.Text, Title: &p.Title, SourceID: &p.SourceID}
	}
	wordIndex := snap.Postings
	if wordIndex == nil {
		wordIndex = map[string][]int{}
	}
	scores := make(map[string]map[string]float64, len(snap.Weights))
	for id, terms := range snap.Weights {
		scores[strconv.Itoa(id)] = terms
	}
	data, err := json.Marshal(document{
		Chunks:    &chunks,
		WordIndex: &wordIndex,
		Scores:    &scores,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}
	return data, nil
}

// Decode parses and validates a snapshot file. Any structural problem is
// returned as an error; Decode never panics on hostile input.
func Decode(data []byte) (*Snapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if doc.Chunks == nil {
		return nil, fmt.Errorf("missing field %q", "chunks")
	}
	if doc.WordIndex == nil {
		return nil, fmt.Errorf("missing field %q", "word_index")
	}
	if doc.Scores == nil {
		return nil, fmt.Errorf("missing field %q", "tf_idf_scores")
	}

	passages := make([]index.Passage, len(*doc.Chunks))
	for i, c := range *doc.Chunks {
		if c.ID == nil || c.Text == nil || c.Title == nil || c.SourceID == nil {
			return nil, fmt.Errorf("chunk %d: missing field", i)
		}
		if *c.ID != i {
			return nil, fmt.Errorf("chunk %d: non-contiguous id %d", i, *c.ID)
		}
		passages[i] = index.Passage{ID: *c.ID, Text: *c.Text, Title: *c.Title, SourceID: *c.SourceID}
	}
	n := len(passages)

	for term, ids := range *doc.WordIndex {
		for _, id := range ids {
			if id < 0 || id >= n {
				return nil, fmt.Errorf("term %q references unknown passage %d", term, id)
			}
		}
	}

	weights := make(index.WeightTable, len(*doc.Scores))
	for key, terms := range *doc.Scores {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid passage key %q: %w", key, err)
		}
		if id < 0 || id >= n {
			return nil, fmt.Errorf("weights reference unknown passage %d", id)
		}
		for term, w := range terms {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("passage %d: invalid weight %v for %q", id, w, term)
			}
		}
		if terms == nil {
			terms = map[string]float64{}
		}
		weights[id] = terms
	}

	return &Snapshot{
		Passages: passages,
		Postings: *doc.WordIndex,
		Weights:  weights,
	}, nil
}
