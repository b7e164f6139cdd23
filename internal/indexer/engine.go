// Package indexer owns the in-memory working set: passages, inverted index
// and TF-IDF weights. An Engine is built once, from the corpus or from a
// snapshot, and is read-only afterwards, so it can be shared by concurrent
// readers without locking.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/scorer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/segmenter"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/snapshot"
	apperrors "github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/metrics"
)

const (
	SourceRebuild  = "rebuild"
	SourceSnapshot = "snapshot"
)

type Engine struct {
	passages  []index.Passage
	index     *index.InvertedIndex
	weights   index.WeightTable
	documents int
	source    string
	builtAt   time.Time
}

// Stats summarizes an engine for status endpoints and the shell.
type Stats struct {
	Passages  int       `json:"passages"`
	Terms     int       `json:"terms"`
	Documents int       `json:"documents"`
	Source    string    `json:"source"`
	BuiltAt   time.Time `json:"built_at"`
}

// Build segments corpus and computes the index and weights. It fails only
// if the result is internally inconsistent.
func Build(corpus string) (*Engine, error) {
	passages := segmenter.Segment(corpus)
	ix := index.Build(passages)
	e := &Engine{
		passages: passages,
		index:    ix,
		weights:  scorer.Compute(passages, ix),
		source:   SourceRebuild,
		builtAt:  time.Now(),
	}
	if err := e.verify(); err != nil {
		return nil, err
	}
	e.documents = countDocuments(passages)
	return e, nil
}

// FromSnapshot restores an engine from a decoded snapshot.
func FromSnapshot(snap *snapshot.Snapshot) (*Engine, error) {
	e := &Engine{
		passages: snap.Passages,
		index:    index.FromPostings(snap.Postings),
		weights:  snap.Weights,
		source:   SourceSnapshot,
		builtAt:  time.Now(),
	}
	if e.weights == nil {
		e.weights = index.WeightTable{}
	}
	if err := e.verify(); err != nil {
		return nil, err
	}
	e.documents = countDocuments(snap.Passages)
	return e, nil
}

// Passage returns the passage with the given id.
func (e *Engine) Passage(id int) (index.Passage, bool) {
	if id < 0 || id >= len(e.passages) {
		return index.Passage{}, false
	}
	return e.passages[id], true
}

func (e *Engine) Postings(term string) index.PostingList {
	return e.index.Postings(term)
}

func (e *Engine) Weight(id int, term string) float64 {
	return e.weights.Weight(id, term)
}

// Passages returns the passage list. Callers must not modify it.
func (e *Engine) Passages() []index.Passage {
	return e.passages
}

func (e *Engine) Stats() Stats {
	return Stats{
		Passages:  len(e.passages),
		Terms:     e.index.Size(),
		Documents: e.documents,
		Source:    e.source,
		BuiltAt:   e.builtAt,
	}
}

// Snapshot returns the persistable form of the engine.
func (e *Engine) Snapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Passages: e.passages,
		Postings: e.index.Raw(),
		Weights:  e.weights,
	}
}

func (e *Engine) verify() error {
	for i, p := range e.passages {
		if p.ID != i {
			return fmt.Errorf("%w: passage at position %d has id %d", apperrors.ErrInternalConsistency, i, p.ID)
		}
	}
	n := len(e.passages)
	for _, term := range e.index.Terms() {
		for _, id := range e.index.Postings(term) {
			if id < 0 || id >= n {
				return fmt.Errorf("%w: term %q references passage %d of %d", apperrors.ErrInternalConsistency, term, id, n)
			}
		}
	}
	for id := range e.weights {
		if id < 0 || id >= n {
			return fmt.Errorf("%w: weights reference passage %d of %d", apperrors.ErrInternalConsistency, id, n)
		}
	}
	return nil
}

func countDocuments(passages []index.Passage) int {
	seen := make(map[string]struct{})
	for _, p := range passages {
		seen[p.SourceID] = struct{}{}
	}
	return len(seen)
}

// Options configures Open.
type Options struct {
	CorpusPath   string
	SnapshotPath string
	// ForceRebuild ignores an existing snapshot.
	ForceRebuild bool
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Open returns a ready engine. The corpus must exist even when a valid
// snapshot is present. A missing or corrupt snapshot leads to a full
// rebuild followed by a save; a failed save is logged and does not fail Open.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	logger := slog.Default().With("component", "indexer")

	if _, err := os.Stat(opts.CorpusPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrMissingCorpus, opts.CorpusPath)
		}
		return nil, fmt.Errorf("checking corpus %s: %w", opts.CorpusPath, err)
	}

	store := snapshot.NewStore(opts.SnapshotPath)
	if !opts.ForceRebuild {
		res := store.Load()
		switch res.Status {
		case snapshot.StatusLoaded:
			e, err := FromSnapshot(res.Snapshot)
			if err == nil {
				observe(opts.Metrics, e, SourceSnapshot, "success", 0)
				logger.Info("index restored from snapshot",
					"passages", len(e.passages),
					"terms", e.index.Size(),
				)
				return e, nil
			}
			logger.Warn("snapshot inconsistent, rebuilding", "error", err)
		case snapshot.StatusCorrupt:
			logger.Warn("snapshot corrupt, rebuilding", "path", store.Path(), "error", res.Err)
		case snapshot.StatusAbsent:
			logger.Info("no snapshot found, building index", "path", store.Path())
		}
	} else {
		logger.Info("forced rebuild requested")
	}

	e, err := Rebuild(opts.CorpusPath, opts.Metrics)
	if err != nil {
		return nil, err
	}
	Persist(ctx, store, e, opts.Metrics)
	return e, nil
}

// Rebuild reads the corpus and builds a fresh engine.
func Rebuild(corpusPath string, m *metrics.Metrics) (*Engine, error) {
	logger := slog.Default().With("component", "indexer")
	data, err := os.ReadFile(corpusPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrMissingCorpus, corpusPath)
		}
		return nil, fmt.Errorf("reading corpus %s: %w", corpusPath, err)
	}

	start := time.Now()
	e, err := Build(string(data))
	elapsed := time.Since(start)
	if err != nil {
		if m != nil {
			m.IndexBuildsTotal.WithLabelValues(SourceRebuild, "error").Inc()
		}
		return nil, fmt.Errorf("building index: %w", err)
	}
	observe(m, e, SourceRebuild, "success", elapsed)
	logger.Info("index built",
		"passages", len(e.passages),
		"terms", e.index.Size(),
		"documents", e.documents,
		"duration", elapsed,
	)
	return e, nil
}

// Persist saves e through store. A failure is logged as a warning and
// counted; the engine stays usable.
func Persist(ctx context.Context, store *snapshot.Store, e *Engine, m *metrics.Metrics) bool {
	if err := store.Save(ctx, e.Snapshot()); err != nil {
		slog.Default().With("component", "indexer").Warn("snapshot not saved, serving from memory",
			"path", store.Path(),
			"error", err,
		)
		if m != nil {
			m.SnapshotWritesTotal.WithLabelValues("failure").Inc()
		}
		return false
	}
	if m != nil {
		m.SnapshotWritesTotal.WithLabelValues("success").Inc()
	}
	return true
}

func observe(m *metrics.Metrics, e *Engine, source, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.IndexBuildsTotal.WithLabelValues(source, status).Inc()
	if source == SourceRebuild {
		m.IndexBuildDuration.Observe(elapsed.Seconds())
	}
	m.IndexPassages.Set(float64(len(e.passages)))
	m.IndexTerms.Set(float64(e.index.Size()))
}
