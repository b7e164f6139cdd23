package indexer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/metrics"
)

// Reloader rebuilds the engine from the corpus and publishes it through a
// Holder. Only one rebuild runs at a time; queries keep using the previous
// engine until the new one is complete.
type Reloader struct {
	holder     *Holder
	corpusPath string
	store      *snapshot.Store
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu     sync.Mutex
	onSwap []func(context.Context, *Engine)
}

func NewReloader(holder *Holder, opts Options) *Reloader {
	return &Reloader{
		holder:     holder,
		corpusPath: opts.CorpusPath,
		store:      snapshot.NewStore(opts.SnapshotPath),
		metrics:    opts.Metrics,
		logger:     slog.Default().With("component", "reloader"),
	}
}

// OnSwap registers fn to run after every successful swap.
func (r *Reloader) OnSwap(fn func(context.Context, *Engine)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSwap = append(r.onSwap, fn)
}

// Reload rebuilds, saves and swaps. On error the serving engine is left in
// place.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := Rebuild(r.corpusPath, r.metrics)
	if err != nil {
		r.logger.Error("rebuild failed, keeping current index", "error", err)
		return err
	}
	Persist(ctx, r.store, e, r.metrics)
	old := r.holder.Swap(e)

	prev := 0
	if old != nil {
		prev = len(old.passages)
	}
	r.logger.Info("index swapped",
		"previous_passages", prev,
		"passages", len(e.passages),
		"terms", e.index.Size(),
	)
	for _, fn := range r.onSwap {
		fn(ctx, e)
	}
	return nil
}
