package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/answer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/metrics"
)

// DefaultTopK is the number of passages retrieved when no limit is given.
const DefaultTopK = 5

type SearchResult struct {
	Query     string                 `json:"query"`
	Terms     []string               `json:"terms"`
	Reranked  bool                   `json:"reranked"`
	TotalHits int                    `json:"total_hits"`
	Results   []ranker.ScoredPassage `json:"results"`
}

// Source describes a passage an answer was drawn from.
type Source struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	SourceID string  `json:"source_id"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

type AnswerResult struct {
	Query    string   `json:"query"`
	Answer   string   `json:"answer"`
	Reranked bool     `json:"reranked"`
	Sources  []Source `json:"sources"`
}

// Options controls a single query.
type Options struct {
	Limit  int
	Rerank bool
}

// EngineProvider returns the engine serving the current query.
type EngineProvider interface {
	Engine() *indexer.Engine
}

type Executor struct {
	engines EngineProvider
	rerank  config.RerankConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Executor. m may be nil.
func New(engines EngineProvider, rerank config.RerankConfig, m *metrics.Metrics) *Executor {
	return &Executor{
		engines: engines,
		rerank:  rerank,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Search retrieves the topK passages for query without reranking.
func (e *Executor) Search(ctx context.Context, query string, topK int) (*SearchResult, error) {
	return e.Execute(ctx, parser.Parse(query), Options{Limit: topK})
}

// Execute ranks passages for plan. The whole query runs against one engine
// even if a rebuild swaps it meanwhile.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, opts Options) (*SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultTopK
	}
	result := &SearchResult{
		Query:   plan.RawQuery,
		Terms:   plan.Terms,
		Results: []ranker.ScoredPassage{},
	}
	if plan.Empty() {
		e.countOutcome("empty_query")
		return result, nil
	}

	engine := e.engines.Engine()
	if engine == nil {
		e.countOutcome("error")
		return nil, apperrors.ErrIndexNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query cancelled: %w", err)
	}

	start := time.Now()
	ranked, err := ranker.Rank(engine, plan.Terms, 0)
	if err != nil {
		e.countOutcome("error")
		e.logger.Error("ranking failed", "query", plan.RawQuery, "error", err)
		return nil, fmt.Errorf("ranking query %q: %w", plan.RawQuery, err)
	}
	e.observeStage("retrieve", start)

	result.TotalHits = len(ranked)
	if len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	if opts.Rerank && len(ranked) > 0 {
		start = time.Now()
		ranked = ranker.Rerank(e.rerank, plan.Distinct(), ranked)
		result.Reranked = true
		e.observeStage("rerank", start)
	}
	result.Results = ranked

	if len(ranked) == 0 {
		e.countOutcome("zero_result")
	} else {
		e.countOutcome("hit")
	}
	if e.metrics != nil {
		e.metrics.SearchResultsCount.Observe(float64(len(ranked)))
	}
	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"hits", result.TotalHits,
		"results", len(ranked),
		"reranked", result.Reranked,
	)
	return result, nil
}

// Ask retrieves passages and synthesizes an extractive answer from the best
// three.
func (e *Executor) Ask(ctx context.Context, plan *parser.QueryPlan, opts Options) (*AnswerResult, error) {
	res, err := e.Execute(ctx, plan, opts)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	text := answer.Synthesize(plan.RawQuery, res.Results)
	e.observeStage("synthesize", start)

	sources := make([]Source, len(res.Results))
	for i, r := range res.Results {
		sources[i] = Source{
			ID:       r.ID,
			Title:    r.Title,
			SourceID: r.SourceID,
			Score:    r.Score,
			Text:     r.Text,
		}
	}
	return &AnswerResult{
		Query:    plan.RawQuery,
		Answer:   text,
		Reranked: res.Reranked,
		Sources:  sources,
	}, nil
}

func (e *Executor) observeStage(stage string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchStageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (e *Executor) countOutcome(outcome string) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
}
