package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/middleware"
)

// QueryService runs parsed queries. *executor.Executor satisfies it.
type QueryService interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, opts executor.Options) (*executor.SearchResult, error)
	Ask(ctx context.Context, plan *parser.QueryPlan, opts executor.Options) (*executor.AnswerResult, error)
}

// EventTracker receives one event per served query. *analytics.Collector
// satisfies it.
type EventTracker interface {
	Track(event analytics.QueryEvent)
}

type Handler struct {
	executor QueryService
	engines  executor.EngineProvider
	cache    *cache.QueryCache
	tracker  EventTracker
	search   config.SearchConfig
	logger   *slog.Logger
}

// New wires the HTTP handlers. queryCache and tracker may be nil.
func New(exec QueryService, engines executor.EngineProvider, queryCache *cache.QueryCache, tracker EventTracker, search config.SearchConfig) *Handler {
	return &Handler{
		executor: exec,
		engines:  engines,
		cache:    queryCache,
		tracker:  tracker,
		search:   search,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/answer", h.Answer)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search serves ranked passages. An empty or all-stopword query answers 200
// with no results.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	plan, opts, err := h.parseRequest(r)
	if err != nil {
		h.writeAppError(ctx, w, err)
		return
	}
	if plan.Empty() {
		result, _ := h.executor.Execute(ctx, plan, opts)
		h.writeJSON(w, http.StatusOK, result)
		return
	}

	key := cache.Key{Kind: cache.KindSearch, Query: plan.RawQuery, Limit: opts.Limit, Rerank: opts.Rerank}
	result, cacheHit, err := cached(ctx, h.cache, key, func() (*executor.SearchResult, error) {
		return h.executor.Execute(ctx, plan, opts)
	})
	if err != nil {
		h.writeAppError(ctx, w, fmt.Errorf("search %q: %w", plan.RawQuery, err))
		return
	}

	h.track(ctx, analytics.QueryEvent{
		Type:      analytics.EventSearch,
		Query:     plan.RawQuery,
		Terms:     plan.Terms,
		TotalHits: result.TotalHits,
		Returned:  len(result.Results),
		Reranked:  result.Reranked,
		CacheHit:  cacheHit,
		LatencyMs: time.Since(start).Milliseconds(),
	})
	logger.FromContext(ctx).Info("search completed",
		"query", plan.RawQuery,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// Answer serves an extractive answer with its sources.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	plan, opts, err := h.parseRequest(r)
	if err != nil {
		h.writeAppError(ctx, w, err)
		return
	}
	if plan.Empty() {
		result, _ := h.executor.Ask(ctx, plan, opts)
		h.writeJSON(w, http.StatusOK, result)
		return
	}

	key := cache.Key{Kind: cache.KindAnswer, Query: plan.RawQuery, Limit: opts.Limit, Rerank: opts.Rerank}
	result, cacheHit, err := cached(ctx, h.cache, key, func() (*executor.AnswerResult, error) {
		return h.executor.Ask(ctx, plan, opts)
	})
	if err != nil {
		h.writeAppError(ctx, w, fmt.Errorf("answer %q: %w", plan.RawQuery, err))
		return
	}

	h.track(ctx, analytics.QueryEvent{
		Type:      analytics.EventAnswer,
		Query:     plan.RawQuery,
		Terms:     plan.Terms,
		TotalHits: len(result.Sources),
		Returned:  len(result.Sources),
		Reranked:  result.Reranked,
		CacheHit:  cacheHit,
		LatencyMs: time.Since(start).Milliseconds(),
	})
	logger.FromContext(ctx).Info("answer completed",
		"query", plan.RawQuery,
		"sources", len(result.Sources),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	engine := h.engines.Engine()
	if engine == nil {
		h.writeAppError(r.Context(), w, apperrors.ErrIndexNotReady)
		return
	}
	h.writeJSON(w, http.StatusOK, engine.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats := h.cache.Stats()
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"errors":   stats.Errors,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  stats.Breaker,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// parseRequest reads q, limit and rerank. limit defaults to the configured
// top-k and is capped at maxResults; rerank defaults to the configured flag.
func (h *Handler) parseRequest(r *http.Request) (*parser.QueryPlan, executor.Options, error) {
	q := r.URL.Query()
	opts := executor.Options{Limit: h.search.DefaultTopK, Rerank: h.search.Rerank}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, opts, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
		}
		opts.Limit = min(n, h.search.MaxResults)
	}
	if s := q.Get("rerank"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, opts, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "rerank must be a boolean")
		}
		opts.Rerank = b
	}
	return parser.Parse(q.Get("q")), opts, nil
}

func (h *Handler) track(ctx context.Context, event analytics.QueryEvent) {
	if h.tracker == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)
	h.tracker.Track(event)
}

func cached[T any](ctx context.Context, c *cache.QueryCache, key cache.Key, compute func() (*T, error)) (*T, bool, error) {
	if c == nil {
		v, err := compute()
		return v, false, err
	}
	return cache.GetOrCompute(ctx, c, key, compute)
}

// writeAppError maps err to a status. Server-side failures are logged and
// their details kept out of the response.
func (h *Handler) writeAppError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		h.writeError(w, status, appErr.Message)
	case errors.Is(err, apperrors.ErrIndexNotReady):
		h.writeError(w, status, "index is not ready")
	default:
		logger.FromContext(ctx).Error("query failed", "error", err)
		h.writeError(w, status, "internal error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
