package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/watcher"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/redis"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	rebuild := flag.Bool("rebuild", false, "ignore the snapshot and rebuild the index")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "corpus", cfg.Indexer.CorpusPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	opts := indexer.Options{
		CorpusPath:   cfg.Indexer.CorpusPath,
		SnapshotPath: cfg.Indexer.SnapshotPath,
		ForceRebuild: *rebuild,
		Metrics:      m,
	}
	engine, err := indexer.Open(ctx, opts)
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	holder := indexer.NewHolder(engine)
	reloader := indexer.NewReloader(holder, opts)

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			if err := queryCache.Invalidate(ctx); err != nil {
				slog.Warn("clearing stale cache entries failed", "error", err)
			}
			reloader.OnSwap(func(ctx context.Context, _ *indexer.Engine) {
				if err := queryCache.Invalidate(ctx); err != nil {
					slog.Error("cache invalidation after reload failed", "error", err)
				}
			})
			slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var tracker handler.EventTracker
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		reloader.OnSwap(func(_ context.Context, e *indexer.Engine) {
			st := e.Stats()
			collector.TrackIndex(analytics.IndexEvent{
				Type:      analytics.EventIndexRebuild,
				Passages:  st.Passages,
				Terms:     st.Terms,
				Documents: st.Documents,
				Source:    st.Source,
				Timestamp: st.BuiltAt.UTC(),
			})
		})
		slog.Info("analytics publishing enabled", "topic", cfg.Kafka.Topics.SearchEvents)
	}

	if cfg.Indexer.Watch {
		w := watcher.New(cfg.Indexer.CorpusPath, cfg.Indexer.WatchDebounce, reloader.Reload)
		go func() {
			if err := w.Run(ctx); err != nil {
				slog.Error("corpus watcher stopped", "error", err)
			}
		}()
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		e := holder.Engine()
		if e == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no index loaded"}
		}
		st := e.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d passages from %s", st.Passages, st.Source),
		}
	})
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, false))
	}

	exec := executor.New(holder, cfg.Search.Reranker, m)
	h := handler.New(exec, holder, queryCache, tracker, cfg.Search)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "passages", engine.Stats().Passages)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
