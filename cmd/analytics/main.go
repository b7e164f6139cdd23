// Command analytics runs the analytics aggregation service.
//
// It consumes search, answer and index-rebuild events from Kafka, folds them
// into running statistics, snapshots those to PostgreSQL periodically, and
// serves GET /api/v1/analytics and GET /api/v1/analytics/history.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081]
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
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/postgres"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8081, "HTTP port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", *port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	checker := health.NewChecker()

	var history analytics.History
	var wg sync.WaitGroup
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshots disabled", "error", err)
	} else {
		defer db.Close()
		snapshots := store.New(db)
		if err := snapshots.Migrate(ctx); err != nil {
			slog.Error("migrating analytics schema failed", "error", err)
			os.Exit(1)
		}
		if latest, err := snapshots.LatestSnapshot(ctx); err != nil {
			slog.Warn("reading latest snapshot failed", "error", err)
		} else if latest != nil {
			slog.Info("previous snapshot found",
				"total_searches", latest.TotalSearches,
				"total_answers", latest.TotalAnswers,
			)
		}
		history = snapshots
		wg.Add(1)
		go func() {
			defer wg.Done()
			snapshots.RunPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
		}()
		checker.Register("postgres", health.PingCheck(db.Ping, false))
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, analytics.HandleEvent(aggregator))
	go func() {
		if err := consumer.Run(ctx); err != nil {
			slog.Error("analytics consumer stopped", "error", err)
		}
	}()
	slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.SearchEvents, "group", cfg.Kafka.ConsumerGroup)

	h := analytics.NewHandler(aggregator, history)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/history", h.History)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      middleware.RequestID(mux),
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	wg.Wait()
	slog.Info("analytics service stopped")
}
