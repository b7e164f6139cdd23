// Command indexer builds the passage index from the corpus and writes the
// snapshot, then prints index statistics.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml] [-rebuild]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/tui"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	rebuild := flag.Bool("rebuild", false, "ignore an existing snapshot")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := indexer.Open(ctx, indexer.Options{
		CorpusPath:   cfg.Indexer.CorpusPath,
		SnapshotPath: cfg.Indexer.SnapshotPath,
		ForceRebuild: *rebuild,
	})
	if err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(tui.FormatStats(engine.Stats()))
}
