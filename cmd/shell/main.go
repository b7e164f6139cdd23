// Command shell answers questions over the corpus interactively, or once
// with -q.
//
// Usage:
//
//	go run ./cmd/shell [-config configs/development.yaml] [-rebuild] [-rerank] [-q "question"]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/tui"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	rebuild := flag.Bool("rebuild", false, "ignore the snapshot and rebuild the index")
	rerank := flag.Bool("rerank", false, "rerank retrieved passages")
	query := flag.String("q", "", "answer one question and exit")
	topK := flag.Int("k", 0, "passages to retrieve (default from config)")
	logFile := flag.String("log", "", "write logs to this file instead of discarding them")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var logOut io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger.SetupTo(logOut, cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()
	engine, err := indexer.Open(ctx, indexer.Options{
		CorpusPath:   cfg.Indexer.CorpusPath,
		SnapshotPath: cfg.Indexer.SnapshotPath,
		ForceRebuild: *rebuild,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open index: %v\n", err)
		os.Exit(1)
	}
	holder := indexer.NewHolder(engine)
	exec := executor.New(holder, cfg.Search.Reranker, nil)

	opts := executor.Options{Limit: cfg.Search.DefaultTopK, Rerank: *rerank || cfg.Search.Rerank}
	if *topK > 0 {
		opts.Limit = min(*topK, cfg.Search.MaxResults)
	}

	if *query != "" {
		res, err := exec.Ask(ctx, parser.Parse(*query), opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(tui.Format(res))
		return
	}

	if _, err := tea.NewProgram(tui.New(exec, holder, opts), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "shell error: %v\n", err)
		os.Exit(1)
	}
}
