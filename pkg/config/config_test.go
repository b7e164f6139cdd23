package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.DefaultTopK != 5 {
		t.Errorf("expected default top-k 5, got %d", cfg.Search.DefaultTopK)
	}
	if cfg.Search.Reranker != DefaultRerank() {
		t.Errorf("expected default rerank weights, got %+v", cfg.Search.Reranker)
	}
	if cfg.Indexer.SnapshotPath == "" {
		t.Error("expected a default snapshot path")
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := `
indexer:
  corpusPath: /srv/corpus.txt
  watch: true
  watchDebounce: 5s
search:
  defaultTopK: 8
  maxResults: 20
  rerank: true
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LX_SNAPSHOT_PATH", "/srv/index.json")
	t.Setenv("LX_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Indexer.CorpusPath != "/srv/corpus.txt" {
		t.Errorf("expected corpus path from yaml, got %q", cfg.Indexer.CorpusPath)
	}
	if cfg.Indexer.SnapshotPath != "/srv/index.json" {
		t.Errorf("expected snapshot path from env, got %q", cfg.Indexer.SnapshotPath)
	}
	if !cfg.Indexer.Watch || cfg.Indexer.WatchDebounce != 5*time.Second {
		t.Errorf("unexpected watch settings: %+v", cfg.Indexer)
	}
	if cfg.Search.DefaultTopK != 8 || !cfg.Search.Rerank {
		t.Errorf("unexpected search settings: %+v", cfg.Search)
	}
	if cfg.Search.Reranker.ScoreWeight != 0.7 {
		t.Errorf("expected untouched rerank weights, got %+v", cfg.Search.Reranker)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level from env, got %q", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero top-k", func(c *Config) { c.Search.DefaultTopK = 0 }},
		{"max below default", func(c *Config) { c.Search.MaxResults = 1 }},
		{"empty corpus", func(c *Config) { c.Indexer.CorpusPath = " " }},
		{"negative weight", func(c *Config) { c.Search.Reranker.OverlapWeight = -0.1 }},
		{"zero pivot", func(c *Config) { c.Search.Reranker.LengthPivot = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
