// Package integration wires the search service in process: corpus file,
// snapshot, reloader, handlers and middleware behind an httptest server.
// Redis and PostgreSQL tests are skipped when the service is unreachable.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/segmenter"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/answer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/redis"
)

var documents = []string{
	"Phishing Detection Using Email Headers\n" +
		"Phishing campaigns forge sender headers to impersonate trusted domains. " +
		"Header anomalies such as mismatched return paths are strong phishing indicators. " +
		"Classifiers trained on header features reach high precision on enterprise mail.",
	"Side Channel Attacks on Caches\n" +
		"Cache timing side channels leak secret keys from cryptographic libraries. " +
		"Flush and reload attacks observe shared memory access patterns across processes. " +
		"Constant time implementations remove the secret dependent memory accesses.",
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func writeCorpus(t *testing.T, path string, docs []string) {
	t.Helper()
	data := strings.Join(docs, "\n"+segmenter.DocumentSeparator+"\n")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

type service struct {
	srv      *httptest.Server
	reloader *indexer.Reloader
	opts     indexer.Options
}

// newService builds the same stack cmd/searcher serves. store may be nil to
// disable caching.
func newService(t *testing.T, store cache.Store) *service {
	t.Helper()
	dir := t.TempDir()
	opts := indexer.Options{
		CorpusPath:   filepath.Join(dir, "corpus.txt"),
		SnapshotPath: filepath.Join(dir, "index.json"),
	}
	writeCorpus(t, opts.CorpusPath, documents)

	engine, err := indexer.Open(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	holder := indexer.NewHolder(engine)
	reloader := indexer.NewReloader(holder, opts)

	var qc *cache.QueryCache
	if store != nil {
		qc = cache.New(store, time.Minute, nil)
		reloader.OnSwap(func(ctx context.Context, _ *indexer.Engine) {
			if err := qc.Invalidate(ctx); err != nil {
				t.Errorf("invalidate: %v", err)
			}
		})
	}

	cfg := config.Default().Search
	checker := health.NewChecker()
	checker.Register("index", func(context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	handler.New(executor.New(holder, cfg.Reranker, nil), holder, qc, nil, cfg).Register(mux)
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(5 * time.Second)(chain)
	chain = middleware.RequestID(chain)

	srv := httptest.NewServer(chain)
	t.Cleanup(srv.Close)
	return &service{srv: srv, reloader: reloader, opts: opts}
}

func getJSON[T any](t *testing.T, url string) (T, *http.Response) {
	t.Helper()
	var v T
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding %s: %v", url, err)
	}
	return v, resp
}

func TestSearchAndAnswer(t *testing.T) {
	s := newService(t, nil)

	res, resp := getJSON[executor.SearchResult](t, s.srv.URL+"/api/v1/search?q=phishing+headers")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
	if len(res.Results) != 1 || res.Results[0].SourceID != "paper_0" {
		t.Errorf("unexpected results %+v", res.Results)
	}

	ans, _ := getJSON[executor.AnswerResult](t, s.srv.URL+"/api/v1/answer?q=cache+timing+keys&rerank=true")
	if !strings.HasPrefix(ans.Answer, answer.Header) || !strings.Contains(ans.Answer, "Cache timing side channels") {
		t.Errorf("unexpected answer %q", ans.Answer)
	}
	if !ans.Reranked || len(ans.Sources) == 0 || ans.Sources[0].Title != "Side Channel Attacks on Caches" {
		t.Errorf("unexpected sources %+v", ans.Sources)
	}

	ready, resp := getJSON[health.Report](t, s.srv.URL+"/health/ready")
	if resp.StatusCode != http.StatusOK || ready.Status != health.StatusUp {
		t.Errorf("expected ready, got %d %+v", resp.StatusCode, ready)
	}
}

func TestRestartRestoresSnapshot(t *testing.T) {
	s := newService(t, nil)
	engine, err := indexer.Open(context.Background(), s.opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := engine.Stats().Source; got != indexer.SourceSnapshot {
		t.Errorf("expected the second open to restore the snapshot, got %s", got)
	}
}

func TestReloadServesNewCorpus(t *testing.T) {
	s := newService(t, nil)
	before, _ := getJSON[executor.SearchResult](t, s.srv.URL+"/api/v1/search?q=ransomware")
	if before.TotalHits != 0 {
		t.Fatalf("expected no ransomware hits before reload, got %d", before.TotalHits)
	}

	writeCorpus(t, s.opts.CorpusPath, append(documents,
		"Ransomware Recovery Strategies\n"+
			"Ransomware operators encrypt backups before detonating the main payload. "+
			"Offline immutable backups shorten recovery after ransomware incidents considerably."))
	if err := s.reloader.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	after, _ := getJSON[executor.SearchResult](t, s.srv.URL+"/api/v1/search?q=ransomware")
	if after.TotalHits != 1 || after.Results[0].SourceID != "paper_2" {
		t.Errorf("expected the new document after reload, got %+v", after.Results)
	}
	stats, _ := getJSON[indexer.Stats](t, s.srv.URL+"/api/v1/index/stats")
	if stats.Documents != 3 {
		t.Errorf("expected 3 documents, got %d", stats.Documents)
	}
}

func TestRedisCache(t *testing.T) {
	client, err := pkgredis.NewClient(context.Background(), config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		DB:       envOrDefaultInt("TEST_REDIS_DB", 15),
		PoolSize: 4,
	})
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	s := newService(t, client)
	if _, err := client.DeleteByPattern(context.Background(), "lexsearch:*"); err != nil {
		t.Fatal(err)
	}

	first, _ := getJSON[executor.SearchResult](t, s.srv.URL+"/api/v1/search?q=phishing")
	second, _ := getJSON[executor.SearchResult](t, s.srv.URL+"/api/v1/search?q=phishing")
	if first.TotalHits != second.TotalHits || first.Results[0].Score != second.Results[0].Score {
		t.Errorf("expected the cached response to match, got %+v and %+v", first, second)
	}
	stats, _ := getJSON[map[string]any](t, s.srv.URL+"/api/v1/cache/stats")
	if stats["hits"] != float64(1) {
		t.Errorf("expected one cache hit, got %v", stats)
	}

	if err := s.reloader.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	getJSON[executor.SearchResult](t, s.srv.URL+"/api/v1/search?q=phishing")
	stats, _ = getJSON[map[string]any](t, s.srv.URL+"/api/v1/cache/stats")
	if stats["misses"] != float64(2) {
		t.Errorf("expected a miss after reload invalidation, got %v", stats)
	}
}
