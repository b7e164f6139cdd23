// Command loadtest drives the search service with a mix of /search and
// /answer requests and prints per-endpoint latency percentiles.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-concurrency 10] [-duration 30s] [-answer-ratio 0.3] [-queries file]
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

var defaultQueries = []string{
	"intrusion detection",
	"malware classification",
	"phishing email detection",
	"adversarial machine learning",
	"network anomaly detection",
	"zero day vulnerability",
	"botnet command and control",
	"side channel attacks",
	"differential privacy",
	"access control policies",
	"threat intelligence sharing",
	"ransomware encryption",
}

type config struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	answerRatio float64
	rerank      bool
	queries     []string
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	answerRatio := flag.Float64("answer-ratio", 0.3, "fraction of requests sent to /api/v1/answer")
	rerank := flag.Bool("rerank", false, "request reranked results")
	queriesPath := flag.String("queries", "", "file with one query per line")
	flag.Parse()

	queries := defaultQueries
	if *queriesPath != "" {
		loaded, err := readQueries(*queriesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
		queries = loaded
	}
	cfg := config{
		baseURL:     strings.TrimRight(*baseURL, "/"),
		concurrency: *concurrency,
		duration:    *duration,
		answerRatio: *answerRatio,
		rerank:      *rerank,
		queries:     queries,
	}

	fmt.Println("=== lexsearch load test ===")
	fmt.Printf("Target:      %s\n", cfg.baseURL)
	fmt.Printf("Concurrency: %d\n", cfg.concurrency)
	fmt.Printf("Duration:    %s\n", cfg.duration)
	fmt.Printf("Queries:     %d unique, %.0f%% answers\n", len(cfg.queries), cfg.answerRatio*100)
	fmt.Println()

	rec := newRecorder()
	if err := run(cfg, rec); err != nil {
		fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}
	report := rec.report(cfg.duration)
	fmt.Print(report.String())
	if report.Total == 0 {
		fmt.Println("\nWARNING: no requests completed. Is the service running?")
		os.Exit(1)
	}
}

func run(cfg config, rec *recorder) error {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.concurrency * 2,
			MaxIdleConnsPerHost: cfg.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				endpoint := pickEndpoint(i, cfg.answerRatio)
				target := requestURL(cfg.baseURL, endpoint, cfg.queries[i%len(cfg.queries)], cfg.rerank)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					return fmt.Errorf("building request: %w", err)
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
						rec.record(endpoint, elapsed, 0)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				rec.record(endpoint, elapsed, resp.StatusCode)
			}
			return nil
		})
	}
	return g.Wait()
}

// pickEndpoint spreads answer requests evenly: request i goes to /answer
// when the running answer count falls behind ratio.
func pickEndpoint(i int, ratio float64) string {
	if int(float64(i+1)*ratio) > int(float64(i)*ratio) {
		return "answer"
	}
	return "search"
}

func requestURL(base, endpoint, query string, rerank bool) string {
	v := url.Values{}
	v.Set("q", query)
	if rerank {
		v.Set("rerank", "true")
	}
	return fmt.Sprintf("%s/api/v1/%s?%s", base, endpoint, v.Encode())
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var queries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%s contains no queries", path)
	}
	return queries, nil
}
