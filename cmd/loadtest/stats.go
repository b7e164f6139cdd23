package main

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

type recorder struct {
	mu        sync.Mutex
	latencies map[string][]time.Duration
	statuses  map[int]int
	errors    int
}

func newRecorder() *recorder {
	return &recorder{
		latencies: make(map[string][]time.Duration),
		statuses:  make(map[int]int),
	}
}

// record stores one request. status 0 means the request never got a
// response.
func (r *recorder) record(endpoint string, d time.Duration, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if status == 0 || status >= 400 {
		r.errors++
	}
	if status != 0 {
		r.statuses[status]++
		r.latencies[endpoint] = append(r.latencies[endpoint], d)
	}
}

type endpointReport struct {
	Name          string
	Count         int
	P50, P95, P99 time.Duration
	Max           time.Duration
}

type report struct {
	Total     int
	Errors    int
	RPS       float64
	Endpoints []endpointReport
	Statuses  map[int]int
}

func (r *recorder) report(elapsed time.Duration) report {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep := report{Errors: r.errors, Statuses: make(map[int]int, len(r.statuses))}
	for code, n := range r.statuses {
		rep.Statuses[code] = n
		rep.Total += n
	}
	rep.Total += r.errors - errorStatuses(r.statuses)
	if elapsed > 0 {
		rep.RPS = float64(rep.Total) / elapsed.Seconds()
	}
	names := make([]string, 0, len(r.latencies))
	for name := range r.latencies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sorted := slices.Clone(r.latencies[name])
		slices.Sort(sorted)
		rep.Endpoints = append(rep.Endpoints, endpointReport{
			Name:  name,
			Count: len(sorted),
			P50:   percentile(sorted, 50),
			P95:   percentile(sorted, 95),
			P99:   percentile(sorted, 99),
			Max:   sorted[len(sorted)-1],
		})
	}
	return rep
}

func errorStatuses(statuses map[int]int) int {
	n := 0
	for code, count := range statuses {
		if code >= 400 {
			n += count
		}
	}
	return n
}

func (r report) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, "=== Results ===")
	fmt.Fprintf(&b, "Total Requests: %d\n", r.Total)
	fmt.Fprintf(&b, "Errors:         %d\n", r.Errors)
	fmt.Fprintf(&b, "Requests/sec:   %.2f\n", r.RPS)
	for _, e := range r.Endpoints {
		fmt.Fprintf(&b, "\n=== /api/v1/%s (%d) ===\n", e.Name, e.Count)
		fmt.Fprintf(&b, "P50: %s  P95: %s  P99: %s  Max: %s\n", e.P50, e.P95, e.P99, e.Max)
	}
	codes := make([]int, 0, len(r.Statuses))
	for code := range r.Statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	fmt.Fprintln(&b, "\n=== Status Codes ===")
	for _, code := range codes {
		fmt.Fprintf(&b, "  %d: %d\n", code, r.Statuses[code])
	}
	return b.String()
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
