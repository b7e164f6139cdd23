package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/kafka"
)

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	events := []QueryEvent{
		{Type: EventSearch, Query: "botnet", TotalHits: 3, LatencyMs: 10},
		{Type: EventSearch, Query: "botnet", TotalHits: 3, LatencyMs: 20, CacheHit: true},
		{Type: EventAnswer, Query: "zero day", TotalHits: 0, LatencyMs: 30, Reranked: true},
	}
	for _, e := range events {
		agg.RecordQuery(e)
	}
	agg.RecordIndex(IndexEvent{Type: EventIndexRebuild, Passages: 42, Timestamp: time.Unix(100, 0)})

	st := agg.Stats()
	if st.TotalSearches != 2 || st.TotalAnswers != 1 {
		t.Errorf("expected 2 searches and 1 answer, got %d/%d", st.TotalSearches, st.TotalAnswers)
	}
	if st.CacheHits != 1 || st.CacheMisses != 2 {
		t.Errorf("expected 1 hit 2 misses, got %d/%d", st.CacheHits, st.CacheMisses)
	}
	if st.ZeroResultCount != 1 || len(st.ZeroResultQueries) != 1 || st.ZeroResultQueries[0].Query != "zero day" {
		t.Errorf("unexpected zero-result stats %+v", st.ZeroResultQueries)
	}
	if st.RerankedCount != 1 {
		t.Errorf("expected 1 reranked, got %d", st.RerankedCount)
	}
	if st.AvgLatencyMs != 20 || st.P50LatencyMs != 20 || st.P99LatencyMs != 30 {
		t.Errorf("unexpected latency stats avg=%v p50=%d p99=%d", st.AvgLatencyMs, st.P50LatencyMs, st.P99LatencyMs)
	}
	if len(st.TopQueries) == 0 || st.TopQueries[0].Query != "botnet" || st.TopQueries[0].Count != 2 {
		t.Errorf("unexpected top queries %+v", st.TopQueries)
	}
	if st.IndexRebuilds != 1 || st.IndexPassages != 42 || st.LastRebuild == nil {
		t.Errorf("unexpected index stats %+v", st)
	}
}

func TestHandleEventDispatchesByType(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)
	encode := func(v any) []byte {
		b, _ := json.Marshal(v)
		return b
	}
	msgs := [][]byte{
		encode(QueryEvent{Type: EventSearch, Query: "worm", TotalHits: 1}),
		encode(QueryEvent{Type: EventAnswer, Query: "worm", TotalHits: 1}),
		encode(IndexEvent{Type: EventIndexRebuild, Passages: 7}),
		[]byte(`{"type":"unknown"}`),
		[]byte(`not json`),
	}
	for _, m := range msgs {
		if err := handle(context.Background(), nil, m); err != nil {
			t.Errorf("expected malformed events to be skipped, got %v", err)
		}
	}
	st := agg.Stats()
	if st.TotalSearches != 1 || st.TotalAnswers != 1 || st.IndexPassages != 7 {
		t.Errorf("unexpected stats %+v", st)
	}
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    bool
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlush(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 10, time.Hour)
	c.Track(QueryEvent{Type: EventSearch, Query: "a"})
	c.TrackIndex(IndexEvent{Type: EventIndexRebuild})
	if c.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", c.Pending())
	}
	c.Flush(context.Background())
	if pub.count() != 2 || c.Pending() != 0 {
		t.Errorf("expected 2 published and none pending, got %d/%d", pub.count(), c.Pending())
	}
	if string(pub.batches[0][1].Key) != string(EventIndexRebuild) {
		t.Errorf("expected event type as key, got %q", pub.batches[0][1].Key)
	}
}

func TestCollectorRequeuesAndCaps(t *testing.T) {
	pub := &fakePublisher{fail: true}
	c := NewCollector(pub, 2, time.Hour)
	for i := 0; i < 8; i++ {
		c.mu.Lock()
		c.buffer = append(c.buffer, kafka.Event{Key: "search"})
		c.mu.Unlock()
	}
	c.Flush(context.Background())
	if c.Pending() != 6 {
		t.Errorf("expected buffer capped at 6, got %d", c.Pending())
	}
	if c.Dropped() != 2 {
		t.Errorf("expected 2 dropped, got %d", c.Dropped())
	}
	pub.fail = false
	c.Flush(context.Background())
	if pub.count() != 6 {
		t.Errorf("expected re-queued events published, got %d", pub.count())
	}
}

func TestCollectorFinalFlushOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(QueryEvent{Type: EventSearch})
	cancel()
	c.Close()
	if pub.count() != 1 {
		t.Errorf("expected final flush to publish 1 event, got %d", pub.count())
	}
}

func TestStatsHandler(t *testing.T) {
	agg := NewAggregator()
	agg.RecordQuery(QueryEvent{Type: EventSearch, Query: "ids", TotalHits: 2})
	h := NewHandler(agg, nil)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var st AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.TotalSearches != 1 {
		t.Errorf("expected 1 search, got %d", st.TotalSearches)
	}

	rec = httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without history, got %d", rec.Code)
	}
}

type fakeHistory struct{ limit int }

func (f *fakeHistory) ListSnapshots(_ context.Context, limit int) ([]AggregatedStats, error) {
	f.limit = limit
	return []AggregatedStats{{TotalSearches: 5}}, nil
}

func TestHistoryHandler(t *testing.T) {
	hist := &fakeHistory{}
	h := NewHandler(NewAggregator(), hist)

	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=500", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if hist.limit != 100 {
		t.Errorf("expected limit clamped to 100, got %d", hist.limit)
	}

	rec = httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}
