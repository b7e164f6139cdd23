package cache

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, false, errors.New("connection refused")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("connection refused")
	}
	m.data[key] = value
	return nil
}

func (m *memStore) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

type payload struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

func TestGetOrComputeCachesResult(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	key := Key{Kind: KindSearch, Query: "botnet", Limit: 5}
	calls := 0
	compute := func() (*payload, error) {
		calls++
		return &payload{Query: "botnet", Count: 3}, nil
	}

	first, hit, err := GetOrCompute(context.Background(), c, key, compute)
	if err != nil || hit {
		t.Fatalf("expected a computed miss, got hit=%v err=%v", hit, err)
	}
	second, hit, err := GetOrCompute(context.Background(), c, key, compute)
	if err != nil || !hit {
		t.Fatalf("expected a hit, got hit=%v err=%v", hit, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 computation, got %d", calls)
	}
	if *first != *second {
		t.Errorf("expected cached value %+v, got %+v", first, second)
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %+v", st)
	}
}

func TestGetOrComputePropagatesError(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := GetOrCompute(context.Background(), c, Key{Kind: KindSearch, Query: "x"}, func() (*payload, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected compute error, got %v", err)
	}
}

func TestStoreFailureFallsThrough(t *testing.T) {
	store := newMemStore()
	store.fail = true
	c := New(store, time.Minute, nil)
	var calls atomic.Int32
	for i := 0; i < 8; i++ {
		v, hit, err := GetOrCompute(context.Background(), c, Key{Kind: KindAnswer, Query: "worm"}, func() (*payload, error) {
			calls.Add(1)
			return &payload{Count: 1}, nil
		})
		if err != nil || hit || v.Count != 1 {
			t.Fatalf("expected computed value despite cache failure, got %+v hit=%v err=%v", v, hit, err)
		}
	}
	if calls.Load() != 8 {
		t.Errorf("expected every call computed, got %d", calls.Load())
	}
	st := c.Stats()
	if st.Breaker.State != "open" {
		t.Errorf("expected breaker open after repeated failures, got %s", st.Breaker.State)
	}
	if st.Errors == 0 {
		t.Error("expected cache errors to be counted")
	}
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	for _, q := range []string{"a", "b"} {
		_, _, _ = GetOrCompute(context.Background(), c, Key{Kind: KindSearch, Query: q}, func() (*payload, error) {
			return &payload{}, nil
		})
	}
	store.data["unrelated"] = []byte("1")
	if err := c.Invalidate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(store.data) != 1 {
		t.Errorf("expected only the unrelated key left, got %d keys", len(store.data))
	}
}

func TestBuildKey(t *testing.T) {
	base := Key{Kind: KindSearch, Query: "machine learning", Limit: 5}
	k := BuildKey(base)
	if !strings.HasPrefix(k, keyPrefix+KindSearch+":") {
		t.Errorf("unexpected key %q", k)
	}
	if BuildKey(base) != k {
		t.Error("key is not deterministic")
	}
	variants := []Key{
		{Kind: KindAnswer, Query: "machine learning", Limit: 5},
		{Kind: KindSearch, Query: "machine learning", Limit: 6},
		{Kind: KindSearch, Query: "machine learning", Limit: 5, Rerank: true},
		{Kind: KindSearch, Query: "Machine learning", Limit: 5},
	}
	for _, v := range variants {
		if BuildKey(v) == k {
			t.Errorf("expected %+v to produce a different key", v)
		}
	}
}
