package analytics

import "time"

type EventType string

const (
	EventSearch       EventType = "search"
	EventAnswer       EventType = "answer"
	EventIndexRebuild EventType = "index_rebuild"
)

// QueryEvent records one served search or answer request.
type QueryEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	Reranked  bool      `json:"reranked"`
	CacheHit  bool      `json:"cache_hit"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// IndexEvent records an index swap after the corpus changed.
type IndexEvent struct {
	Type       EventType `json:"type"`
	Passages   int       `json:"passages"`
	Terms      int       `json:"terms"`
	Documents  int       `json:"documents"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// envelope reads only the discriminator of an encoded event.
type envelope struct {
	Type EventType `json:"type"`
}
