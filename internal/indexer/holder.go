package indexer

import "sync/atomic"

// Holder publishes the serving engine. Readers take the current engine once
// per query; Swap replaces it with a fully built one.
type Holder struct {
	current atomic.Pointer[Engine]
}

func NewHolder(e *Engine) *Holder {
	h := &Holder{}
	h.current.Store(e)
	return h
}

// Engine returns the engine currently serving queries.
func (h *Holder) Engine() *Engine {
	return h.current.Load()
}

// Swap installs e and returns the engine it replaced.
func (h *Holder) Swap(e *Engine) *Engine {
	return h.current.Swap(e)
}
