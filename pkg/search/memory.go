package search

import (
	"context"
	"maps"
	"sync"
)

// MemorySink keeps documents in memory keyed by type and id.
type MemorySink struct {
	mu       sync.Mutex
	docs     map[string]map[string]any
	ingested []Payload
}

func NewMemorySink() *MemorySink {
	return &MemorySink{docs: make(map[string]map[string]any)}
}

func memoryKey(typ, id string) string {
	return typ + "/" + id
}

func (s *MemorySink) Ingest(_ context.Context, p Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ingested = append(s.ingested, p)
	key := memoryKey(p.Type, p.ID)
	if p.Action == ActionDelete {
		delete(s.docs, key)
		return nil
	}
	s.docs[key] = maps.Clone(p.Document)
	return nil
}

// Document returns the stored document and whether it exists.
func (s *MemorySink) Document(typ, id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[memoryKey(typ, id)]
	return maps.Clone(doc), ok
}

// Ingested returns every payload received, in order.
func (s *MemorySink) Ingested() []Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Payload, len(s.ingested))
	copy(out, s.ingested)
	return out
}
