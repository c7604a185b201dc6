package message

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and local development.
// Messages are copied on the way in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]Message
	now      func() time.Time
}

var (
	_ Store        = (*MemoryStore)(nil)
	_ Acknowledger = (*MemoryStore)(nil)
)

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryStoreClock sets the clock used to evaluate Criteria.NotDeleted.
func WithMemoryStoreClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty in-memory message store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		messages: make(map[string]Message),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	out := msg.Clone()
	return &out, nil
}

func (s *MemoryStore) Create(ctx context.Context, msg Message) (*Message, error) {
	if msg.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidMessage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[msg.ID]; exists {
		return nil, fmt.Errorf("%w: message %s already exists", ErrInvalidMessage, msg.ID)
	}
	s.messages[msg.ID] = msg.Clone()

	out := msg.Clone()
	return &out, nil
}

func (s *MemoryStore) Update(ctx context.Context, msg Message) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[msg.ID]; !exists {
		return nil, ErrMessageNotFound
	}
	s.messages[msg.ID] = msg.Clone()

	out := msg.Clone()
	return &out, nil
}

// Acknowledge records nodeID on the message under the store lock.
func (s *MemoryStore) Acknowledge(ctx context.Context, id, nodeID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return ErrMessageNotFound
	}
	if msg.AckedBy(nodeID) {
		return nil
	}
	msg.Acknowledgments = append(slices.Clone(msg.Acknowledgments), nodeID)
	msg.UpdatedAt = at
	s.messages[id] = msg
	return nil
}

// Delete removes the message. Deleting an unknown id is not an error.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, id)
	return nil
}

// Search returns matching messages ordered by creation time.
func (s *MemoryStore) Search(ctx context.Context, criteria Criteria) ([]Message, error) {
	now := s.now()

	s.mu.RLock()
	out := make([]Message, 0, len(s.messages))
	for _, msg := range s.messages {
		if criteria.Matches(msg, now) {
			out = append(out, msg.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Len returns the number of stored messages.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
