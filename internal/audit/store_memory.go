package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps events in memory. It backs tests and local runs;
// production deployments swap in a durable sink behind the same interface.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByEnrollment(_ context.Context, enrollmentID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.EnrollmentID == enrollmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every recorded event in order. Test helper.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}
