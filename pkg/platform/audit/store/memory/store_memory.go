package memory

import (
	"context"
	"sync"

	audit "sglgb/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
	seen   map[string]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	s := &InMemoryStore{}
	s.Clear()
	return s
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]audit.Event)
	s.seen = make(map[string]struct{})
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID != "" {
		if _, dup := s.seen[event.ID]; dup {
			return nil
		}
		s.seen[event.ID] = struct{}{}
	}
	s.events[event.AssessmentID] = append(s.events[event.AssessmentID], event)
	return nil
}

func (s *InMemoryStore) ListByAssessment(_ context.Context, assessmentID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[assessmentID]...), nil
}
