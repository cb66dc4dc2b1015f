// Package store persists assessment aggregates. Both implementations keep
// one row per (unit, year) and guard updates with the aggregate version.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"sglgb/internal/assessment/models"
	"sglgb/pkg/platform/sentinel"
)

type unitYear struct {
	unitID string
	year   int
}

// InMemoryStore keeps assessments in process. Callers get clones, so a
// caller mutating its copy never leaks into the store.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*models.Assessment
	byUnit map[unitYear]string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[string]*models.Assessment),
		byUnit: make(map[unitYear]string),
	}
}

// Create stores a as version 1.
func (s *InMemoryStore) Create(_ context.Context, a *models.Assessment) error {
	if a == nil {
		return fmt.Errorf("assessment is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := unitYear{a.UnitID, a.Year}
	if _, taken := s.byUnit[key]; taken {
		return fmt.Errorf("assessment for unit %s year %d: %w", a.UnitID, a.Year, sentinel.ErrAlreadyUsed)
	}
	if _, taken := s.byID[a.ID]; taken {
		return fmt.Errorf("assessment %s: %w", a.ID, sentinel.ErrAlreadyUsed)
	}
	a.Version = 1
	s.byID[a.ID] = a.Clone()
	s.byUnit[key] = a.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("assessment %s: %w", id, sentinel.ErrNotFound)
	}
	return a.Clone(), nil
}

// Update replaces the stored aggregate when its version still equals
// a.Version, then bumps a.Version.
func (s *InMemoryStore) Update(_ context.Context, a *models.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[a.ID]
	if !ok {
		return fmt.Errorf("assessment %s: %w", a.ID, sentinel.ErrNotFound)
	}
	if current.Version != a.Version {
		return fmt.Errorf("assessment %s at version %d, have %d: %w", a.ID, current.Version, a.Version, sentinel.ErrConflict)
	}
	a.Version++
	s.byID[a.ID] = a.Clone()
	return nil
}

// ListIDsByStatus returns matching ids in creation-independent sorted
// order. A zero year matches every year.
func (s *InMemoryStore) ListIDsByStatus(_ context.Context, status models.Status, year int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0)
	for id, a := range s.byID {
		if a.Status != status {
			continue
		}
		if year != 0 && a.Year != year {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
