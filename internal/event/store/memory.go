package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"conexus/internal/event/models"
	"conexus/pkg/platform/sentinel"
)

// InMemory keeps the catalog in process memory.
type InMemory struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*models.Event
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[uuid.UUID]*models.Event)}
}

func (s *InMemory) Create(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Event, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *InMemory) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.events, id)
	return nil
}
