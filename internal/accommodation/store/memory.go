package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"conexus/internal/accommodation/models"
	"conexus/pkg/platform/sentinel"
)

// InMemory keeps places and rooms in mutex-guarded maps.
type InMemory struct {
	mu     sync.RWMutex
	places map[uuid.UUID]*models.Place
	rooms  map[uuid.UUID]*models.Room
}

func NewInMemory() *InMemory {
	return &InMemory{
		places: make(map[uuid.UUID]*models.Place),
		rooms:  make(map[uuid.UUID]*models.Room),
	}
}

func (s *InMemory) CreatePlace(_ context.Context, p *models.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.places[p.ID] = &cp
	return nil
}

func (s *InMemory) ListPlaces(_ context.Context) ([]*models.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Place, 0, len(s.places))
	for _, p := range s.places {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) FindPlace(_ context.Context, id uuid.UUID) (*models.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.places[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) DeletePlace(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.places[id]; !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(s.places, id)

	var removed []uuid.UUID
	for roomID, room := range s.rooms {
		if room.PlaceID == id {
			delete(s.rooms, roomID)
			removed = append(removed, roomID)
		}
	}
	return removed, nil
}

func (s *InMemory) CreateRoom(_ context.Context, r *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.places[r.PlaceID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *r
	s.rooms[r.ID] = &cp
	return nil
}

func (s *InMemory) ListRooms(_ context.Context) ([]*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) FindRoom(_ context.Context, id uuid.UUID) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *InMemory) DeleteRoom(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.rooms, id)
	return nil
}
