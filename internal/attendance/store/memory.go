package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"conexus/internal/attendance/models"
	"conexus/pkg/platform/sentinel"
)

// InMemory keeps portals and the log in process memory. Used by tests and
// single-node deployments without Postgres.
type InMemory struct {
	mu      sync.RWMutex
	portals map[uuid.UUID]*models.Portal
	records []*models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{portals: make(map[uuid.UUID]*models.Portal)}
}

func (s *InMemory) CreatePortal(_ context.Context, p *models.Portal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.portals[p.ID] = &cp
	return nil
}

func (s *InMemory) ListPortals(_ context.Context) ([]*models.Portal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Portal, 0, len(s.portals))
	for _, p := range s.portals {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) FindPortal(_ context.Context, id uuid.UUID) (*models.Portal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portals[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) DeletePortal(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portals[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.portals, id)
	return nil
}

func (s *InMemory) AppendIfQuiet(_ context.Context, rec *models.Record, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := rec.ScannedAt.Add(-window)
	for i := len(s.records) - 1; i >= 0; i-- {
		prior := s.records[i]
		if prior.RegistrationID != rec.RegistrationID {
			continue
		}
		if prior.ScannedAt.After(cutoff) {
			return false, nil
		}
		break
	}

	cp := *rec
	s.records = append(s.records, &cp)
	return true, nil
}

func (s *InMemory) LastForRegistration(_ context.Context, registrationID uuid.UUID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].RegistrationID == registrationID {
			cp := *s.records[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		cp := *s.records[i]
		out = append(out, &cp)
	}
	return out, nil
}
