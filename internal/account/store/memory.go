package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"conexus/internal/account/models"
	"conexus/pkg/platform/sentinel"
)

// InMemory keeps accounts in process memory.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*models.Account
	byEmail  map[string]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[uuid.UUID]*models.Account),
		byEmail:  make(map[string]uuid.UUID),
	}
}

func (s *InMemory) Create(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[a.Email]; taken {
		return sentinel.ErrAlreadyBound
	}
	cp := *a
	s.accounts[a.ID] = &cp
	s.byEmail[a.Email] = a.ID
	return nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.accounts[id]
	return &cp, nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}
