package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"conexus/internal/registration/models"
	"conexus/pkg/platform/sentinel"
)

// InMemory keeps registrations in a mutex-guarded map. The single mutex is
// what makes the capacity and card-binding check-then-write sequences atomic;
// it intentionally favors clarity over performance at this scale.
type InMemory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*models.Registration
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[uuid.UUID]*models.Registration)}
}

func (s *InMemory) Create(_ context.Context, r *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = clone(r)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(r), nil
}

func (s *InMemory) FindByCard(_ context.Context, card string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.BoundCard != "" && r.BoundCard == card {
			return clone(r), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// FindByOwnerEmail returns the newest registration for the email, matching
// the SQL store's created_at ordering when one person registered repeatedly.
func (s *InMemory) FindByOwnerEmail(_ context.Context, email string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var newest *models.Registration
	for _, r := range s.records {
		if r.OwnerEmail != email {
			continue
		}
		if newest == nil || r.CreatedAt.After(newest.CreatedAt) {
			newest = r
		}
	}
	if newest == nil {
		return nil, sentinel.ErrNotFound
	}
	return clone(newest), nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Registration, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, clone(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Registration, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, id uuid.UUID,
	validate func(*models.Registration) error,
	mutate func(*models.Registration)) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	mutate(r)
	return clone(r), nil
}

func (s *InMemory) ExecuteWithCapacity(_ context.Context, id uuid.UUID, roomID uuid.UUID, beds int,
	validate func(*models.Registration) error,
	mutate func(*models.Registration)) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	if s.occupancyLocked(roomID, id) >= beds {
		return nil, sentinel.ErrCapacityFull
	}
	mutate(r)
	return clone(r), nil
}

func (s *InMemory) BindCard(_ context.Context, id uuid.UUID, card string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	for _, other := range s.records {
		if other.ID != id && other.BoundCard == card {
			return nil, &CardConflictError{Card: card, HeldBy: other.ID}
		}
	}
	r.BoundCard = card
	return clone(r), nil
}

func (s *InMemory) UnbindCard(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.BoundCard = ""
	return nil
}

func (s *InMemory) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *InMemory) DeleteByEvent(_ context.Context, eventID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.records {
		if r.EventID == eventID {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func (s *InMemory) Occupancy(_ context.Context, roomID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.occupancyLocked(roomID, uuid.Nil), nil
}

func (s *InMemory) ReleaseRoom(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.RoomID = nil
	return nil
}

func (s *InMemory) ClearRoomAssignments(_ context.Context, roomIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.RoomID == nil {
			continue
		}
		for _, roomID := range roomIDs {
			if *r.RoomID == roomID {
				r.RoomID = nil
				break
			}
		}
	}
	return nil
}

// occupancyLocked counts approved registrations assigned to roomID, excluding
// exclude. Callers must hold s.mu.
func (s *InMemory) occupancyLocked(roomID uuid.UUID, exclude uuid.UUID) int {
	n := 0
	for _, r := range s.records {
		if r.ID != exclude && r.Status == models.StatusApproved && r.RoomID != nil && *r.RoomID == roomID {
			n++
		}
	}
	return n
}

func clone(r *models.Registration) *models.Registration {
	cp := *r
	if r.RoomID != nil {
		roomID := *r.RoomID
		cp.RoomID = &roomID
	}
	cp.Companions = make([]models.Companion, len(r.Companions))
	copy(cp.Companions, r.Companions)
	return &cp
}
