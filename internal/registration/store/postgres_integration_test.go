//go:build integration

package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"conexus/internal/registration/models"
	"conexus/pkg/platform/sentinel"
	"conexus/pkg/testutil/containers"
)

func newPostgresStore(t *testing.T) (*PostgresStore, context.Context) {
	t.Helper()
	pg := containers.NewPostgresContainer(t, "../../../schema.sql")
	return NewPostgres(pg.DB), context.Background()
}

func seedRegistration(t *testing.T, store *PostgresStore, ctx context.Context, status models.Status) *models.Registration {
	t.Helper()
	reg := &models.Registration{
		ID:         uuid.New(),
		EventID:    uuid.New(),
		OwnerName:  "Ada Reyes",
		OwnerEmail: uuid.NewString() + "@example.edu",
		Companions: []models.Companion{{Name: "Companion One"}},
		Status:     status,
	}
	require.NoError(t, store.Create(ctx, reg))
	return reg
}

func TestPostgresCreateAndFind(t *testing.T) {
	store, ctx := newPostgresStore(t)
	reg := seedRegistration(t, store, ctx, models.StatusPending)

	got, err := store.FindByID(ctx, reg.ID)
	require.NoError(t, err)
	require.Equal(t, reg.OwnerEmail, got.OwnerEmail)
	require.Len(t, got.Companions, 1)
	require.Equal(t, "Companion One", got.Companions[0].Name)

	_, err = store.FindByID(ctx, uuid.New())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresBindCardConflict(t *testing.T) {
	store, ctx := newPostgresStore(t)
	first := seedRegistration(t, store, ctx, models.StatusApproved)
	second := seedRegistration(t, store, ctx, models.StatusApproved)

	_, err := store.BindCard(ctx, first.ID, "X1")
	require.NoError(t, err)

	_, err = store.BindCard(ctx, second.ID, "X1")
	var conflict *CardConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, first.ID, conflict.HeldBy)

	// Deleting the holder frees the card.
	require.NoError(t, store.Delete(ctx, first.ID))
	_, err = store.BindCard(ctx, second.ID, "X1")
	require.NoError(t, err)
}

func TestPostgresConcurrentBindSingleWinner(t *testing.T) {
	store, ctx := newPostgresStore(t)

	regs := make([]*models.Registration, 8)
	for i := range regs {
		regs[i] = seedRegistration(t, store, ctx, models.StatusApproved)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(regs))
	for i, reg := range regs {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = store.BindCard(ctx, id, "X1")
		}(i, reg.ID)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			var conflict *CardConflictError
			require.ErrorAs(t, err, &conflict)
		}
	}
	require.Equal(t, 1, wins)
}

func TestPostgresConcurrentCapacityNeverOversubscribes(t *testing.T) {
	store, ctx := newPostgresStore(t)
	roomID := uuid.New()
	beds := 2

	regs := make([]*models.Registration, 6)
	for i := range regs {
		regs[i] = seedRegistration(t, store, ctx, models.StatusApproved)
	}

	var wg sync.WaitGroup
	for _, reg := range regs {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, _ = store.ExecuteWithCapacity(ctx, id, roomID, beds,
				func(*models.Registration) error { return nil },
				func(r *models.Registration) {
					assigned := roomID
					r.RoomID = &assigned
				})
		}(reg.ID)
	}
	wg.Wait()

	occ, err := store.Occupancy(ctx, roomID)
	require.NoError(t, err)
	require.Equal(t, beds, occ)
}

func TestPostgresCapacityFull(t *testing.T) {
	store, ctx := newPostgresStore(t)
	roomID := uuid.New()

	assign := func(id uuid.UUID) error {
		_, err := store.ExecuteWithCapacity(ctx, id, roomID, 1,
			func(*models.Registration) error { return nil },
			func(r *models.Registration) {
				assigned := roomID
				r.RoomID = &assigned
			})
		return err
	}

	first := seedRegistration(t, store, ctx, models.StatusApproved)
	require.NoError(t, assign(first.ID))

	second := seedRegistration(t, store, ctx, models.StatusApproved)
	require.True(t, errors.Is(assign(second.ID), sentinel.ErrCapacityFull))
}

func TestPostgresDeleteByEvent(t *testing.T) {
	store, ctx := newPostgresStore(t)
	eventID := uuid.New()

	for i := 0; i < 3; i++ {
		reg := seedRegistration(t, store, ctx, models.StatusPending)
		_, err := store.Execute(ctx, reg.ID,
			func(*models.Registration) error { return nil },
			func(r *models.Registration) { r.EventID = eventID })
		require.NoError(t, err)
	}
	kept := seedRegistration(t, store, ctx, models.StatusPending)

	n, err := store.DeleteByEvent(ctx, eventID)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	regs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, kept.ID, regs[0].ID)
}
