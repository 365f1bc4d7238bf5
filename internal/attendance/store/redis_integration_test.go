//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"conexus/internal/attendance/models"
	"conexus/internal/platform/redis"
	"conexus/pkg/testutil/containers"
)

func newRedisDedup(t *testing.T) (*RedisDedup, context.Context) {
	t.Helper()
	rc := containers.NewRedisContainer(t)
	client, err := redis.New(rc.Addr)
	require.NoError(t, err)
	return NewRedisDedup(NewInMemory(), client), context.Background()
}

func record(registrationID uuid.UUID, at time.Time) *models.Record {
	return &models.Record{
		ID:             uuid.New(),
		RegistrationID: registrationID,
		PortalLabel:    models.UnknownPortalLabel,
		DisplayName:    "Ada Reyes",
		ScannedAt:      at,
	}
}

func TestRedisDedupSuppressesWithinWindow(t *testing.T) {
	dedup, ctx := newRedisDedup(t)
	regID := uuid.New()
	now := time.Now()

	written, err := dedup.AppendIfQuiet(ctx, record(regID, now), time.Minute)
	require.NoError(t, err)
	require.True(t, written)

	written, err = dedup.AppendIfQuiet(ctx, record(regID, now.Add(time.Second)), time.Minute)
	require.NoError(t, err)
	require.False(t, written)

	logs, err := dedup.List(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

func TestRedisDedupWindowExpires(t *testing.T) {
	dedup, ctx := newRedisDedup(t)
	regID := uuid.New()
	now := time.Now()

	written, err := dedup.AppendIfQuiet(ctx, record(regID, now), 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, written)

	time.Sleep(300 * time.Millisecond)

	written, err = dedup.AppendIfQuiet(ctx, record(regID, now.Add(300*time.Millisecond)), 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, written)
}

func TestRedisDedupIndependentRegistrations(t *testing.T) {
	dedup, ctx := newRedisDedup(t)
	now := time.Now()

	for i := 0; i < 3; i++ {
		written, err := dedup.AppendIfQuiet(ctx, record(uuid.New(), now), time.Minute)
		require.NoError(t, err)
		require.True(t, written)
	}
}

func TestRedisDedupConcurrentScansWriteOnce(t *testing.T) {
	dedup, ctx := newRedisDedup(t)
	regID := uuid.New()
	now := time.Now()

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			written, err := dedup.AppendIfQuiet(ctx, record(regID, now), time.Minute)
			require.NoError(t, err)
			results[i] = written
		}(i)
	}
	wg.Wait()

	writes := 0
	for _, written := range results {
		if written {
			writes++
		}
	}
	require.Equal(t, 1, writes)
}
