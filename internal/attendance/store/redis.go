package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"conexus/internal/attendance/models"
	"conexus/internal/platform/redis"
)

// RedisDedup decorates a LogStore with a Redis-backed duplicate index so
// multiple service nodes share one dedup window. The key is set only on a
// successful write and expires after the window, which preserves the
// sliding-from-last-record semantics: a suppressed duplicate never extends
// the window.
type RedisDedup struct {
	inner LogStore
	rdb   *redis.Client
}

func NewRedisDedup(inner LogStore, rdb *redis.Client) *RedisDedup {
	return &RedisDedup{inner: inner, rdb: rdb}
}

func dedupKey(registrationID uuid.UUID) string {
	return "conexus:scan:" + registrationID.String()
}

func (s *RedisDedup) AppendIfQuiet(ctx context.Context, rec *models.Record, window time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, dedupKey(rec.RegistrationID), rec.ScannedAt.UnixMilli(), window).Result()
	if err != nil {
		return false, fmt.Errorf("scan dedup index: %w", err)
	}
	if !ok {
		return false, nil
	}

	written, err := s.inner.AppendIfQuiet(ctx, rec, window)
	if err != nil || !written {
		// Free the slot so the next scan is not silently swallowed.
		_ = s.rdb.Del(ctx, dedupKey(rec.RegistrationID)).Err()
	}
	return written, err
}

func (s *RedisDedup) LastForRegistration(ctx context.Context, registrationID uuid.UUID) (*models.Record, error) {
	return s.inner.LastForRegistration(ctx, registrationID)
}

func (s *RedisDedup) List(ctx context.Context) ([]*models.Record, error) {
	return s.inner.List(ctx)
}
