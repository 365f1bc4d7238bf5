package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conexus/pkg/requestcontext"
)

func TestStorePublisherFillsContextFields(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewStorePublisher(store)

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithActorEmail(ctx, "staff@example.edu")

	err := publisher.Emit(ctx, Event{
		Action:  ActionCardBound,
		Subject: "registration-1",
	})
	require.NoError(t, err)

	events, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionCardBound, events[0].Action)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, "staff@example.edu", events[0].Actor)
}

func TestStorePublisherKeepsExplicitFields(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewStorePublisher(store)

	stamped := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithActorEmail(context.Background(), "ignored@example.edu")

	err := publisher.Emit(ctx, Event{
		Timestamp: stamped,
		Action:    ActionScanRecorded,
		Subject:   "registration-2",
		Actor:     "portal-3",
	})
	require.NoError(t, err)

	events, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stamped, events[0].Timestamp)
	assert.Equal(t, "portal-3", events[0].Actor)
}

func TestChannelPublisherDeliversThroughWorker(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewChannelPublisher(4)
	worker := NewWorker(store, publisher.Inbox())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	emitCtx := requestcontext.WithRequestID(context.Background(), "req-9")
	require.NoError(t, publisher.Emit(emitCtx, Event{Action: ActionBatchCompleted, Subject: "run-1"}))

	require.Eventually(t, func() bool {
		events, err := store.List(context.Background())
		return err == nil && len(events) == 1
	}, time.Second, 5*time.Millisecond)

	events, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionBatchCompleted, events[0].Action)
	assert.Equal(t, "req-9", events[0].RequestID)
}

func TestChannelPublisherDropsWhenFull(t *testing.T) {
	publisher := NewChannelPublisher(1)

	require.NoError(t, publisher.Emit(context.Background(), Event{Action: ActionScanRecorded}))
	err := publisher.Emit(context.Background(), Event{Action: ActionScanRecorded})
	assert.ErrorIs(t, err, ErrInboxFull)
}

func TestWorkerDrainsInbox(t *testing.T) {
	store := NewInMemoryStore()
	inbox := make(chan Event, 4)
	worker := NewWorker(store, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- Event{Action: ActionStatusChanged, Subject: "registration-1"}
	inbox <- Event{Action: ActionRoomAssigned, Subject: "registration-1"}

	require.Eventually(t, func() bool {
		events, err := store.List(context.Background())
		return err == nil && len(events) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
