package audit

import (
	"context"
	"errors"

	"conexus/pkg/requestcontext"
)

// fillFromContext backfills the timestamp, request ID, and actor from the
// request context when the emitter left them empty.
func fillFromContext(ctx context.Context, event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Actor == "" {
		event.Actor = requestcontext.ActorEmail(ctx)
	}
	return event
}

// StorePublisher writes events straight to a store. Tests use it to observe
// audit output synchronously.
type StorePublisher struct {
	store Store
}

func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	return p.store.Append(ctx, fillFromContext(ctx, event))
}

// ErrInboxFull reports a dropped event when the channel publisher's buffer
// is saturated. Audit is best-effort; emitters log the drop and move on.
var ErrInboxFull = errors.New("audit inbox full")

// ChannelPublisher hands events to a buffered channel drained by a Worker,
// keeping audit writes off the request path.
type ChannelPublisher struct {
	inbox chan Event
}

func NewChannelPublisher(buffer int) *ChannelPublisher {
	return &ChannelPublisher{inbox: make(chan Event, buffer)}
}

// Inbox is the channel a Worker drains.
func (p *ChannelPublisher) Inbox() <-chan Event {
	return p.inbox
}

func (p *ChannelPublisher) Emit(ctx context.Context, event Event) error {
	select {
	case p.inbox <- fillFromContext(ctx, event):
		return nil
	default:
		return ErrInboxFull
	}
}

// Worker consumes audit events from a channel and persists them.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}
