// Package identity enforces the exclusive mapping between a physical card
// and an active registration.
package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"conexus/internal/audit"
	"conexus/internal/platform/metrics"
	regmodels "conexus/internal/registration/models"
	regstore "conexus/internal/registration/store"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/platform/sentinel"
)

// CardStore is the slice of the registration store the binder needs. BindCard
// must perform the existence check and the write as one atomic compare-and-set.
type CardStore interface {
	BindCard(ctx context.Context, id uuid.UUID, card string) (*regmodels.Registration, error)
	UnbindCard(ctx context.Context, id uuid.UUID) error
	FindByCard(ctx context.Context, card string) (*regmodels.Registration, error)
}

// Binder owns card bindings.
type Binder struct {
	store   CardStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   audit.Publisher
}

type Option func(*Binder)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) { b.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Binder) { b.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(b *Binder) { b.audit = publisher }
}

func New(store CardStore, opts ...Option) *Binder {
	b := &Binder{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var errCardBound = dErrors.New(dErrors.CodeConflict, "card already bound")

// ConflictError carries the holder so callers can tell the operator which
// registration to unbind first.
type ConflictError struct {
	Card   string
	HeldBy uuid.UUID
}

func (e *ConflictError) Error() string {
	return "card " + e.Card + " already bound to registration " + e.HeldBy.String()
}

func (e *ConflictError) Unwrap() error { return errCardBound }

// Bind attaches cardValue to the registration. Rebinding the same card to
// the same registration is a no-op success.
func (b *Binder) Bind(ctx context.Context, registrationID uuid.UUID, cardValue string) error {
	req := regmodels.BindCardRequest{CardValue: cardValue}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	_, err := b.store.BindCard(ctx, registrationID, req.CardValue)
	if err != nil {
		var conflict *regstore.CardConflictError
		if errors.As(err, &conflict) {
			if b.metrics != nil {
				b.metrics.CardBindConflicts.Inc()
			}
			b.logger.WarnContext(ctx, "card bind conflict",
				"registration_id", registrationID,
				"held_by", conflict.HeldBy,
			)
			return &ConflictError{Card: conflict.Card, HeldBy: conflict.HeldBy}
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to bind card")
	}

	b.emit(ctx, audit.Event{
		Action:  audit.ActionCardBound,
		Subject: registrationID.String(),
	})
	return nil
}

// Unbind clears any binding held by the registration.
func (b *Binder) Unbind(ctx context.Context, registrationID uuid.UUID) error {
	if err := b.store.UnbindCard(ctx, registrationID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to unbind card")
	}
	b.emit(ctx, audit.Event{
		Action:  audit.ActionCardUnbound,
		Subject: registrationID.String(),
	})
	return nil
}

// Resolve looks up the registration currently holding cardValue.
func (b *Binder) Resolve(ctx context.Context, cardValue string) (*regmodels.Registration, error) {
	reg, err := b.store.FindByCard(ctx, cardValue)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no registration holds this card")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve card")
	}
	return reg, nil
}

func (b *Binder) emit(ctx context.Context, event audit.Event) {
	if b.audit == nil {
		return
	}
	if err := b.audit.Emit(ctx, event); err != nil {
		b.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
