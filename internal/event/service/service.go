// Package service manages the event catalog and its delete cascade into the
// registration ledger.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"conexus/internal/event/models"
	"conexus/internal/event/store"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/platform/sentinel"
	"conexus/pkg/requestcontext"
)

// Registrations is the ledger slice the catalog needs for cascades.
type Registrations interface {
	DeleteByEvent(ctx context.Context, eventID uuid.UUID) (int, error)
}

type Service struct {
	store  store.Store
	ledger Registrations
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(st store.Store, ledger Registrations, opts ...Option) *Service {
	s := &Service{
		store:  st,
		ledger: ledger,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	event := &models.Event{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}
	return event, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Event, error) {
	events, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	return event, nil
}

// Delete removes the event and every registration under it. Seats and card
// bindings travel with the registrations, so both free automatically.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete event")
	}

	n, err := s.ledger.DeleteByEvent(ctx, id)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "event deleted",
		"request_id", requestcontext.RequestID(ctx),
		"event_id", id,
		"registrations_removed", n,
	)
	return nil
}
