// Package service implements the registration ledger: submission, the
// approval state machine, and the coupled seat and card lifecycles.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	accmodels "conexus/internal/accommodation/models"
	"conexus/internal/audit"
	"conexus/internal/platform/metrics"
	"conexus/internal/registration/models"
	"conexus/internal/registration/store"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/platform/sentinel"
	"conexus/pkg/requestcontext"
)

// Allocator is the slice of the accommodation service the ledger needs for
// the combined approve-and-assign path.
type Allocator interface {
	Room(ctx context.Context, roomID uuid.UUID) (*accmodels.Room, error)
}

// Binder owns card bindings; the ledger delegates and reports conflicts
// unchanged.
type Binder interface {
	Bind(ctx context.Context, registrationID uuid.UUID, cardValue string) error
	Unbind(ctx context.Context, registrationID uuid.UUID) error
}

// Service is the registration ledger.
type Service struct {
	store     store.Store
	allocator Allocator
	binder    Binder
	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     audit.Publisher

	// releaseRoomOnRevoke frees the seat when an approved registration is
	// rejected. Off by default: the seat is held until an operator
	// reassigns or deletes, which matches the upstream dashboard flow.
	releaseRoomOnRevoke bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithReleaseRoomOnRevoke(enabled bool) Option {
	return func(s *Service) { s.releaseRoomOnRevoke = enabled }
}

func New(st store.Store, allocator Allocator, binder Binder, opts ...Option) *Service {
	s := &Service{
		store:     st,
		allocator: allocator,
		binder:    binder,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a registration in pending approval. The same identity may
// submit more than once for the same event; the upstream system never
// enforced uniqueness here and operators rely on that for family group
// corrections.
func (s *Service) Submit(ctx context.Context, req *models.SubmitRequest) (*models.Registration, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reg := &models.Registration{
		ID:         uuid.New(),
		EventID:    req.EventID,
		OwnerName:  req.OwnerName,
		OwnerEmail: req.OwnerEmail,
		University: req.University,
		Companions: req.Companions,
		Status:     models.StatusPending,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, reg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
	}

	if s.metrics != nil {
		s.metrics.RegistrationsSubmitted.Inc()
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionRegistrationSubmitted,
		Subject: reg.ID.String(),
		Detail:  reg.OwnerEmail,
	})
	s.logger.InfoContext(ctx, "registration submitted",
		"request_id", requestcontext.RequestID(ctx),
		"registration_id", reg.ID,
		"event_id", reg.EventID,
	)
	return reg, nil
}

// SetStatus drives the approval state machine. When approving with a room,
// the capacity check and the status write commit together or not at all.
// Revoking (approved to rejected) requires a non-empty note.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, req *models.UpdateStatusRequest) (*models.Registration, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	validate := func(r *models.Registration) error {
		if err := r.CanTransition(req.Status); err != nil {
			return err
		}
		if r.IsRevoke(req.Status) && req.Note == "" {
			return dErrors.New(dErrors.CodeValidation, "a note is required when revoking an approved registration")
		}
		return nil
	}
	mutate := func(r *models.Registration) {
		if r.IsRevoke(req.Status) {
			r.AdminNote = req.Note
			if s.releaseRoomOnRevoke {
				r.RoomID = nil
			}
		}
		r.Status = req.Status
		if req.RoomID != nil {
			assigned := *req.RoomID
			r.RoomID = &assigned
		}
	}

	var (
		updated *models.Registration
		err     error
	)
	if req.Status == models.StatusApproved && req.RoomID != nil {
		var room *accmodels.Room
		room, err = s.allocator.Room(ctx, *req.RoomID)
		if err != nil {
			return nil, err
		}
		updated, err = s.store.ExecuteWithCapacity(ctx, id, room.ID, room.Beds, validate, mutate)
		if errors.Is(err, sentinel.ErrCapacityFull) {
			if s.metrics != nil {
				s.metrics.AssignmentsRejected.Inc()
			}
			return nil, dErrors.Newf(dErrors.CodeCapacityExceeded, "room %s is full", room.Name)
		}
	} else {
		updated, err = s.store.Execute(ctx, id, validate, mutate)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(req.Status)).Inc()
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionStatusChanged,
		Subject: id.String(),
		Detail:  string(req.Status),
	})
	s.logger.InfoContext(ctx, "registration status changed",
		"request_id", requestcontext.RequestID(ctx),
		"registration_id", id,
		"status", req.Status,
	)
	return updated, nil
}

// BindCard delegates to the identity binder. On conflict the ledger record
// is unchanged.
func (s *Service) BindCard(ctx context.Context, id uuid.UUID, req *models.BindCardRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}
	return s.binder.Bind(ctx, id, req.CardValue)
}

// Delete removes a registration. The card binding and the room seat travel
// with the record, so both free automatically; the explicit unbind keeps the
// audit trail complete.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	reg, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}

	if reg.BoundCard != "" {
		if err := s.binder.Unbind(ctx, id); err != nil {
			return err
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete registration")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionRegistrationDeleted,
		Subject: id.String(),
	})
	return nil
}

// DeleteByEvent removes every registration for an event; used by the event
// catalog's delete cascade.
func (s *Service) DeleteByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	n, err := s.store.DeleteByEvent(ctx, eventID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete registrations for event")
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	reg, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return reg, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Registration, error) {
	regs, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return regs, nil
}

// ListByIDs is the dispatcher's bulk lookup for a notification batch.
func (s *Service) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Registration, error) {
	regs, err := s.store.ListByIDs(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return regs, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
