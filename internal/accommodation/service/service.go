// Package service implements the accommodation allocator: capacity-guarded
// seat assignment and the room/place cascades.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"conexus/internal/accommodation/models"
	"conexus/internal/accommodation/store"
	"conexus/internal/audit"
	regmodels "conexus/internal/registration/models"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/platform/sentinel"
	"conexus/pkg/requestcontext"
)

// SeatLedger is the slice of the registration store the allocator needs:
// derived occupancy and atomic seat mutations. Occupancy is recomputed from
// the ledger at decision time specifically to tolerate out-of-band status
// changes (revokes) without a secondary invalidation mechanism.
type SeatLedger interface {
	ExecuteWithCapacity(ctx context.Context, id uuid.UUID, roomID uuid.UUID, beds int,
		validate func(*regmodels.Registration) error,
		mutate func(*regmodels.Registration)) (*regmodels.Registration, error)
	Occupancy(ctx context.Context, roomID uuid.UUID) (int, error)
	ReleaseRoom(ctx context.Context, id uuid.UUID) error
	ClearRoomAssignments(ctx context.Context, roomIDs []uuid.UUID) error
}

// Service orchestrates places, rooms, and seat assignment.
type Service struct {
	rooms  store.Store
	seats  SeatLedger
	logger *slog.Logger
	audit  audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func New(rooms store.Store, seats SeatLedger, opts ...Option) *Service {
	s := &Service{
		rooms:  rooms,
		seats:  seats,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Room returns the room record, for callers that need the bed count before a
// combined approve-and-assign transition.
func (s *Service) Room(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	room, err := s.rooms.FindRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "room not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load room")
	}
	return room, nil
}

// TryAssign moves an already-approved registration into a room, enforcing
// capacity. The occupancy check excludes the registrant itself so moving
// within the same room is not self-blocking.
func (s *Service) TryAssign(ctx context.Context, registrationID, roomID uuid.UUID) error {
	room, err := s.Room(ctx, roomID)
	if err != nil {
		return err
	}

	_, err = s.seats.ExecuteWithCapacity(ctx, registrationID, roomID, room.Beds,
		func(r *regmodels.Registration) error {
			if r.Status != regmodels.StatusApproved {
				return dErrors.New(dErrors.CodeInvariantViolation, "only approved registrations can hold a seat")
			}
			return nil
		},
		func(r *regmodels.Registration) {
			assigned := roomID
			r.RoomID = &assigned
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrCapacityFull):
			return dErrors.Newf(dErrors.CodeCapacityExceeded, "room %s is full", room.Name)
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "registration not found")
		default:
			return err
		}
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionRoomAssigned,
		Subject: registrationID.String(),
		Detail:  "room " + room.Name,
	})
	return nil
}

// Release clears a registration's seat; no-op if none is held.
func (s *Service) Release(ctx context.Context, registrationID uuid.UUID) error {
	if err := s.seats.ReleaseRoom(ctx, registrationID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release seat")
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionRoomReleased,
		Subject: registrationID.String(),
	})
	return nil
}

// Occupancy derives the current seat count for a room.
func (s *Service) Occupancy(ctx context.Context, roomID uuid.UUID) (int, error) {
	return s.seats.Occupancy(ctx, roomID)
}

func (s *Service) CreatePlace(ctx context.Context, req *models.CreatePlaceRequest) (*models.Place, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	place := &models.Place{
		ID:        uuid.New(),
		Name:      req.Name,
		Type:      req.Type,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.rooms.CreatePlace(ctx, place); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create place")
	}
	return place, nil
}

func (s *Service) ListPlaces(ctx context.Context) ([]*models.Place, error) {
	return s.rooms.ListPlaces(ctx)
}

// DeletePlace cascades to all rooms under the place; registrations that held
// those rooms lose the assignment but keep their status.
func (s *Service) DeletePlace(ctx context.Context, placeID uuid.UUID) error {
	removed, err := s.rooms.DeletePlace(ctx, placeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "place not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete place")
	}
	if len(removed) > 0 {
		if err := s.seats.ClearRoomAssignments(ctx, removed); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear seat assignments")
		}
	}
	return nil
}

func (s *Service) CreateRoom(ctx context.Context, req *models.CreateRoomRequest) (*models.Room, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	room := &models.Room{
		ID:        uuid.New(),
		PlaceID:   req.PlaceID,
		Name:      req.Name,
		Beds:      req.Beds,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.rooms.CreateRoom(ctx, room); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "place not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create room")
	}
	return room, nil
}

func (s *Service) ListRooms(ctx context.Context) ([]*models.Room, error) {
	return s.rooms.ListRooms(ctx)
}

// DeleteRoom cascades assignment clears to registrations referencing the
// room. Their status is left untouched.
func (s *Service) DeleteRoom(ctx context.Context, roomID uuid.UUID) error {
	if err := s.rooms.DeleteRoom(ctx, roomID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "room not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete room")
	}
	if err := s.seats.ClearRoomAssignments(ctx, []uuid.UUID{roomID}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear seat assignments")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
