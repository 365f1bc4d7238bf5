package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	accmodels "conexus/internal/accommodation/models"
	accservice "conexus/internal/accommodation/service"
	accstore "conexus/internal/accommodation/store"
	"conexus/internal/identity"
	"conexus/internal/registration/models"
	regstore "conexus/internal/registration/store"
	dErrors "conexus/pkg/domain-errors"
)

type LedgerSuite struct {
	suite.Suite
	svc       *Service
	store     *regstore.InMemory
	allocator *accservice.Service
	ctx       context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.store = regstore.NewInMemory()
	rooms := accstore.NewInMemory()
	s.allocator = accservice.New(rooms, s.store)
	binder := identity.New(s.store)
	s.svc = New(s.store, s.allocator, binder)
	s.ctx = context.Background()
}

func (s *LedgerSuite) submit() *models.Registration {
	reg, err := s.svc.Submit(s.ctx, &models.SubmitRequest{
		EventID:    uuid.New(),
		OwnerName:  "Ada Reyes",
		OwnerEmail: uuid.NewString() + "@example.edu",
		University: "Leyte State",
	})
	s.Require().NoError(err)
	return reg
}

func (s *LedgerSuite) seedRoom(beds int) *accmodels.Room {
	place, err := s.allocator.CreatePlace(s.ctx, &accmodels.CreatePlaceRequest{Name: "North Dorm", Type: accmodels.PlaceDorm})
	s.Require().NoError(err)
	room, err := s.allocator.CreateRoom(s.ctx, &accmodels.CreateRoomRequest{PlaceID: place.ID, Name: "101", Beds: beds})
	s.Require().NoError(err)
	return room
}

func (s *LedgerSuite) approveInto(reg *models.Registration, roomID uuid.UUID) (*models.Registration, error) {
	return s.svc.SetStatus(s.ctx, reg.ID, &models.UpdateStatusRequest{
		Status: models.StatusApproved,
		RoomID: &roomID,
	})
}

func (s *LedgerSuite) TestSubmitStartsPending() {
	reg := s.submit()
	s.Equal(models.StatusPending, reg.Status)
	s.Nil(reg.RoomID)
	s.Empty(reg.BoundCard)
}

func (s *LedgerSuite) TestDuplicateSubmissionsAllowed() {
	email := "ada@example.edu"
	eventID := uuid.New()
	for i := 0; i < 2; i++ {
		_, err := s.svc.Submit(s.ctx, &models.SubmitRequest{
			EventID:    eventID,
			OwnerName:  "Ada Reyes",
			OwnerEmail: email,
		})
		s.Require().NoError(err)
	}
	regs, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Len(regs, 2)
}

func (s *LedgerSuite) TestApproveWithRoomCommitsBoth() {
	room := s.seedRoom(2)
	reg := s.submit()

	updated, err := s.approveInto(reg, room.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, updated.Status)
	s.Require().NotNil(updated.RoomID)
	s.Equal(room.ID, *updated.RoomID)
}

func (s *LedgerSuite) TestApproveIntoFullRoomCommitsNeither() {
	room := s.seedRoom(2)
	for i := 0; i < 2; i++ {
		_, err := s.approveInto(s.submit(), room.ID)
		s.Require().NoError(err)
	}

	third := s.submit()
	_, err := s.approveInto(third, room.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))

	// Neither the status nor the assignment may have moved.
	got, err := s.svc.Get(s.ctx, third.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, got.Status)
	s.Nil(got.RoomID)

	occ, err := s.allocator.Occupancy(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(2, occ)
}

func (s *LedgerSuite) TestSelfTransitionRejected() {
	reg := s.submit()
	_, err := s.svc.SetStatus(s.ctx, reg.ID, &models.UpdateStatusRequest{Status: models.StatusPending})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *LedgerSuite) TestRejectedCanBeApprovedAgain() {
	reg := s.submit()
	_, err := s.svc.SetStatus(s.ctx, reg.ID, &models.UpdateStatusRequest{Status: models.StatusRejected})
	s.Require().NoError(err)

	updated, err := s.svc.SetStatus(s.ctx, reg.ID, &models.UpdateStatusRequest{Status: models.StatusApproved})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, updated.Status)
}

func (s *LedgerSuite) TestRevokeRequiresNote() {
	reg := s.submit()
	_, err := s.svc.SetStatus(s.ctx, reg.ID, &models.UpdateStatusRequest{Status: models.StatusApproved})
	s.Require().NoError(err)

	_, err = s.svc.SetStatus(s.ctx, reg.ID, &models.UpdateStatusRequest{Status: models.StatusRejected})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	updated, err := s.svc.SetStatus(s.ctx, reg.ID, &models.UpdateStatusRequest{
		Status: models.StatusRejected,
		Note:   "duplicate of an earlier group registration",
	})
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, updated.Status)
	s.Equal("duplicate of an earlier group registration", updated.AdminNote)
}

func (s *LedgerSuite) TestRevokeKeepsSeatByDefault() {
	room := s.seedRoom(2)
	reg := s.submit()
	_, err := s.approveInto(reg, room.ID)
	s.Require().NoError(err)

	updated, err := s.svc.SetStatus(s.ctx, reg.ID, &models.UpdateStatusRequest{
		Status: models.StatusRejected,
		Note:   "failed payment follow-up",
	})
	s.Require().NoError(err)
	s.Require().NotNil(updated.RoomID)

	// The seat no longer counts toward occupancy once the status left
	// approved, even though the assignment field is retained.
	occ, err := s.allocator.Occupancy(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(0, occ)
}

func (s *LedgerSuite) TestRevokeReleasesSeatWhenConfigured() {
	s.svc = New(s.store, s.allocator, identity.New(s.store), WithReleaseRoomOnRevoke(true))

	room := s.seedRoom(2)
	reg := s.submit()
	_, err := s.approveInto(reg, room.ID)
	s.Require().NoError(err)

	updated, err := s.svc.SetStatus(s.ctx, reg.ID, &models.UpdateStatusRequest{
		Status: models.StatusRejected,
		Note:   "no-show",
	})
	s.Require().NoError(err)
	s.Nil(updated.RoomID)
}

func (s *LedgerSuite) TestRoomOnlyAcceptedWhenApproving() {
	reg := s.submit()
	roomID := uuid.New()
	_, err := s.svc.SetStatus(s.ctx, reg.ID, &models.UpdateStatusRequest{
		Status: models.StatusRejected,
		RoomID: &roomID,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *LedgerSuite) TestApproveWithUnknownRoom() {
	reg := s.submit()
	_, err := s.approveInto(reg, uuid.New())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *LedgerSuite) TestBindConflictLeavesLedgerUnchanged() {
	first := s.submit()
	second := s.submit()
	s.Require().NoError(s.svc.BindCard(s.ctx, first.ID, &models.BindCardRequest{CardValue: "X1"}))

	err := s.svc.BindCard(s.ctx, second.ID, &models.BindCardRequest{CardValue: "X1"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	got, err := s.svc.Get(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Empty(got.BoundCard)
}

func (s *LedgerSuite) TestDeleteFreesCardAndSeat() {
	room := s.seedRoom(1)
	first := s.submit()
	_, err := s.approveInto(first, room.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.svc.BindCard(s.ctx, first.ID, &models.BindCardRequest{CardValue: "X1"}))

	s.Require().NoError(s.svc.Delete(s.ctx, first.ID))

	// The card and the seat are free again.
	second := s.submit()
	_, err = s.approveInto(second, room.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.svc.BindCard(s.ctx, second.ID, &models.BindCardRequest{CardValue: "X1"}))
}

func (s *LedgerSuite) TestDeleteUnknown() {
	err := s.svc.Delete(s.ctx, uuid.New())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *LedgerSuite) TestSubmitValidation() {
	_, err := s.svc.Submit(s.ctx, &models.SubmitRequest{
		EventID:   uuid.New(),
		OwnerName: "Ada Reyes",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *LedgerSuite) TestDeleteByEvent() {
	eventID := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := s.svc.Submit(s.ctx, &models.SubmitRequest{
			EventID:    eventID,
			OwnerName:  "Ada Reyes",
			OwnerEmail: uuid.NewString() + "@example.edu",
		})
		s.Require().NoError(err)
	}
	s.submit()

	n, err := s.svc.DeleteByEvent(s.ctx, eventID)
	s.Require().NoError(err)
	s.Equal(3, n)

	regs, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Len(regs, 1)
}
