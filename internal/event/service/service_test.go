package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	accservice "conexus/internal/accommodation/service"
	accstore "conexus/internal/accommodation/store"
	"conexus/internal/event/models"
	evstore "conexus/internal/event/store"
	"conexus/internal/identity"
	regmodels "conexus/internal/registration/models"
	regservice "conexus/internal/registration/service"
	regstore "conexus/internal/registration/store"
	dErrors "conexus/pkg/domain-errors"
)

type CatalogSuite struct {
	suite.Suite
	svc    *Service
	ledger *regservice.Service
	ctx    context.Context
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) SetupTest() {
	seats := regstore.NewInMemory()
	allocator := accservice.New(accstore.NewInMemory(), seats)
	s.ledger = regservice.New(seats, allocator, identity.New(seats))
	s.svc = New(evstore.NewInMemory(), s.ledger)
	s.ctx = context.Background()
}

func (s *CatalogSuite) create(name string) *models.Event {
	event, err := s.svc.Create(s.ctx, &models.CreateEventRequest{
		Name:     name,
		StartsAt: time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 10, 4, 17, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)
	return event
}

func (s *CatalogSuite) TestCreateAndList() {
	s.create("Regional Research Congress")
	s.create("Alumni Summit")

	events, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Len(events, 2)
}

func (s *CatalogSuite) TestValidation() {
	_, err := s.svc.Create(s.ctx, &models.CreateEventRequest{Name: "No dates"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Create(s.ctx, &models.CreateEventRequest{
		Name:     "Backwards",
		StartsAt: time.Date(2026, 10, 4, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CatalogSuite) TestDeleteCascadesToRegistrations() {
	event := s.create("Regional Research Congress")
	other := s.create("Alumni Summit")

	for i := 0; i < 2; i++ {
		_, err := s.ledger.Submit(s.ctx, &regmodels.SubmitRequest{
			EventID:    event.ID,
			OwnerName:  "Ada Reyes",
			OwnerEmail: uuid.NewString() + "@example.edu",
		})
		s.Require().NoError(err)
	}
	kept, err := s.ledger.Submit(s.ctx, &regmodels.SubmitRequest{
		EventID:    other.ID,
		OwnerName:  "Grace Lim",
		OwnerEmail: "grace@example.edu",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, event.ID))

	regs, err := s.ledger.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(regs, 1)
	s.Equal(kept.ID, regs[0].ID)

	_, err = s.svc.Get(s.ctx, event.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CatalogSuite) TestDeleteUnknown() {
	err := s.svc.Delete(s.ctx, uuid.New())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
