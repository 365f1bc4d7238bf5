package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"conexus/internal/dispatch/models"
	"conexus/internal/dispatch/service/mocks"
	regmodels "conexus/internal/registration/models"
	dErrors "conexus/pkg/domain-errors"
)

type DispatcherSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	sender  *mocks.MockSender
	targets *mocks.MockTargetSource
	ctx     context.Context
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.sender = mocks.NewMockSender(s.ctrl)
	s.targets = mocks.NewMockTargetSource(s.ctrl)
	s.ctx = context.Background()
}

func (s *DispatcherSuite) TearDownTest() {
	s.ctrl.Finish()
}

func makeTargets(n int) ([]uuid.UUID, []*regmodels.Registration) {
	ids := make([]uuid.UUID, n)
	regs := make([]*regmodels.Registration, n)
	for i := range ids {
		ids[i] = uuid.New()
		regs[i] = &regmodels.Registration{
			ID:         ids[i],
			OwnerName:  "Ada Reyes",
			OwnerEmail: ids[i].String() + "@example.edu",
			Status:     regmodels.StatusApproved,
		}
	}
	return ids, regs
}

func (s *DispatcherSuite) waitComplete(d *Dispatcher, runID uuid.UUID) models.View {
	var view models.View
	s.Require().Eventually(func() bool {
		v, err := d.Run(runID)
		if err != nil {
			return false
		}
		view = v
		return v.State == models.StateComplete
	}, 5*time.Second, 5*time.Millisecond)
	return view
}

func (s *DispatcherSuite) TestBatchAttemptsEveryTargetOnce() {
	ids, regs := makeTargets(10)
	s.targets.EXPECT().ListByIDs(gomock.Any(), ids).Return(regs, nil)

	var mu sync.Mutex
	seen := make(map[uuid.UUID]int)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(10).
		DoAndReturn(func(_ context.Context, target *regmodels.Registration) error {
			mu.Lock()
			seen[target.ID]++
			mu.Unlock()
			return nil
		})

	d := New(s.sender, s.targets)
	run, err := d.DispatchBatch(s.ctx, ids)
	s.Require().NoError(err)

	view := s.waitComplete(d, run.ID)
	s.Equal(10, view.Processed)
	s.Equal(10, view.Total)
	s.Equal(0, view.Errors)

	for _, id := range ids {
		s.Equal(1, seen[id])
	}
}

func (s *DispatcherSuite) TestFailuresCountedNotPropagated() {
	ids, regs := makeTargets(6)
	s.targets.EXPECT().ListByIDs(gomock.Any(), ids).Return(regs, nil)

	var calls atomic.Int64
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(6).
		DoAndReturn(func(_ context.Context, _ *regmodels.Registration) error {
			if calls.Add(1)%2 == 0 {
				return errors.New("smtp relay refused")
			}
			return nil
		})

	d := New(s.sender, s.targets)
	run, err := d.DispatchBatch(s.ctx, ids)
	s.Require().NoError(err)

	view := s.waitComplete(d, run.ID)
	s.Equal(6, view.Processed)
	s.Equal(3, view.Errors)
}

func (s *DispatcherSuite) TestPoolWidthIsBounded() {
	ids, regs := makeTargets(12)
	s.targets.EXPECT().ListByIDs(gomock.Any(), ids).Return(regs, nil)

	var inFlight, peak atomic.Int64
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(12).
		DoAndReturn(func(_ context.Context, _ *regmodels.Registration) error {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		})

	d := New(s.sender, s.targets, WithWidth(3))
	run, err := d.DispatchBatch(s.ctx, ids)
	s.Require().NoError(err)

	s.waitComplete(d, run.ID)
	s.LessOrEqual(peak.Load(), int64(3))
	s.Positive(peak.Load())
}

func (s *DispatcherSuite) TestProcessedNeverExceedsTotal() {
	ids, regs := makeTargets(8)
	s.targets.EXPECT().ListByIDs(gomock.Any(), ids).Return(regs, nil)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(8).
		DoAndReturn(func(_ context.Context, _ *regmodels.Registration) error {
			time.Sleep(2 * time.Millisecond)
			return nil
		})

	d := New(s.sender, s.targets)
	run, err := d.DispatchBatch(s.ctx, ids)
	s.Require().NoError(err)

	// Poll while the batch runs; a snapshot must never overshoot and the
	// complete state must only appear with the full count.
	for {
		view, err := d.Run(run.ID)
		s.Require().NoError(err)
		s.LessOrEqual(view.Processed, view.Total)
		if view.State == models.StateComplete {
			s.Equal(view.Total, view.Processed)
			break
		}
		time.Sleep(time.Millisecond)
	}
}

func (s *DispatcherSuite) TestSendTimeoutApplied() {
	ids, regs := makeTargets(1)
	s.targets.EXPECT().ListByIDs(gomock.Any(), ids).Return(regs, nil)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *regmodels.Registration) error {
			<-ctx.Done()
			return ctx.Err()
		})

	d := New(s.sender, s.targets, WithSendTimeout(20*time.Millisecond))
	run, err := d.DispatchBatch(s.ctx, ids)
	s.Require().NoError(err)

	view := s.waitComplete(d, run.ID)
	s.Equal(1, view.Processed)
	s.Equal(1, view.Errors)
}

func (s *DispatcherSuite) TestEmptyBatchRejected() {
	d := New(s.sender, s.targets)
	_, err := d.DispatchBatch(s.ctx, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *DispatcherSuite) TestUnknownIDsRejected() {
	ids := []uuid.UUID{uuid.New()}
	s.targets.EXPECT().ListByIDs(gomock.Any(), ids).Return(nil, nil)

	d := New(s.sender, s.targets)
	_, err := d.DispatchBatch(s.ctx, ids)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DispatcherSuite) TestUnknownRunHandle() {
	d := New(s.sender, s.targets)
	_, err := d.Run(uuid.New())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
