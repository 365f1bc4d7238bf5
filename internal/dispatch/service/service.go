// Package service implements the notification dispatcher: a fixed-width
// worker pool that attempts every target exactly once.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Sender,TargetSource

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"conexus/internal/audit"
	"conexus/internal/dispatch/models"
	"conexus/internal/platform/metrics"
	regmodels "conexus/internal/registration/models"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/requestcontext"
)

const (
	// DefaultWidth is the worker pool size. Three keeps the external
	// sender below its rate limit while still draining a conference-sized
	// batch in minutes.
	DefaultWidth = 3

	// DefaultSendTimeout bounds one send attempt.
	DefaultSendTimeout = 15 * time.Second
)

// Sender delivers one notification. Failures are counted by the dispatcher,
// never retried.
type Sender interface {
	Send(ctx context.Context, target *regmodels.Registration) error
}

// TargetSource is the ledger's bulk lookup for a batch.
type TargetSource interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*regmodels.Registration, error)
}

// Dispatcher runs notification batches.
type Dispatcher struct {
	sender  Sender
	targets TargetSource

	width       int
	sendTimeout time.Duration

	runs    sync.Map // uuid.UUID -> *models.Run
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   audit.Publisher
	tracer  trace.Tracer
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(d *Dispatcher) { d.audit = publisher }
}

func WithWidth(width int) Option {
	return func(d *Dispatcher) {
		if width > 0 {
			d.width = width
		}
	}
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

func New(sender Sender, targets TargetSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:      sender,
		targets:     targets,
		width:       DefaultWidth,
		sendTimeout: DefaultSendTimeout,
		logger:      slog.Default(),
		tracer:      otel.Tracer("conexus/dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchBatch resolves the targets and starts the pool in the background,
// returning a handle immediately. There is no cancellation: once started,
// every target is attempted.
func (d *Dispatcher) DispatchBatch(ctx context.Context, ids []uuid.UUID) (*models.Run, error) {
	if len(ids) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one registration id is required")
	}

	targets, err := d.targets.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no registrations match the given ids")
	}

	run := models.NewRun(uuid.New(), len(targets), requestcontext.Now(ctx))
	d.runs.Store(run.ID, run)

	// The batch outlives the triggering request; keep the request values
	// for logging but detach from its cancellation.
	go d.process(context.WithoutCancel(ctx), run, targets)

	return run, nil
}

func (d *Dispatcher) process(ctx context.Context, run *models.Run, targets []*regmodels.Registration) {
	ctx, span := d.tracer.Start(ctx, "dispatch.ProcessBatch",
		trace.WithAttributes(attribute.Int("dispatch.total", run.Total)))
	defer span.End()

	run.MarkSending()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.width)
	for _, target := range targets {
		g.Go(func() error {
			d.sendOne(ctx, run, target)
			// Per-target failures are counted, not propagated; a bad
			// address must not starve the rest of the batch.
			return nil
		})
	}
	_ = g.Wait()

	run.MarkComplete()
	span.SetAttributes(attribute.Int("dispatch.errors", run.Errors()))

	d.logger.InfoContext(ctx, "dispatch batch complete",
		"request_id", requestcontext.RequestID(ctx),
		"run_id", run.ID,
		"total", run.Total,
		"errors", run.Errors(),
	)
	if d.audit != nil {
		event := audit.Event{
			Action:  audit.ActionBatchCompleted,
			Subject: run.ID.String(),
			Detail:  string(run.State()),
		}
		if err := d.audit.Emit(ctx, event); err != nil {
			d.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
		}
	}
}

func (d *Dispatcher) sendOne(ctx context.Context, run *models.Run, target *regmodels.Registration) {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	err := d.sender.Send(sendCtx, target)
	run.RecordResult(err)

	if err != nil {
		if d.metrics != nil {
			d.metrics.IncDispatchSend("error")
		}
		d.logger.WarnContext(ctx, "notification send failed",
			"run_id", run.ID,
			"registration_id", target.ID,
			"error", err.Error(),
		)
		return
	}
	if d.metrics != nil {
		d.metrics.IncDispatchSend("ok")
	}
}

// Run returns the snapshot for a batch handle.
func (d *Dispatcher) Run(runID uuid.UUID) (models.View, error) {
	v, ok := d.runs.Load(runID)
	if !ok {
		return models.View{}, dErrors.New(dErrors.CodeNotFound, "unknown dispatch run")
	}
	return v.(*models.Run).Snapshot(), nil
}
