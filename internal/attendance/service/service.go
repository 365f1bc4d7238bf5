// Package service implements the attendance recorder: scan resolution,
// approval gating, and the sliding dedup window.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	accmodels "conexus/internal/accommodation/models"
	"conexus/internal/attendance/models"
	"conexus/internal/attendance/store"
	"conexus/internal/audit"
	"conexus/internal/platform/metrics"
	regmodels "conexus/internal/registration/models"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/platform/sentinel"
	"conexus/pkg/requestcontext"
)

// DefaultDedupWindow suppresses repeat scans for the same registration.
const DefaultDedupWindow = 5 * time.Minute

// Resolver matches a raw scan code to a registration. Card match is
// preferred; the owner email is the configured fallback identifier.
type Resolver interface {
	FindByCard(ctx context.Context, card string) (*regmodels.Registration, error)
	FindByOwnerEmail(ctx context.Context, email string) (*regmodels.Registration, error)
}

// RoomDirectory resolves a portal's room to its display label.
type RoomDirectory interface {
	Room(ctx context.Context, roomID uuid.UUID) (*accmodels.Room, error)
}

// Service records check-ins.
type Service struct {
	portals  store.PortalStore
	logs     store.LogStore
	resolver Resolver
	rooms    RoomDirectory

	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   audit.Publisher
	tracer  trace.Tracer
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

// WithDedupWindow overrides the default five minute window.
func WithDedupWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithRoomDirectory enables portal room labels; without it every scan is
// tagged with the portal name.
func WithRoomDirectory(rooms RoomDirectory) Option {
	return func(s *Service) { s.rooms = rooms }
}

func New(portals store.PortalStore, logs store.LogStore, resolver Resolver, opts ...Option) *Service {
	s := &Service{
		portals:  portals,
		logs:     logs,
		resolver: resolver,
		window:   DefaultDedupWindow,
		logger:   slog.Default(),
		tracer:   otel.Tracer("conexus/attendance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordScan resolves a scan code and appends a check-in record unless one
// exists inside the dedup window. Unknown codes and unapproved
// registrations come back as outcomes, never errors: the scanning
// front-end renders a status tag either way.
func (s *Service) RecordScan(ctx context.Context, req *models.ScanRequest) (*models.ScanResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "attendance.RecordScan")
	defer span.End()

	label := s.portalLabel(ctx, req.PortalID)

	reg, err := s.resolve(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.outcome(ctx, span, models.OutcomeNotFound, "", label, uuid.Nil), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve scan code")
	}

	if reg.Status != regmodels.StatusApproved {
		return s.outcome(ctx, span, models.OutcomeNotApproved, reg.OwnerName, label, reg.ID), nil
	}

	now := requestcontext.Now(ctx)
	rec := &models.Record{
		ID:             uuid.New(),
		RegistrationID: reg.ID,
		PortalLabel:    label,
		DisplayName:    reg.OwnerName,
		Device:         requestcontext.ScannerInfo(ctx),
		ScannedAt:      now,
	}
	written, err := s.logs.AppendIfQuiet(ctx, rec, s.window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record scan")
	}
	if !written {
		return s.outcome(ctx, span, models.OutcomeDuplicateScan, reg.OwnerName, label, reg.ID), nil
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionScanRecorded,
		Subject: reg.ID.String(),
		Detail:  label,
	})
	return s.outcome(ctx, span, models.OutcomeSuccess, reg.OwnerName, label, reg.ID), nil
}

// resolve prefers the bound card; the email fallback lets attendees without
// a card check in at staffed portals.
func (s *Service) resolve(ctx context.Context, code string) (*regmodels.Registration, error) {
	reg, err := s.resolver.FindByCard(ctx, code)
	if err == nil {
		return reg, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	return s.resolver.FindByOwnerEmail(ctx, strings.ToLower(code))
}

// portalLabel resolves the portal to its room name when possible, falling
// back to the portal name, then to the Unknown label. A bad portal id never
// blocks the scan.
func (s *Service) portalLabel(ctx context.Context, portalID string) string {
	if portalID == "" {
		return models.UnknownPortalLabel
	}
	id, err := uuid.Parse(portalID)
	if err != nil {
		return models.UnknownPortalLabel
	}
	portal, err := s.portals.FindPortal(ctx, id)
	if err != nil {
		return models.UnknownPortalLabel
	}
	if portal.RoomID != nil && s.rooms != nil {
		if room, err := s.rooms.Room(ctx, *portal.RoomID); err == nil {
			return room.Name
		}
	}
	return portal.Name
}

func (s *Service) outcome(ctx context.Context, span trace.Span, outcome models.ScanOutcome, displayName, label string, regID uuid.UUID) *models.ScanResult {
	span.SetAttributes(attribute.String("scan.outcome", string(outcome)))
	if s.metrics != nil {
		s.metrics.IncScan(string(outcome))
	}
	s.logger.InfoContext(ctx, "scan recorded",
		"request_id", requestcontext.RequestID(ctx),
		"outcome", outcome,
		"portal_label", label,
		"registration_id", regID,
	)
	return &models.ScanResult{Outcome: outcome, DisplayName: displayName}
}

// CreatePortal registers a scan station.
func (s *Service) CreatePortal(ctx context.Context, req *models.CreatePortalRequest) (*models.Portal, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	portal := &models.Portal{
		ID:        uuid.New(),
		Name:      req.Name,
		RoomID:    req.RoomID,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.portals.CreatePortal(ctx, portal); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create portal")
	}
	return portal, nil
}

func (s *Service) ListPortals(ctx context.Context) ([]*models.Portal, error) {
	portals, err := s.portals.ListPortals(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list portals")
	}
	return portals, nil
}

func (s *Service) DeletePortal(ctx context.Context, id uuid.UUID) error {
	if err := s.portals.DeletePortal(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "portal not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete portal")
	}
	return nil
}

// ListLogs returns the attendance log, most recent first.
func (s *Service) ListLogs(ctx context.Context) ([]*models.Record, error) {
	records, err := s.logs.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance records")
	}
	return records, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
