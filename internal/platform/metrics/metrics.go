// Package metrics registers the Prometheus metrics shared across modules.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RegistrationsSubmitted prometheus.Counter
	StatusTransitions      *prometheus.CounterVec
	AssignmentsRejected    prometheus.Counter
	CardBindConflicts      prometheus.Counter
	ScansTotal             *prometheus.CounterVec
	DispatchSends          *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conexus_registrations_submitted_total",
			Help: "Total number of registrations submitted",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conexus_registration_status_transitions_total",
			Help: "Registration status transitions by target status",
		}, []string{"to"}),
		AssignmentsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conexus_room_assignments_rejected_total",
			Help: "Room assignments rejected because the room was full",
		}),
		CardBindConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conexus_card_bind_conflicts_total",
			Help: "Card bindings rejected because the card was held elsewhere",
		}),
		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conexus_attendance_scans_total",
			Help: "Attendance scans by outcome",
		}, []string{"outcome"}),
		DispatchSends: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conexus_dispatch_sends_total",
			Help: "Notification dispatch sends by result",
		}, []string{"result"}),
	}
}

// IncScan records a scan outcome.
func (m *Metrics) IncScan(outcome string) {
	m.ScansTotal.WithLabelValues(outcome).Inc()
}

// IncDispatchSend records a per-target send result.
func (m *Metrics) IncDispatchSend(result string) {
	m.DispatchSends.WithLabelValues(result).Inc()
}
