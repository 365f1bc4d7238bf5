// Package models defines the in-memory batch dispatch run.
package models

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RunState is the lifecycle of a batch run.
type RunState string

const (
	StateIdle     RunState = "idle"
	StateSending  RunState = "sending"
	StateComplete RunState = "complete"
)

// Run tracks one notification batch. It lives only in process memory: a
// restart loses it, which is acceptable for a progress indicator. Counters
// are atomics because the worker pool increments them concurrently.
type Run struct {
	ID        uuid.UUID
	Total     int
	StartedAt time.Time

	state     atomic.Value // RunState
	processed atomic.Int64
	errors    atomic.Int64
}

func NewRun(id uuid.UUID, total int, startedAt time.Time) *Run {
	r := &Run{ID: id, Total: total, StartedAt: startedAt}
	r.state.Store(StateIdle)
	return r
}

func (r *Run) State() RunState { return r.state.Load().(RunState) }

func (r *Run) MarkSending()  { r.state.Store(StateSending) }
func (r *Run) MarkComplete() { r.state.Store(StateComplete) }

// RecordResult counts one attempted target. Every target is counted exactly
// once regardless of outcome.
func (r *Run) RecordResult(err error) {
	if err != nil {
		r.errors.Add(1)
	}
	r.processed.Add(1)
}

func (r *Run) Processed() int { return int(r.processed.Load()) }
func (r *Run) Errors() int    { return int(r.errors.Load()) }

// View is a point-in-time snapshot for polling clients.
type View struct {
	RunID     uuid.UUID `json:"run_id"`
	State     RunState  `json:"state"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Errors    int       `json:"errors"`
}

// Snapshot reads the state before the counters: once a poller observes
// complete, the counters are final, so it can never see complete paired
// with a processed count short of total.
func (r *Run) Snapshot() View {
	state := r.State()
	return View{
		RunID:     r.ID,
		State:     state,
		Processed: r.Processed(),
		Total:     r.Total,
		Errors:    r.Errors(),
	}
}
