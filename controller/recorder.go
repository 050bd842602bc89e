package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/calvinmclean/feedarm"
)

// Recorder receives the events parsed from the device's serial output
type Recorder interface {
	Transition(ctx context.Context, from, to feedarm.State, at time.Time) error
	Status(ctx context.Context, s feedarm.Status, at time.Time) error
}

type noopRecorder struct{}

var _ Recorder = noopRecorder{}

// Transition implements Recorder.
func (noopRecorder) Transition(context.Context, feedarm.State, feedarm.State, time.Time) error {
	return nil
}

// Status implements Recorder.
func (noopRecorder) Status(context.Context, feedarm.Status, time.Time) error {
	return nil
}

// LogRecorder logs state changes and keeps a count of completed unsticks seen on this connection
type LogRecorder struct {
	logger *slog.Logger

	mtx          sync.Mutex
	unsticks     int
	unstickStart time.Time
	lastStatus   feedarm.Status
}

var _ Recorder = (*LogRecorder)(nil)

// NewLogRecorder creates a LogRecorder writing to logger
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Transition implements Recorder.
func (r *LogRecorder) Transition(ctx context.Context, from, to feedarm.State, at time.Time) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.logger.DebugContext(ctx, "state change", "from", from, "to", to)

	switch {
	case from == feedarm.StateMonitoring && to == feedarm.StateUnsticking:
		r.unstickStart = at
		r.logger.InfoContext(ctx, "unstick started")
	case from == feedarm.StateReturning && to == feedarm.StateCooldown:
		r.unsticks++
		r.logger.InfoContext(ctx, "unstick complete", "count", r.unsticks, "duration", at.Sub(r.unstickStart))
	}
	return nil
}

// Status implements Recorder.
func (r *LogRecorder) Status(ctx context.Context, s feedarm.Status, _ time.Time) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if s.Stalled && !r.lastStatus.Stalled {
		r.logger.WarnContext(ctx, "filament stalled", "feed_angle", s.FeedAngle, "state", s.State)
	}
	r.lastStatus = s
	r.logger.DebugContext(ctx, "status", "state", s.State, "feed_angle", s.FeedAngle, "rate", s.PulseRate)
	return nil
}

// Unsticks returns the number of completed unsticks recorded
func (r *LogRecorder) Unsticks() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.unsticks
}

// LastStatus returns the most recent status recorded
func (r *LogRecorder) LastStatus() feedarm.Status {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.lastStatus
}
