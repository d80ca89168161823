package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// pauseCheck is how often a paused loop looks for a new interval.
const pauseCheck = 500 * time.Millisecond

// Interval is a poll cadence adjustable at runtime. Zero means paused.
type Interval struct {
	mu sync.Mutex
	d  time.Duration
}

// NewInterval creates an Interval.
func NewInterval(d time.Duration) *Interval {
	if d < 0 {
		d = 0
	}
	return &Interval{d: d}
}

// Get returns the current cadence.
func (i *Interval) Get() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.d
}

// Set updates the cadence. Negative values clamp to zero (paused).
func (i *Interval) Set(d time.Duration) {
	if d < 0 {
		d = 0
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.d = d
}

// Loop is a self-rescheduling poll task: run once, then sleep the
// interval measured from completion, so a slow fetch throttles the loop
// instead of overlapping it. At most one run is ever in flight. A failed
// run is logged and the loop reschedules unconditionally.
type Loop struct {
	name     string
	interval *Interval
	run      func(ctx context.Context) error
}

// NewLoop creates a Loop. The interval may be shared with a controller
// that adjusts or pauses it while the loop runs.
func NewLoop(name string, interval *Interval, run func(ctx context.Context) error) *Loop {
	return &Loop{name: name, interval: interval, run: run}
}

// Start runs the loop until the context is cancelled. It blocks; run it
// on its own goroutine.
func (l *Loop) Start(ctx context.Context) {
	slog.Info("poll_loop_started", "name", l.name, "interval", l.interval.Get())

	for {
		d := l.interval.Get()
		if d <= 0 {
			if !sleepCtx(ctx, pauseCheck) {
				slog.Info("poll_loop_stopped", "name", l.name)
				return
			}
			continue
		}

		if err := l.run(ctx); err != nil {
			if ctx.Err() != nil {
				slog.Info("poll_loop_stopped", "name", l.name)
				return
			}
			// A failed poll yields an unchanged view for this cycle
			slog.Debug("poll_failed", "name", l.name, "error", err)
		}

		if !sleepCtx(ctx, d) {
			slog.Info("poll_loop_stopped", "name", l.name)
			return
		}
	}
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
