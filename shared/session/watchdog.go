// Package session implements the per-peer Session and a single-shot
// Watchdog timer, plus a Registry for nodes — like the Supervisor — that
// track many peers at once.
//
// The watchdog is a wall-clock deadline observed at the top of each tick,
// never a background timer goroutine — firing is detected by the caller
// (the tick scheduler) polling Check, not by the Watchdog itself scheduling
// a callback.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Watchdog is a single-shot deadline. Feed arms/re-arms it; Check reports
// whether it has expired, firing exactly once per arm-cycle and staying
// idempotent after expiry.
type Watchdog struct {
	duration time.Duration
	deadline time.Time
	fired    bool
	handle   uuid.UUID
}

// NewWatchdog creates a Watchdog of the given duration. It starts disarmed
// — Check always returns false until the first Feed.
func NewWatchdog(duration time.Duration) *Watchdog {
	return &Watchdog{duration: duration, handle: uuid.New()}
}

// Feed resets the deadline to now+duration and clears the fired latch,
// re-arming the watchdog for another cycle.
func (w *Watchdog) Feed(now time.Time) {
	w.deadline = now.Add(w.duration)
	w.fired = false
}

// Handle returns the opaque timer handle the tick scheduler matches its
// timer event against.
func (w *Watchdog) Handle() uuid.UUID { return w.handle }

// Armed reports whether Feed has ever been called.
func (w *Watchdog) Armed() bool { return !w.deadline.IsZero() }

// Check reports whether the watchdog has expired as of now. firstFire is
// true only on the rising edge from not-fired to fired within the current
// arm-cycle — callers use it to take the timeout action exactly once per
// cycle, exactly as Iss.Check's first_trip works for alarms.
func (w *Watchdog) Check(now time.Time) (fired bool, firstFire bool) {
	if w.deadline.IsZero() {
		return false, false
	}
	if now.Before(w.deadline) {
		return false, false
	}
	first := !w.fired
	w.fired = true
	return true, first
}

// Duration returns the configured timeout.
func (w *Watchdog) Duration() time.Duration { return w.duration }
