// Package timeout implements the session inactivity timer of the master node.
//
// The timer fires at most once per Arm call. Its expiry path only sets the
// timeout flag; whoever reads the flag with Consume is responsible for any
// user-visible reaction.
package timeout

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWindow matches a full 16-bit count at a 1024 prescale on a 16 MHz clock.
const DefaultWindow = 65536 * 1024 * time.Second / 16_000_000

// Timer is a one-shot countdown that must be re-armed for every session.
type Timer struct {
	// window is the inactivity interval after which the flag is set.
	window time.Duration
	// flag is the timeout flag; set by the expiry path, cleared by Consume.
	flag atomic.Bool

	// mu guards timer and generation.
	mu sync.Mutex
	// timer is the pending countdown, nil when disarmed.
	timer *time.Timer
	// generation invalidates expiry callbacks of earlier Arm calls.
	generation uint64
}

// New creates a disarmed timer. A non-positive window falls back to DefaultWindow.
func New(window time.Duration) *Timer {
	if window <= 0 {
		window = DefaultWindow
	}

	return &Timer{window: window}
}

// Window returns the configured inactivity interval.
func (t *Timer) Window() time.Duration {
	return t.window
}

// Arm resets the count and enables expiry notification.
// A pending countdown from a previous Arm is dropped.
func (t *Timer) Arm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.generation++

	generation := t.generation
	t.timer = time.AfterFunc(t.window, func() {
		t.expire(generation)
	})
}

// Disarm disables notification. The flag, if already set, is left for Consume.
func (t *Timer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.generation++
}

// Armed reports whether a countdown is pending.
func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.timer != nil
}

// Expired reports whether the flag is set without clearing it.
func (t *Timer) Expired() bool {
	return t.flag.Load()
}

// Consume reports whether the flag was set and clears it.
func (t *Timer) Consume() bool {
	return t.flag.Swap(false)
}

// expire is the asynchronous expiry path. It auto-disables the timer so a
// single Arm never produces more than one notification.
func (t *Timer) expire(generation uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if generation != t.generation || t.timer == nil {
		return
	}

	t.timer = nil
	t.flag.Store(true)
}

func (t *Timer) stopLocked() {
	if t.timer == nil {
		return
	}

	t.timer.Stop()
	t.timer = nil
}
