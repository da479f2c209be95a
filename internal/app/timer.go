package app

import (
	"fmt"
	"sync"
	"time"
)

// TickSource yields one value per elapsed second until stop is called.
type TickSource func() (ticks <-chan time.Time, stop func())

// SecondTicker is the wall-clock TickSource.
func SecondTicker() (<-chan time.Time, func()) {
	t := time.NewTicker(time.Second)
	return t.C, t.Stop
}

// Timer is a one-shot countdown in whole seconds.
// onExpire runs at most once, and never after Stop.
type Timer struct {
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	remaining int
	stopped   bool
	done      chan struct{}
}

func NewTimer(duration time.Duration, onTick func(remaining int), onExpire func()) *Timer {
	return &Timer{
		onTick:    onTick,
		onExpire:  onExpire,
		remaining: int(duration / time.Second),
		done:      make(chan struct{}),
	}
}

// Start drives Tick from src in a background goroutine that exits on Stop or expiry.
func (t *Timer) Start(src TickSource) {
	ticks, stopTicks := src()
	go func() {
		defer stopTicks()
		for {
			select {
			case <-t.done:
				return
			case <-ticks:
				if !t.Tick() {
					return
				}
			}
		}
	}()
}

// Tick advances the countdown by one second and reports whether the timer is still running.
// Callbacks run without the timer lock held.
func (t *Timer) Tick() bool {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return false
	}
	if t.remaining > 0 {
		t.remaining--
	}
	remaining := t.remaining
	expired := remaining == 0
	if expired {
		t.stopLocked()
	}
	t.mu.Unlock()

	if t.onTick != nil {
		t.onTick(remaining)
	}
	if expired && t.onExpire != nil {
		t.onExpire()
	}
	return !expired
}

// Stop halts the countdown. Safe to call more than once.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.stopLocked()
	t.mu.Unlock()
}

func (t *Timer) stopLocked() {
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.done)
}

func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Timer) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// FormatClock renders seconds as HH:MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
