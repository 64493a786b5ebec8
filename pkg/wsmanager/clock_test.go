package wsmanager

import (
	"sync"
	"testing"
	"time"
)

// fakeClock hands scheduled timers to the test instead of waiting.
type fakeClock struct {
	scheduled chan *fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{scheduled: make(chan *fakeTimer, 16)}
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{delay: d, f: f}
	c.scheduled <- t
	return t
}

// next waits for the manager to schedule a timer.
func (c *fakeClock) next(t *testing.T) *fakeTimer {
	t.Helper()
	select {
	case timer := <-c.scheduled:
		return timer
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a retry to be scheduled")
	}
	return nil
}

func (c *fakeClock) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case timer := <-c.scheduled:
		t.Fatalf("unexpected retry scheduled after %s", timer.delay)
	case <-time.After(wait):
	}
}

type fakeTimer struct {
	f       func()
	delay   time.Duration
	mu      sync.Mutex
	stopped bool
	fired   bool
}

// fire runs the timer's function as if the delay had elapsed.
func (t *fakeTimer) fire() {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()
	t.f()
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
