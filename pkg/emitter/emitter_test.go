package emitter

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEmitRegistrationOrder(t *testing.T) {
	e := New()
	var got []string

	e.On("message", func(args ...any) { got = append(got, "first:"+args[0].(string)) })
	e.On("message", func(args ...any) { got = append(got, "second:"+args[0].(string)) })
	e.On("other", func(...any) { got = append(got, "other") })

	if !e.Emit("message", "hello") {
		t.Fatal("Emit() = false, want true for event with listeners")
	}

	want := []string{"first:hello", "second:hello"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listener calls mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitWithoutListeners(t *testing.T) {
	var e Emitter // zero value must be usable
	if e.Emit("ready") {
		t.Error("Emit() = true, want false when nothing is registered")
	}
}

func TestOnceFiresOnce(t *testing.T) {
	e := New()
	calls := 0
	e.Once("ready", func(...any) { calls++ })

	e.Emit("ready")
	e.Emit("ready")

	if calls != 1 {
		t.Errorf("once listener called %d times, want 1", calls)
	}
	if n := e.ListenerCount("ready"); n != 0 {
		t.Errorf("ListenerCount() = %d after once fired, want 0", n)
	}
}

// TestOnceReentrantEmit verifies a once listener that re-emits its own event
// does not run again.
func TestOnceReentrantEmit(t *testing.T) {
	e := New()
	calls := 0
	e.Once("debug", func(...any) {
		calls++
		e.Emit("debug")
	})

	e.Emit("debug")

	if calls != 1 {
		t.Errorf("once listener called %d times, want 1", calls)
	}
}

func TestUnsubscribe(t *testing.T) {
	e := New()
	var got []int

	off1 := e.On("message", func(...any) { got = append(got, 1) })
	e.On("message", func(...any) { got = append(got, 2) })
	off3 := e.Once("message", func(...any) { got = append(got, 3) })

	off1()
	off3()
	off1() // removing twice is harmless

	e.Emit("message")

	if diff := cmp.Diff([]int{2}, got); diff != "" {
		t.Errorf("listener calls mismatch (-want +got):\n%s", diff)
	}
}

func TestOff(t *testing.T) {
	e := New()
	e.On("disconnect", func(...any) { t.Error("listener should have been removed") })
	e.On("disconnect", func(...any) { t.Error("listener should have been removed") })

	e.Off("disconnect")

	if e.Emit("disconnect", "Error") {
		t.Error("Emit() = true after Off, want false")
	}
}

func TestNilListenerIgnored(t *testing.T) {
	e := New()
	off := e.On("ready", nil)
	off()
	if n := e.ListenerCount("ready"); n != 0 {
		t.Errorf("ListenerCount() = %d, want 0", n)
	}
}

func TestListenerRegisteredDuringEmit(t *testing.T) {
	e := New()
	late := 0
	e.On("message", func(...any) {
		e.On("message", func(...any) { late++ })
	})

	e.Emit("message")
	if late != 0 {
		t.Errorf("listener added during Emit ran %d times in the same Emit, want 0", late)
	}

	e.Emit("message")
	if late != 1 {
		t.Errorf("late listener ran %d times, want 1", late)
	}
}

func TestConcurrentUse(t *testing.T) {
	e := New()
	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			off := e.On("tick", func(...any) {
				mu.Lock()
				total++
				mu.Unlock()
			})
			e.Emit("tick")
			off()
		}()
	}
	wg.Wait()

	if e.ListenerCount("tick") != 0 {
		t.Errorf("ListenerCount() = %d, want 0", e.ListenerCount("tick"))
	}
	if total == 0 {
		t.Error("no listener ran")
	}
}
