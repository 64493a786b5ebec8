// Package emitter provides a small named-event dispatcher.
//
// Listeners are invoked synchronously, on the goroutine that calls Emit, in the
// order they were registered. A listener registered with Once is removed before
// it runs, so it fires at most one time even if it emits the same event again.
package emitter

import "sync"

// Listener receives the arguments passed to Emit.
type Listener func(args ...any)

type entry struct {
	fn   Listener
	id   uint64
	once bool
}

// Emitter dispatches named events to registered listeners.
// The zero value is ready to use and safe for concurrent use.
type Emitter struct {
	listeners map[string][]*entry
	nextID    uint64
	mu        sync.Mutex
}

// New creates an empty emitter.
func New() *Emitter {
	return &Emitter{}
}

// On registers fn for event. The returned func removes the registration.
func (e *Emitter) On(event string, fn Listener) func() {
	return e.add(event, fn, false)
}

// Once registers fn for the next emission of event only.
func (e *Emitter) Once(event string, fn Listener) func() {
	return e.add(event, fn, true)
}

func (e *Emitter) add(event string, fn Listener, once bool) func() {
	if fn == nil {
		return func() {}
	}

	e.mu.Lock()
	if e.listeners == nil {
		e.listeners = make(map[string][]*entry)
	}
	e.nextID++
	id := e.nextID
	e.listeners[event] = append(e.listeners[event], &entry{fn: fn, id: id, once: once})
	e.mu.Unlock()

	return func() { e.remove(event, id) }
}

func (e *Emitter) remove(event string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	list := e.listeners[event]
	for i, l := range list {
		if l.id == id {
			e.listeners[event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(e.listeners[event]) == 0 {
		delete(e.listeners, event)
	}
}

// Off removes every listener registered for event.
func (e *Emitter) Off(event string) {
	e.mu.Lock()
	delete(e.listeners, event)
	e.mu.Unlock()
}

// ListenerCount reports how many listeners are registered for event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

// Emit calls every listener registered for event with args.
// It reports whether the event had any listeners.
func (e *Emitter) Emit(event string, args ...any) bool {
	e.mu.Lock()
	list := e.listeners[event]
	if len(list) == 0 {
		e.mu.Unlock()
		return false
	}

	// Snapshot so listeners may register or remove listeners while we iterate.
	snapshot := make([]*entry, len(list))
	copy(snapshot, list)

	kept := list[:0:0]
	for _, l := range list {
		if !l.once {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(e.listeners, event)
	} else {
		e.listeners[event] = kept
	}
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(args...)
	}
	return true
}
