package wsmanager

import (
	"github.com/codeGROOVE-dev/wsmanager/pkg/emitter"
	"github.com/codeGROOVE-dev/wsmanager/pkg/transport"
)

// Event names emitted by a Manager.
const (
	EventDebug      = "debug"      // string
	EventReady      = "ready"      // no arguments
	EventReconnect  = "reconnect"  // no arguments
	EventDisconnect = "disconnect" // Cause
	EventMessage    = "message"    // transport.Message
	EventFatal      = "fatal"      // *Error
)

// Cause says why a connection ended.
type Cause string

// Disconnect causes.
const (
	CauseError      Cause = "Error"
	CauseDisconnect Cause = "Disconnect"
)

// On registers listener for a named event and returns a func that removes it.
func (m *Manager) On(event string, listener emitter.Listener) func() {
	return m.events.On(event, listener)
}

// Once registers listener for the next emission of event.
func (m *Manager) Once(event string, listener emitter.Listener) func() {
	return m.events.Once(event, listener)
}

// OnReady registers fn for the first successful connection.
func (m *Manager) OnReady(fn func()) func() {
	return m.events.On(EventReady, func(...any) { fn() })
}

// OnReconnect registers fn for every successful connection after the first.
func (m *Manager) OnReconnect(fn func()) func() {
	return m.events.On(EventReconnect, func(...any) { fn() })
}

// OnDisconnect registers fn for connection loss.
func (m *Manager) OnDisconnect(fn func(Cause)) func() {
	return m.events.On(EventDisconnect, func(args ...any) {
		if c, ok := arg[Cause](args); ok {
			fn(c)
		}
	})
}

// OnMessage registers fn for inbound frames.
func (m *Manager) OnMessage(fn func(transport.Message)) func() {
	return m.events.On(EventMessage, func(args ...any) {
		if msg, ok := arg[transport.Message](args); ok {
			fn(msg)
		}
	})
}

// OnDebug registers fn for diagnostic messages.
func (m *Manager) OnDebug(fn func(string)) func() {
	return m.events.On(EventDebug, func(args ...any) {
		if s, ok := arg[string](args); ok {
			fn(s)
		}
	})
}

// OnFatal registers fn for the manager's terminal error.
func (m *Manager) OnFatal(fn func(*Error)) func() {
	return m.events.On(EventFatal, func(args ...any) {
		if e, ok := arg[*Error](args); ok {
			fn(e)
		}
	})
}

func arg[T any](args []any) (T, bool) {
	var zero T
	if len(args) == 0 {
		return zero, false
	}
	v, ok := args[0].(T)
	return v, ok
}
