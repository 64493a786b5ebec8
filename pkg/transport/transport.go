// Package transport defines the connection capability used by wsmanager and
// the payload encoding shared by every WebSocket adapter.
//
// A Dialer opens a handle asynchronously. The handle reports its lifecycle
// through the Handler callbacks: OnOpen once the handshake succeeds, OnMessage
// for every inbound frame, and exactly one terminal callback, either OnClose
// (peer closed the connection or the stream ended) or OnError (dial failure or
// any other read failure). After Close is called a handle reports nothing.
package transport

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotOpen is returned by Conn.Send before the handshake completes or
	// after the connection has ended.
	ErrNotOpen = errors.New("connection not open")

	// ErrClosed is returned by Conn.Send after Close.
	ErrClosed = errors.New("connection closed")
)

// MessageType distinguishes text from binary frames.
type MessageType int

// Frame types.
const (
	Text MessageType = iota + 1
	Binary
)

func (t MessageType) String() string {
	switch t {
	case Text:
		return "text"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Message is a single WebSocket frame.
type Message struct {
	ReceivedAt time.Time // zero for outbound messages
	Data       []byte
	Type       MessageType
}

// Handler holds the callbacks a handle invokes. Nil callbacks are skipped.
type Handler struct {
	OnOpen    func()
	OnClose   func()
	OnError   func(error)
	OnMessage func(Message)
}

// Open calls h.OnOpen if set.
func (h Handler) Open() {
	if h.OnOpen != nil {
		h.OnOpen()
	}
}

// Close calls h.OnClose if set.
func (h Handler) Close() {
	if h.OnClose != nil {
		h.OnClose()
	}
}

// Error calls h.OnError if set.
func (h Handler) Error(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Message calls h.OnMessage if set.
func (h Handler) Message(m Message) {
	if h.OnMessage != nil {
		h.OnMessage(m)
	}
}

// Conn is a live (or pending) connection handle.
type Conn interface {
	// Send writes one frame. It does not queue: if the handle is not open the
	// call fails with ErrNotOpen.
	Send(m Message) error

	// Close tears the connection down and silences further callbacks.
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	// Open starts connecting to target and returns immediately.
	// The outcome is reported through h.
	Open(ctx context.Context, target string, h Handler) Conn
}
