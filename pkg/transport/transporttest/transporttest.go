// Package transporttest provides a scriptable in-memory transport.Dialer.
//
// Every Open call produces a *Conn that the test drives by hand: Accept
// simulates a successful handshake, Drop a peer close, Fail a transport error
// and Deliver an inbound frame. Callbacks run synchronously on the calling
// goroutine.
package transporttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/wsmanager/pkg/transport"
)

// Dialer records every handle it opens.
type Dialer struct {
	opened chan *Conn
	mu     sync.Mutex
	conns  []*Conn
}

// NewDialer creates a Dialer.
func NewDialer() *Dialer {
	return &Dialer{opened: make(chan *Conn, 64)}
}

// Open implements transport.Dialer.
func (d *Dialer) Open(_ context.Context, target string, h transport.Handler) transport.Conn {
	d.mu.Lock()
	c := &Conn{Target: target, handler: h, index: len(d.conns)}
	d.conns = append(d.conns, c)
	d.mu.Unlock()

	d.opened <- c
	return c
}

// Next waits for the next Open call and returns its handle.
func (d *Dialer) Next(t testing.TB) *Conn {
	t.Helper()
	select {
	case c := <-d.opened:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a connection attempt")
	}
	return nil
}

// ExpectNone fails the test if a connection attempt happens within wait.
func (d *Dialer) ExpectNone(t testing.TB, wait time.Duration) {
	t.Helper()
	select {
	case c := <-d.opened:
		t.Fatalf("unexpected connection attempt #%d to %s", c.index+1, c.Target)
	case <-time.After(wait):
	}
}

// Opened reports how many handles have been opened so far.
func (d *Dialer) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// Conn is a fake connection handle.
type Conn struct {
	handler transport.Handler
	Target  string
	sent    []transport.Message
	index   int
	mu      sync.Mutex
	open    bool
	closed  bool
}

// Accept simulates a completed handshake.
func (c *Conn) Accept() {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
	c.handler.Open()
}

// Drop simulates the peer closing the connection.
func (c *Conn) Drop() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	c.handler.Close()
}

// Fail simulates a transport error.
func (c *Conn) Fail(err error) {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	c.handler.Error(err)
}

// Deliver simulates an inbound frame.
func (c *Conn) Deliver(m transport.Message) {
	c.handler.Message(m)
}

// Send implements transport.Conn.
func (c *Conn) Send(m transport.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrClosed
	}
	if !c.open {
		return transport.ErrNotOpen
	}
	c.sent = append(c.sent, m)
	return nil
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("transporttest: closed twice")
	}
	c.closed = true
	c.open = false
	return nil
}

// Sent returns a copy of every message written to the handle.
func (c *Conn) Sent() []transport.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]transport.Message, len(c.sent))
	copy(out, c.sent)
	return out
}

// Closed reports whether the owner closed the handle.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
