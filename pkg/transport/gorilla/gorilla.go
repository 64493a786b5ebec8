// Package gorilla implements transport.Dialer on github.com/gorilla/websocket.
package gorilla

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codeGROOVE-dev/wsmanager/pkg/transport"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second
)

// Dialer opens gorilla/websocket connections. The zero value is usable.
type Dialer struct {
	Header           http.Header
	Subprotocols     []string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadLimit        int64 // 0 means no limit
}

// Open implements transport.Dialer.
func (d Dialer) Open(ctx context.Context, target string, h transport.Handler) transport.Conn {
	c := &conn{handler: h, writeTimeout: d.WriteTimeout}
	if c.writeTimeout == 0 {
		c.writeTimeout = defaultWriteTimeout
	}
	go c.run(ctx, d, target)
	return c
}

type conn struct {
	handler      transport.Handler
	ws           *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	mu           sync.RWMutex
	closed       bool
	ended        bool
}

func (c *conn) run(ctx context.Context, d Dialer, target string) {
	timeout := d.HandshakeTimeout
	if timeout == 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
		Subprotocols:     d.Subprotocols,
	}

	ws, resp, err := dialer.DialContext(ctx, target, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close() //nolint:errcheck // handshake response body is unused
	}
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		c.fail(fmt.Errorf("dial: %w", err))
		return
	}
	if d.ReadLimit > 0 {
		ws.SetReadLimit(d.ReadLimit)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.Close() //nolint:errcheck // handle was discarded while dialing
		return
	}
	c.ws = ws
	c.mu.Unlock()

	c.handler.Open()

	for {
		typ, data, err := ws.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) || errors.Is(err, io.EOF) {
				c.end()
				return
			}
			c.fail(fmt.Errorf("read: %w", err))
			return
		}

		m := transport.Message{Type: transport.Text, Data: data, ReceivedAt: time.Now()}
		if typ == websocket.BinaryMessage {
			m.Type = transport.Binary
		}

		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()
		if closed {
			return
		}
		c.handler.Message(m)
	}
}

func (c *conn) finish() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ended {
		return false
	}
	c.ended = true
	return true
}

func (c *conn) end() {
	if c.finish() {
		c.handler.Close()
	}
}

func (c *conn) fail(err error) {
	if c.finish() {
		c.handler.Error(err)
	}
}

// Send implements transport.Conn.
func (c *conn) Send(m transport.Message) error {
	c.mu.RLock()
	ws, closed, ended := c.ws, c.closed, c.ended
	c.mu.RUnlock()
	if closed {
		return transport.ErrClosed
	}
	if ws == nil || ended {
		return transport.ErrNotOpen
	}

	typ := websocket.TextMessage
	if m.Type == transport.Binary {
		typ = websocket.BinaryMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := ws.WriteMessage(typ, m.Data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close implements transport.Conn. It sends a normal-closure frame before
// closing the socket.
func (c *conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ws := c.ws
	c.mu.Unlock()

	if ws == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = ws.WriteControl( //nolint:errcheck // best effort, the socket is closed next
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	return ws.Close()
}
