// Package coderws implements transport.Dialer on github.com/coder/websocket.
package coderws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/codeGROOVE-dev/wsmanager/pkg/transport"
)

const defaultWriteTimeout = 5 * time.Second

// Dialer opens coder/websocket connections. The zero value is usable.
type Dialer struct {
	HTTPClient   *http.Client
	Header       http.Header
	Subprotocols []string
	WriteTimeout time.Duration
	ReadLimit    int64 // 0 keeps the library default of 32 KiB
	Compression  websocket.CompressionMode
}

// Open implements transport.Dialer.
func (d Dialer) Open(ctx context.Context, target string, h transport.Handler) transport.Conn {
	readCtx, cancel := context.WithCancel(ctx)
	c := &conn{handler: h, writeTimeout: d.WriteTimeout, cancel: cancel}
	if c.writeTimeout == 0 {
		c.writeTimeout = defaultWriteTimeout
	}
	go c.run(readCtx, d, target)
	return c
}

type conn struct {
	handler      transport.Handler
	ws           *websocket.Conn
	cancel       context.CancelFunc
	writeTimeout time.Duration
	mu           sync.Mutex
	closed       bool
	ended        bool
}

func (c *conn) run(ctx context.Context, d Dialer, target string) {
	ws, resp, err := websocket.Dial(ctx, target, &websocket.DialOptions{
		HTTPClient:      d.HTTPClient,
		HTTPHeader:      d.Header,
		Subprotocols:    d.Subprotocols,
		CompressionMode: d.Compression,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close() //nolint:errcheck // handshake response body is unused
	}
	if err != nil {
		c.fail(fmt.Errorf("dial: %w", err))
		return
	}
	if d.ReadLimit > 0 {
		ws.SetReadLimit(d.ReadLimit)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.CloseNow() //nolint:errcheck // handle was discarded while dialing
		return
	}
	c.ws = ws
	c.mu.Unlock()

	c.handler.Open()

	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, io.EOF) {
				c.end()
				return
			}
			c.fail(fmt.Errorf("read: %w", err))
			return
		}

		m := transport.Message{Type: transport.Text, Data: data, ReceivedAt: time.Now()}
		if typ == websocket.MessageBinary {
			m.Type = transport.Binary
		}

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
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

// Send implements transport.Conn. coder/websocket serializes writers itself.
func (c *conn) Send(m transport.Message) error {
	c.mu.Lock()
	ws, closed, ended := c.ws, c.closed, c.ended
	c.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}
	if ws == nil || ended {
		return transport.ErrNotOpen
	}

	typ := websocket.MessageText
	if m.Type == transport.Binary {
		typ = websocket.MessageBinary
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	if err := ws.Write(ctx, typ, m.Data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close implements transport.Conn.
func (c *conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ws := c.ws
	c.mu.Unlock()

	defer c.cancel()
	if ws == nil {
		return nil
	}
	return ws.Close(websocket.StatusNormalClosure, "")
}
