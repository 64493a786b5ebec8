// Package xnet implements transport.Dialer on golang.org/x/net/websocket.
package xnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/codeGROOVE-dev/wsmanager/pkg/transport"
)

const defaultWriteTimeout = 5 * time.Second

// Codec moves transport.Message values across the wire with their frame type intact.
var Codec = websocket.Codec{
	Marshal: func(v any) ([]byte, byte, error) {
		m, ok := v.(transport.Message)
		if !ok {
			return nil, websocket.UnknownFrame, websocket.ErrNotSupported
		}
		if m.Type == transport.Binary {
			return m.Data, websocket.BinaryFrame, nil
		}
		return m.Data, websocket.TextFrame, nil
	},
	Unmarshal: func(data []byte, payloadType byte, v any) error {
		m, ok := v.(*transport.Message)
		if !ok {
			return websocket.ErrNotSupported
		}
		m.Data = data
		m.Type = transport.Text
		if payloadType == websocket.BinaryFrame {
			m.Type = transport.Binary
		}
		return nil
	},
}

// Dialer opens golang.org/x/net/websocket connections.
// The zero value is usable.
type Dialer struct {
	Header          http.Header
	Origin          string        // defaults to http(s)://localhost/ matching the target scheme
	Protocol        []string      // optional subprotocols
	WriteTimeout    time.Duration // defaults to 5s
	MaxPayloadBytes int           // 0 keeps the library default
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

func (d Dialer) config(target string) (*websocket.Config, error) {
	origin := d.Origin
	if origin == "" {
		origin = "http://localhost/"
		if strings.HasPrefix(target, "wss://") {
			origin = "https://localhost/"
		}
	}
	cfg, err := websocket.NewConfig(target, origin)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Protocol = d.Protocol
	cfg.Header = make(http.Header)
	for k, v := range d.Header {
		cfg.Header[k] = v
	}
	return cfg, nil
}

type conn struct {
	handler      transport.Handler
	ws           *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	mu           sync.Mutex
	closed       bool
	ended        bool
}

func (c *conn) run(ctx context.Context, d Dialer, target string) {
	cfg, err := d.config(target)
	if err != nil {
		c.fail(err)
		return
	}

	ws, err := cfg.DialContext(ctx)
	if err != nil {
		c.fail(fmt.Errorf("dial: %w", err))
		return
	}
	if d.MaxPayloadBytes > 0 {
		ws.MaxPayloadBytes = d.MaxPayloadBytes
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
		var m transport.Message
		if err := Codec.Receive(ws, &m); err != nil {
			if isClose(err) {
				c.end()
				return
			}
			c.fail(fmt.Errorf("read: %w", err))
			return
		}
		m.ReceivedAt = time.Now()

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		c.handler.Message(m)
	}
}

// isClose reports whether err means the peer went away rather than something broke.
func isClose(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}

// finish marks the handle ended and reports whether callbacks may still fire.
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
	c.mu.Lock()
	ws, closed, ended := c.ws, c.closed, c.ended
	c.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}
	if ws == nil || ended {
		return transport.ErrNotOpen
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := Codec.Send(ws, m); err != nil {
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

	if ws == nil {
		return nil
	}
	return ws.Close()
}
