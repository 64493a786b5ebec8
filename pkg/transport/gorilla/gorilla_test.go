package gorilla

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codeGROOVE-dev/wsmanager/pkg/transport"
)

var upgrader = websocket.Upgrader{}

type events struct {
	open     chan struct{}
	close    chan struct{}
	errs     chan error
	messages chan transport.Message
}

func newEvents() *events {
	return &events{
		open:     make(chan struct{}, 1),
		close:    make(chan struct{}, 1),
		errs:     make(chan error, 1),
		messages: make(chan transport.Message, 16),
	}
}

func (e *events) handler() transport.Handler {
	return transport.Handler{
		OnOpen:    func() { e.open <- struct{}{} },
		OnClose:   func() { e.close <- struct{}{} },
		OnError:   func(err error) { e.errs <- err },
		OnMessage: func(m transport.Message) { e.messages <- m },
	}
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func newServer(t *testing.T, serve func(*websocket.Conn)) string {
	t.Helper()
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade: %v", err)
			return
		}
		defer ws.Close() //nolint:errcheck // test server
		serve(ws)
	}))
	t.Cleanup(s.Close)
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func echo(ws *websocket.Conn) {
	for {
		typ, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if err := ws.WriteMessage(typ, data); err != nil {
			return
		}
	}
}

func TestEchoPreservesFrameType(t *testing.T) {
	target := newServer(t, echo)
	e := newEvents()

	c := Dialer{}.Open(context.Background(), target, e.handler())
	defer c.Close() //nolint:errcheck // test cleanup
	waitFor(t, e.open, "open")

	tests := []transport.Message{
		{Type: transport.Text, Data: []byte(`{"op":"subscribe"}`)},
		{Type: transport.Binary, Data: []byte{0xde, 0xad, 0xbe, 0xef}},
	}
	for _, want := range tests {
		if err := c.Send(want); err != nil {
			t.Fatalf("Send(%v) error = %v", want.Type, err)
		}
		got := waitFor(t, e.messages, "echo")
		if got.Type != want.Type || string(got.Data) != string(want.Data) {
			t.Errorf("echo = %v %q, want %v %q", got.Type, got.Data, want.Type, want.Data)
		}
	}
}

func TestServerCloseFrame(t *testing.T) {
	target := newServer(t, func(ws *websocket.Conn) {
		_ = ws.WriteMessage(websocket.CloseMessage, //nolint:errcheck // test server
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "restart"))
	})
	e := newEvents()

	c := Dialer{}.Open(context.Background(), target, e.handler())
	defer c.Close() //nolint:errcheck // test cleanup

	waitFor(t, e.open, "open")
	waitFor(t, e.close, "close")
}

func TestHandshakeRejected(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer s.Close()
	e := newEvents()

	c := Dialer{}.Open(context.Background(), "ws"+strings.TrimPrefix(s.URL, "http"), e.handler())
	defer c.Close() //nolint:errcheck // test cleanup

	err := waitFor(t, e.errs, "error")
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Errorf("error = %v, want ErrBadHandshake", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error = %v, want status code in message", err)
	}
}

func TestLocalCloseIsSilent(t *testing.T) {
	target := newServer(t, echo)
	e := newEvents()

	c := Dialer{}.Open(context.Background(), target, e.handler())
	waitFor(t, e.open, "open")

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case <-e.close:
		t.Error("OnClose fired after local Close")
	case err := <-e.errs:
		t.Errorf("OnError(%v) fired after local Close", err)
	case <-time.After(100 * time.Millisecond):
	}

	if err := c.Send(transport.Message{Type: transport.Text}); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Send after Close error = %v, want ErrClosed", err)
	}
}
