package coderws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/codeGROOVE-dev/wsmanager/pkg/transport"
)

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

func newServer(t *testing.T, serve func(context.Context, *websocket.Conn)) string {
	t.Helper()
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("accept: %v", err)
			return
		}
		defer ws.CloseNow() //nolint:errcheck // test server
		serve(r.Context(), ws)
	}))
	t.Cleanup(s.Close)
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestEcho(t *testing.T) {
	target := newServer(t, func(ctx context.Context, ws *websocket.Conn) {
		for {
			typ, data, err := ws.Read(ctx)
			if err != nil {
				return
			}
			if err := ws.Write(ctx, typ, data); err != nil {
				return
			}
		}
	})
	e := newEvents()

	c := Dialer{}.Open(context.Background(), target, e.handler())
	defer c.Close() //nolint:errcheck // test cleanup
	waitFor(t, e.open, "open")

	for _, want := range []transport.Message{
		{Type: transport.Text, Data: []byte("hi")},
		{Type: transport.Binary, Data: []byte{1, 2, 3}},
	} {
		if err := c.Send(want); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		got := waitFor(t, e.messages, "echo")
		if got.Type != want.Type || string(got.Data) != string(want.Data) {
			t.Errorf("echo = %v %q, want %v %q", got.Type, got.Data, want.Type, want.Data)
		}
	}
}

func TestServerClose(t *testing.T) {
	target := newServer(t, func(_ context.Context, ws *websocket.Conn) {
		_ = ws.Close(websocket.StatusGoingAway, "bye") //nolint:errcheck // test server
	})
	e := newEvents()

	c := Dialer{}.Open(context.Background(), target, e.handler())
	defer c.Close() //nolint:errcheck // test cleanup

	waitFor(t, e.open, "open")
	waitFor(t, e.close, "close")
}

func TestDialError(t *testing.T) {
	s := httptest.NewServer(http.NotFoundHandler())
	defer s.Close()
	e := newEvents()

	c := Dialer{}.Open(context.Background(), "ws"+strings.TrimPrefix(s.URL, "http"), e.handler())
	defer c.Close() //nolint:errcheck // test cleanup

	err := waitFor(t, e.errs, "error")
	if !strings.HasPrefix(err.Error(), "dial:") {
		t.Errorf("error = %v, want dial error", err)
	}
}

func TestSendAfterClose(t *testing.T) {
	target := newServer(t, func(ctx context.Context, ws *websocket.Conn) {
		_, _, _ = ws.Read(ctx) //nolint:errcheck // wait for the client to go away
	})
	e := newEvents()

	c := Dialer{}.Open(context.Background(), target, e.handler())
	waitFor(t, e.open, "open")

	if err := c.Close(); err != nil {
		t.Logf("Close() error = %v", err)
	}
	if err := c.Send(transport.Message{Type: transport.Text}); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Send after Close error = %v, want ErrClosed", err)
	}

	select {
	case <-e.close:
		t.Error("OnClose fired after local Close")
	case err := <-e.errs:
		t.Errorf("OnError(%v) fired after local Close", err)
	case <-time.After(100 * time.Millisecond):
	}
}
