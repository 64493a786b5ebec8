// Package wsmanager keeps a single WebSocket connection alive.
//
// A Manager opens a connection to one URL and reopens it whenever the peer
// closes it. The delay before each reopen starts at Config.ResumeDelay and
// doubles after every attempt. Setting Config.MaxResume bounds the number of
// consecutive retries; reaching the bound is fatal.
//
// The manager reports what happens through named events:
//   - "ready" on the first successful open
//   - "reconnect" on every open after that
//   - "disconnect" with a Cause when the connection ends
//   - "message" with each transport.Message received
//   - "debug" with a human readable progress line
//   - "fatal" with an *Error when the manager gives up
//
// Basic usage:
//
//	m, err := wsmanager.New(wsmanager.Config{
//	    URL:         "wss://example.com/ws",
//	    ResumeDelay: time.Second,
//	    MaxResume:   10,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m.OnMessage(func(msg transport.Message) {
//	    fmt.Printf("got %d bytes\n", len(msg.Data))
//	})
//
//	if err := m.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until the context ends or a fatal error occurs. Listeners
// run on the manager's goroutine, so they must not block for long.
//
// A transport error (including a failed dial) is fatal. Callers that want
// to survive those restart the manager with a fresh New.
package wsmanager
