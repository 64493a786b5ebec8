package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/codeGROOVE-dev/wsmanager/pkg/transport"
	"github.com/codeGROOVE-dev/wsmanager/pkg/wsmanager"
)

// session connects stdin and stdout to whichever manager is current.
type session struct {
	logger  *slog.Logger
	out     io.Writer
	current atomic.Pointer[wsmanager.Manager]
	outMu   sync.Mutex
	binary  bool
	debug   bool
}

// attach makes m current and prints its events.
func (s *session) attach(m *wsmanager.Manager) {
	s.current.Store(m)

	m.OnReady(func() { s.printf("* ready %s\n", m.URL()) })
	m.OnReconnect(func() { s.printf("* reconnected (backoff %s)\n", m.Backoff()) })
	m.OnDisconnect(func(c wsmanager.Cause) { s.printf("* disconnect: %s\n", c) })
	m.OnFatal(func(e *wsmanager.Error) { s.printf("* fatal: %s\n", e) })
	m.OnMessage(func(msg transport.Message) {
		if msg.Type == transport.Binary {
			s.printf("< [%d bytes] %s\n", len(msg.Data), hex.EncodeToString(msg.Data))
			return
		}
		s.printf("< %s\n", msg.Data)
	})
	if s.debug {
		m.OnDebug(func(line string) { s.printf("* %s\n", line) })
	}
}

func (s *session) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if _, err := fmt.Fprintf(s.out, format, args...); err != nil {
		s.logger.Warn("write output", "error", err)
	}
}

// pump sends each line of r to the current manager until r is exhausted or
// ctx ends. Lines that cannot be sent are dropped.
func (s *session) pump(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := sc.Text()
		m := s.current.Load()
		if m == nil {
			s.logger.Warn("no connection yet, dropping line", "bytes", len(line))
			continue
		}

		var payload any = line
		if s.binary {
			payload = []byte(line)
		}
		if err := m.Send(payload); err != nil {
			s.logger.Warn("send failed, dropping line", "error", err, "state", m.State())
			continue
		}
		s.logger.Debug("sent", "bytes", len(line))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
