// Package echo serves a WebSocket echo endpoint that hangs up on its clients
// on a schedule. It is the reconnect testbed behind cmd/flakyecho.
package echo

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"

	"github.com/codeGROOVE-dev/wsmanager/pkg/transport"
	"github.com/codeGROOVE-dev/wsmanager/pkg/transport/xnet"
)

// Config controls when the server hangs up and how fast it accepts clients.
type Config struct {
	Logger *slog.Logger

	// DropAfter closes each connection this long after the handshake.
	DropAfter time.Duration
	// DropEvery closes a connection once it has echoed this many messages.
	DropEvery int

	// AcceptRate is the number of new connections allowed per second, with
	// AcceptBurst allowed at once. Zero accepts without limit.
	AcceptRate  float64
	AcceptBurst int

	MaxConnsPerIP int // 0 is unlimited
	MaxConnsTotal int // 0 is unlimited
}

// Stats is a snapshot of server counters.
type Stats struct {
	Active  int64 `json:"active"`
	Served  int64 `json:"served"`
	Dropped int64 `json:"dropped"`
	Echoed  int64 `json:"echoed"`
}

// Server is an http.Handler for the echo endpoint.
type Server struct {
	logger    *slog.Logger
	accept    *rate.Limiter
	conns     *connLimiter
	ws        websocket.Server
	dropAfter time.Duration
	dropEvery int

	served  atomic.Int64
	dropped atomic.Int64
	echoed  atomic.Int64
}

// New creates a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	s := &Server{
		logger:    logger,
		conns:     newConnLimiter(cfg.MaxConnsPerIP, cfg.MaxConnsTotal),
		dropAfter: cfg.DropAfter,
		dropEvery: cfg.DropEvery,
	}
	if cfg.AcceptRate > 0 {
		burst := max(cfg.AcceptBurst, 1)
		s.accept = rate.NewLimiter(rate.Limit(cfg.AcceptRate), burst)
	}
	// No Handshake func: any Origin is accepted.
	s.ws = websocket.Server{Handler: s.serve}
	return s
}

// Routes returns the server's handler tree: /ws echoes and /stats reports counters.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Stats()); err != nil {
			s.logger.Warn("write stats", "error", err)
		}
	})
	return logRequests(s.logger)(mux)
}

// ServeHTTP throttles and limits the client, then upgrades to a WebSocket.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if s.accept != nil && !s.accept.Allow() {
		s.logger.Warn("accept rate exceeded", "ip", ip)
		http.Error(w, "too many connections, slow down", http.StatusTooManyRequests)
		return
	}
	if !s.conns.add(ip) {
		s.logger.Warn("connection limit reached", "ip", ip)
		http.Error(w, "connection limit reached", http.StatusServiceUnavailable)
		return
	}
	defer s.conns.remove(ip)

	s.ws.ServeHTTP(w, r)
}

// Stats returns the current counters.
func (s *Server) Stats() Stats {
	active, _ := s.conns.count()
	return Stats{
		Active:  int64(active),
		Served:  s.served.Load(),
		Dropped: s.dropped.Load(),
		Echoed:  s.echoed.Load(),
	}
}

func (s *Server) serve(ws *websocket.Conn) {
	id := uuid.NewString()
	logger := s.logger.With("session", id, "ip", clientIP(ws.Request()))

	s.served.Add(1)
	logger.Info("client connected")

	var once sync.Once
	hangUp := func(reason string) {
		once.Do(func() {
			s.dropped.Add(1)
			logger.Info("dropping client", "reason", reason)
			if err := ws.Close(); err != nil {
				logger.Debug("close", "error", err)
			}
		})
	}

	if s.dropAfter > 0 {
		t := time.AfterFunc(s.dropAfter, func() { hangUp("deadline") })
		defer t.Stop()
	}

	count := 0
	for {
		var m transport.Message
		if err := xnet.Codec.Receive(ws, &m); err != nil {
			logger.Info("client gone", "echoed", count, "error", err)
			once.Do(func() { _ = ws.Close() }) //nolint:errcheck // peer already gone
			return
		}
		if err := xnet.Codec.Send(ws, m); err != nil {
			logger.Info("echo failed", "error", err)
			once.Do(func() { _ = ws.Close() }) //nolint:errcheck // write side broken
			return
		}
		count++
		s.echoed.Add(1)

		if s.dropEvery > 0 && count >= s.dropEvery {
			hangUp("message limit")
			return
		}
	}
}
