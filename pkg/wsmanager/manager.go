package wsmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/codeGROOVE-dev/wsmanager/pkg/emitter"
	"github.com/codeGROOVE-dev/wsmanager/pkg/transport"
	"github.com/codeGROOVE-dev/wsmanager/pkg/transport/xnet"
)

const (
	// DefaultResumeDelay is the first reconnect delay when Config.ResumeDelay is unset.
	DefaultResumeDelay = 5 * time.Second

	inboxSize  = 64
	maxBackoff = time.Duration(math.MaxInt64)
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("manager already started")

// State is the manager's position in its connection lifecycle.
type State int

// Lifecycle states.
const (
	StateIdle       State = iota // created, Start not called yet
	StateConnecting              // handle opened, waiting for the handshake
	StateOpen                    // handshake done
	StateWaiting                 // connection lost, retry timer pending
	StateFatal                   // terminal failure, see Err
	StateStopped                 // context ended
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateWaiting:
		return "waiting"
	case StateFatal:
		return "fatal"
	case StateStopped:
		return "stopped"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Config holds the configuration for a Manager.
type Config struct {
	Logger *slog.Logger
	Dialer transport.Dialer // defaults to xnet.Dialer{}
	Clock  Clock            // defaults to the wall clock
	Events *emitter.Emitter // optional, lets listeners be shared or registered up front
	URL    string

	// ResumeDelay is the wait before the first reconnect. It doubles on every
	// retry and is not reset when a reconnect succeeds unless
	// ResetBackoffOnOpen is set.
	ResumeDelay time.Duration

	// MaxResume is the number of retries after which the manager gives up
	// with ErrRetryLimit. Zero retries forever.
	MaxResume int

	ResetBackoffOnOpen bool
}

// handle is one connection attempt.
type handle struct {
	conn  transport.Conn
	id    string
	seq   int
	ended bool
}

// Manager keeps a single logical WebSocket connection alive.
//
// All connection state is owned by the goroutine running Start: transport
// callbacks and retry timers are queued to it and handled one at a time, and
// event listeners run on it in registration order.
type Manager struct {
	logger  *slog.Logger
	dialer  transport.Dialer
	clock   Clock
	events  *emitter.Emitter
	inbox   chan func(context.Context)
	done    chan struct{}
	timer   Timer
	current *handle
	err     error
	url     string
	initial time.Duration
	backoff time.Duration

	maxResume    int
	retries      int
	attempts     int
	state        State
	mu           sync.RWMutex
	started      atomic.Bool
	reconnecting bool
	resetOnOpen  bool
}

// New validates cfg and creates a Manager. No connection is made until Start.
func New(cfg Config) (*Manager, error) {
	if cfg.URL == "" {
		return nil, errors.New("url is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported url scheme %q: want ws or wss", u.Scheme)
	}
	if cfg.ResumeDelay < 0 {
		return nil, fmt.Errorf("resume delay must be positive, got %s", cfg.ResumeDelay)
	}
	if cfg.MaxResume < 0 {
		return nil, fmt.Errorf("max resume must be >= 0, got %d", cfg.MaxResume)
	}

	if cfg.ResumeDelay == 0 {
		cfg.ResumeDelay = DefaultResumeDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = xnet.Dialer{}
	}
	if cfg.Clock == nil {
		cfg.Clock = wallClock{}
	}
	if cfg.Events == nil {
		cfg.Events = emitter.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	return &Manager{
		logger:      logger.With("url", cfg.URL),
		dialer:      cfg.Dialer,
		clock:       cfg.Clock,
		events:      cfg.Events,
		inbox:       make(chan func(context.Context), inboxSize),
		done:        make(chan struct{}),
		url:         cfg.URL,
		initial:     cfg.ResumeDelay,
		backoff:     cfg.ResumeDelay,
		maxResume:   cfg.MaxResume,
		resetOnOpen: cfg.ResetBackoffOnOpen,
	}, nil
}

// Start makes the first connection attempt and then runs the manager until it
// fails or ctx ends. It returns the fatal *Error, or ctx.Err() on shutdown.
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer close(m.done)

	m.connect(ctx)

	for {
		select {
		case <-ctx.Done():
			m.stop(ctx.Err())
			return ctx.Err()
		case fn := <-m.inbox:
			// select picks randomly when both are ready.
			if err := ctx.Err(); err != nil {
				m.stop(err)
				return err
			}
			fn(ctx)
			if err := m.Err(); err != nil {
				return err
			}
		}
	}
}

// post queues fn for the Start goroutine. It gives up once the manager has stopped.
func (m *Manager) post(fn func(context.Context)) {
	select {
	case m.inbox <- fn:
	case <-m.done:
	}
}

// connect opens a new handle, replacing the previous one.
func (m *Manager) connect(ctx context.Context) {
	m.discard()

	m.attempts++
	h := &handle{id: uuid.NewString(), seq: m.attempts}

	if m.reconnecting {
		m.logger.Info("reconnecting to websocket server", "conn_id", h.id, "attempt", h.seq,
			"retries", m.retries, "max_resume", m.maxResumeLabel(), "backoff", m.backoff)
	} else {
		m.logger.Info("connecting to websocket server", "conn_id", h.id, "attempt", h.seq,
			"max_resume", m.maxResumeLabel())
	}

	handler := transport.Handler{
		OnOpen:  func() { m.post(func(context.Context) { m.opened(h) }) },
		OnClose: func() { m.post(func(context.Context) { m.closed(h) }) },
		OnError: func(err error) { m.post(func(context.Context) { m.failed(h, err) }) },
		OnMessage: func(msg transport.Message) {
			m.post(func(context.Context) { m.received(h, msg) })
		},
	}

	conn := m.dialer.Open(ctx, m.url, handler)

	m.mu.Lock()
	h.conn = conn
	m.current = h
	m.state = StateConnecting
	m.mu.Unlock()
}

// live reports whether h is the current handle and has not ended yet.
func (m *Manager) live(h *handle, what string) bool {
	if h != m.current || h.ended {
		m.logger.Debug("ignoring callback from stale connection", "callback", what, "conn_id", h.id)
		return false
	}
	return true
}

func (m *Manager) opened(h *handle) {
	if !m.live(h, "open") {
		return
	}

	first := !m.reconnecting
	m.mu.Lock()
	m.state = StateOpen
	m.reconnecting = true
	if m.resetOnOpen {
		m.backoff = m.initial
		m.retries = 0
	}
	m.mu.Unlock()

	m.logger.Info("websocket connection established", "conn_id", h.id, "attempt", h.seq)

	if first {
		m.events.Emit(EventReady)
	} else {
		m.events.Emit(EventReconnect)
	}
}

func (m *Manager) closed(h *handle) {
	if !m.live(h, "close") {
		return
	}
	h.ended = true

	m.logger.Warn("websocket connection lost", "conn_id", h.id, "cause", CauseDisconnect)
	m.events.Emit(EventDisconnect, CauseDisconnect)
	m.scheduleRetry()
}

func (m *Manager) failed(h *handle, err error) {
	if !m.live(h, "error") {
		return
	}
	h.ended = true

	m.logger.Warn("websocket connection lost", "conn_id", h.id, "cause", CauseError, "error", err)
	m.events.Emit(EventDisconnect, CauseError)
	m.fail(transportError(err))
}

func (m *Manager) received(h *handle, msg transport.Message) {
	if !m.live(h, "message") {
		return
	}
	m.events.Emit(EventMessage, msg)
}

// scheduleRetry arms the backoff timer. The handle that just ended stays in
// place until the timer fires.
func (m *Manager) scheduleRetry() {
	m.mu.Lock()
	m.state = StateWaiting
	delay := m.backoff
	m.mu.Unlock()

	m.debug(fmt.Sprintf("Disconnected from %s. Retrying in %dms (retries %d, max %s).",
		m.url, delay.Milliseconds(), m.retries, m.maxResumeLabel()))

	m.timer = m.clock.AfterFunc(delay, func() {
		m.post(m.retry)
	})
}

func (m *Manager) retry(ctx context.Context) {
	m.timer = nil
	if ctx.Err() != nil {
		return
	}

	if m.maxResume > 0 {
		m.mu.Lock()
		m.retries++
		retries := m.retries
		m.mu.Unlock()

		if retries >= m.maxResume {
			m.fail(retryLimitError(retries))
			return
		}
	}

	m.debug("Retrying...")

	m.mu.Lock()
	m.backoff = double(m.backoff)
	m.mu.Unlock()

	m.connect(ctx)
}

// fail moves the manager to its terminal state and reports err.
func (m *Manager) fail(err *Error) {
	m.halt(StateFatal, err)
	m.logger.Error("websocket manager failed", "kind", err.Kind, "title", err.Title,
		"description", err.Description, "retries", m.retries)
	m.events.Emit(EventFatal, err)
}

func (m *Manager) stop(cause error) {
	m.halt(StateStopped, cause)
	m.logger.Info("websocket manager stopped", "reason", cause)
}

func (m *Manager) halt(state State, err error) {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.discard()

	m.mu.Lock()
	m.state = state
	m.err = err
	m.mu.Unlock()
}

// discard closes and forgets the current handle.
func (m *Manager) discard() {
	m.mu.Lock()
	h := m.current
	m.current = nil
	m.mu.Unlock()

	if h == nil {
		return
	}
	if err := h.conn.Close(); err != nil {
		m.logger.Debug("error closing discarded connection", "conn_id", h.id, "error", err)
	}
}

func (m *Manager) debug(msg string) {
	m.logger.Debug(msg)
	m.events.Emit(EventDebug, msg)
}

func (m *Manager) maxResumeLabel() string {
	if m.maxResume == 0 {
		return "none"
	}
	return strconv.Itoa(m.maxResume)
}

func double(d time.Duration) time.Duration {
	if d > maxBackoff/2 {
		return maxBackoff
	}
	return d * 2
}

// Send encodes payload with transport.Encode and writes it to the current
// connection. Nothing is queued: without a connection Send fails.
func (m *Manager) Send(payload any) error {
	msg, err := transport.Encode(payload)
	if err != nil {
		return err
	}

	m.mu.RLock()
	h, state, cause := m.current, m.state, m.err
	m.mu.RUnlock()

	if state == StateFatal || state == StateStopped {
		return fmt.Errorf("%w: %w", ErrStopped, cause)
	}
	if h == nil || h.conn == nil {
		return ErrNoTransport
	}
	return h.conn.Send(msg)
}

// Err returns the reason the manager stopped: a *Error after a fatal failure,
// the context error after shutdown, or nil while running.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Done is closed when Start returns.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Backoff returns the delay the next retry will wait.
func (m *Manager) Backoff() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backoff
}

// Retries returns how many retries have counted against MaxResume.
func (m *Manager) Retries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.retries
}

// URL returns the target address.
func (m *Manager) URL() string {
	return m.url
}
