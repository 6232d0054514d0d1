// Package session manages agent-server conversation contexts.
//
// A Session is owned by the caller that opened it and is closed exactly once.
// By default every logical operation gets its own session so context from one
// task never bleeds into another; reuse is opt-in.
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"adw/cli/internal/backend"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
)

// closeTimeout bounds the best-effort server-side delete on close.
const closeTimeout = 5 * time.Second

// Session is one server-side conversation.
type Session struct {
	ID        string
	BaseURL   string
	CreatedAt time.Time
	// Local is set when the server assigned no id and one was generated here.
	Local bool

	closed atomic.Bool
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed.Load() }

// Manager opens and closes sessions against one server.
type Manager struct {
	api           backend.API
	baseURL       string
	reuse         bool
	deleteOnClose bool
	log           *pterm.Logger
	now           func() time.Time

	mu     sync.Mutex
	shared *Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithReuse makes With share one lazily opened session across calls.
func WithReuse(reuse bool) Option { return func(m *Manager) { m.reuse = reuse } }

// WithDeleteOnClose makes Close also delete the session on the server.
func WithDeleteOnClose(del bool) Option { return func(m *Manager) { m.deleteOnClose = del } }

// WithLogger sets the diagnostic logger.
func WithLogger(l *pterm.Logger) Option { return func(m *Manager) { m.log = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// NewManager creates a Manager for the server at baseURL.
func NewManager(api backend.API, baseURL string, opts ...Option) *Manager {
	m := &Manager{
		api:     api,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open creates a new session. Server errors are returned unchanged, so a
// rejected credential surfaces as an authentication error.
func (m *Manager) Open(ctx context.Context) (*Session, error) {
	id, err := m.api.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	s := &Session{ID: id, BaseURL: m.baseURL, CreatedAt: m.now()}
	if s.ID == "" {
		s.ID = uuid.NewString()
		s.Local = true
	}
	m.log.Debug("session opened", m.log.Args("session_id", s.ID, "local_id", s.Local))
	return s, nil
}

// Close marks s closed. Closing an already closed session is a no-op.
// When delete-on-close is enabled the server-side session is removed on a
// best-effort basis; failures are logged, never returned.
func (m *Manager) Close(ctx context.Context, s *Session) {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}
	m.mu.Lock()
	if m.shared == s {
		m.shared = nil
	}
	m.mu.Unlock()

	m.log.Debug("session closed", m.log.Args("session_id", s.ID))
	if !m.deleteOnClose || s.Local {
		return
	}
	// The caller's context may already be canceled on error paths.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := m.api.DeleteSession(dctx, s.ID); err != nil {
		m.log.Warn("session delete failed", m.log.Args("session_id", s.ID, "error", err.Error()))
	}
}

// With runs fn with a session and guarantees release on every exit path,
// including panics. With reuse enabled the shared session is handed out and
// stays open until Shutdown.
func (m *Manager) With(ctx context.Context, fn func(*Session) error) error {
	if m.reuse {
		s, err := m.sharedSession(ctx)
		if err != nil {
			return err
		}
		return fn(s)
	}
	s, err := m.Open(ctx)
	if err != nil {
		return err
	}
	defer m.Close(ctx, s)
	return fn(s)
}

func (m *Manager) sharedSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shared != nil && !m.shared.Closed() {
		return m.shared, nil
	}
	s, err := m.Open(ctx)
	if err != nil {
		return nil, err
	}
	m.shared = s
	return s, nil
}

// Shutdown closes the shared session, if any.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	s := m.shared
	m.mu.Unlock()
	m.Close(ctx, s)
}
