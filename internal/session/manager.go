// Package session keeps one headless preview per session on the server, so
// the current rendering of every session can be inspected without a browser.
package session

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vellum/internal/frame"
	"vellum/internal/headless"
	"vellum/internal/storage"
	"vellum/pkg/logger"
)

// ErrNotFound indicates the session does not exist.
var ErrNotFound = errors.New("session: not found")

// ErrClosed indicates the manager was closed.
var ErrClosed = errors.New("session: manager closed")

// Notifier learns when server-side frames come and go.
type Notifier interface {
	Ready(session string)
	Forget(session string)
}

// Options configures a Manager.
type Options struct {
	// DB backs each session's localStorage under the session id; nil
	// disables storage.
	DB              *storage.DB
	Script          string
	Timeout         time.Duration
	HighlightBorder string
	// IdleTimeout closes sessions without messages for this long; zero
	// disables reaping.
	IdleTimeout  time.Duration
	ReapSchedule string
	Notifier     Notifier
	Logger       *zerolog.Logger
}

// Info summarizes a session.
type Info struct {
	ID        string          `json:"id"`
	Applied   uint64          `json:"applied"`
	Rendered  uint64          `json:"rendered"`
	Selection string          `json:"selection,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	State     *frame.Snapshot `json:"state,omitempty"`
}

// Session is one server-side preview.
type Session struct {
	id      string
	preview *headless.Preview
	created time.Time

	mu      sync.Mutex
	updated time.Time
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Preview returns the session's headless preview.
func (s *Session) Preview() *headless.Preview { return s.preview }

// Render writes the session's document as HTML.
func (s *Session) Render(w io.Writer) error { return s.preview.Render(w) }

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = now
}

func (s *Session) lastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

// Info returns a summary; withState adds the full frame snapshot.
func (s *Session) Info(withState bool) Info {
	snap := s.preview.Snapshot()
	info := Info{
		ID:        s.id,
		Applied:   snap.Applied,
		Rendered:  snap.Rendered,
		Selection: snap.Selection.String(),
		CreatedAt: s.created,
		UpdatedAt: s.lastUpdate(),
	}
	if withState {
		info.State = &snap
	}
	return info
}

// Manager owns the sessions.
type Manager struct {
	opts Options
	log  zerolog.Logger
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
	reaper   *reaper
}

// NewManager creates a manager. Start begins idle reaping.
func NewManager(opts Options) *Manager {
	m := &Manager{
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	if opts.Logger != nil {
		m.log = *opts.Logger
	} else {
		m.log = logger.Component("session")
	}
	return m
}

// Open returns the session, creating its preview on first use.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}

	var store frame.Storage
	if m.opts.DB != nil {
		store = m.opts.DB.LocalStorage(id)
	}
	p, err := headless.Open(ctx, headless.Options{
		Storage:         store,
		Script:          m.opts.Script,
		Timeout:         m.opts.Timeout,
		HighlightBorder: m.opts.HighlightBorder,
		Logger:          m.log.With().Str("session", id).Logger(),
	})
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{id: id, preview: p, created: now, updated: now}
	m.sessions[id] = s
	m.log.Info().Str("session", id).Msg("Session opened")

	if m.opts.Notifier != nil {
		m.opts.Notifier.Ready(id)
	}
	return s, nil
}

// Get returns an existing session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Post applies a raw preview payload to the session, opening it if needed.
func (m *Manager) Post(ctx context.Context, id string, data []byte) error {
	s, err := m.Open(ctx, id)
	if err != nil {
		return err
	}
	s.preview.PostMessage(data)
	s.touch(m.now())
	return nil
}

// List returns the sessions sorted by id.
func (m *Manager) List() []Info {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info(false))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	m.closeSession(s, "deleted")
	return nil
}

func (m *Manager) closeSession(s *Session, reason string) {
	if err := s.preview.Close(); err != nil {
		m.log.Warn().Err(err).Str("session", s.id).Msg("Failed to close session preview")
	}
	if m.opts.Notifier != nil {
		m.opts.Notifier.Forget(s.id)
	}
	m.log.Info().Str("session", s.id).Str("reason", reason).Msg("Session closed")
}

// Reap closes sessions idle for longer than the idle timeout and returns
// how many it closed.
func (m *Manager) Reap() int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.lastUpdate().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		m.closeSession(s, "idle")
	}
	return len(idle)
}

// Reload replaces the renderer script of every session. Sessions opened
// later use it too.
func (m *Manager) Reload(ctx context.Context, script string) error {
	m.mu.Lock()
	m.opts.Script = script
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.preview.Reload(ctx, script); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops reaping and closes every session.
func (m *Manager) Close() {
	m.Stop()

	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		m.closeSession(s, "shutdown")
	}
}
