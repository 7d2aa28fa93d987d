package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/quote-presenter/internal/domain"
	"github.com/jsamuelsen/quote-presenter/internal/ports"
)

// Session defaults.
const (
	DefaultIdleTimeout   = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// ErrSessionLimit is wrapped by the error Create returns when MaxSessions is reached.
var ErrSessionLimit = errors.New("session limit reached")

// SessionObserver receives presenter events plus session lifecycle counts.
type SessionObserver interface {
	Observer
	SessionsActive(n int)
}

type noopSessionObserver struct{ noopObserver }

func (noopSessionObserver) SessionsActive(int) {}

// Session is one browser session: its presenter, the view it drives, and
// the clipboard its copies land on.
type Session struct {
	ID        string
	Presenter *Presenter
	View      ports.ViewRenderer
	Clipboard ports.Clipboard
	Created   time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = now
}

// SessionsConfig configures a Sessions manager.
type SessionsConfig struct {
	Catalog     *domain.Catalog
	ImageLoader ports.ImageLoader

	// NewRenderer creates the view for a new session.
	NewRenderer func() ports.ViewRenderer

	// NewClipboard creates the clipboard for a new session.
	NewClipboard func(sessionID string) (ports.Clipboard, error)

	Settings  PresenterSettings
	Scheduler ports.Scheduler
	Picker    Picker
	Observer  SessionObserver

	// IdleTimeout is how long an unused session survives. Defaults to 30m.
	IdleTimeout time.Duration

	// SweepInterval is how often Run removes idle sessions. Defaults to 1m.
	SweepInterval time.Duration

	// MaxSessions caps live sessions. Zero means no cap.
	MaxSessions int

	Logger *slog.Logger

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Sessions owns the live sessions and their presenters.
type Sessions struct {
	cfg    SessionsConfig
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessions creates a session manager.
// Panics if Catalog, ImageLoader, NewRenderer or NewClipboard is nil.
func NewSessions(cfg SessionsConfig) *Sessions {
	switch {
	case cfg.Catalog == nil:
		panic("Sessions: Catalog is required")
	case cfg.ImageLoader == nil:
		panic("Sessions: ImageLoader is required")
	case cfg.NewRenderer == nil:
		panic("Sessions: NewRenderer is required")
	case cfg.NewClipboard == nil:
		panic("Sessions: NewClipboard is required")
	}

	if cfg.Observer == nil {
		cfg.Observer = noopSessionObserver{}
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	return &Sessions{
		cfg:      cfg,
		logger:   cfg.Logger.With(slog.String("component", "app.Sessions")),
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with id and marks it as used.
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if ok {
		sess.touch(s.cfg.Now())
	}

	return sess, ok
}

// Create starts a new session and shows its first quote.
func (s *Sessions) Create(ctx context.Context) (*Session, error) {
	id := s.cfg.NewID()

	clipboard, err := s.cfg.NewClipboard(id)
	if err != nil {
		return nil, fmt.Errorf("creating clipboard for session %s: %w", id, err)
	}

	renderer := s.cfg.NewRenderer()
	now := s.cfg.Now()

	sess := &Session{
		ID:   id,
		View: renderer,
		Presenter: NewPresenter(PresenterConfig{
			Catalog:     s.cfg.Catalog,
			Renderer:    renderer,
			ImageLoader: s.cfg.ImageLoader,
			Clipboard:   clipboard,
			Scheduler:   s.cfg.Scheduler,
			Picker:      s.cfg.Picker,
			Settings:    s.cfg.Settings,
			Observer:    s.cfg.Observer,
			Logger:      s.cfg.Logger.With(slog.String("session_id", id)),
		}),
		Clipboard: clipboard,
		Created:   now,
		lastSeen:  now,
	}

	s.mu.Lock()
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrSessionLimit,
			domain.NewUnavailableError("sessions", fmt.Sprintf("limit of %d reached", s.cfg.MaxSessions)))
	}
	s.sessions[id] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	s.cfg.Observer.SessionsActive(n)
	s.logger.DebugContext(ctx, "session created", slog.String("session_id", id), slog.Int("active", n))

	sess.Presenter.NextQuote(ctx)

	return sess, nil
}

// GetOrCreate returns the session with id, or a new one when id is unknown.
// created reports whether a new session was started.
func (s *Sessions) GetOrCreate(ctx context.Context, id string) (sess *Session, created bool, err error) {
	if id != "" {
		if sess, ok := s.Get(id); ok {
			return sess, false, nil
		}
	}

	sess, err = s.Create(ctx)
	if err != nil {
		return nil, false, err
	}

	return sess, true, nil
}

// Remove ends the session with id. It reports whether the session existed.
func (s *Sessions) Remove(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	if ok {
		s.cfg.Observer.SessionsActive(n)
	}

	return ok
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// Sweep removes sessions idle for longer than IdleTimeout and returns how
// many were removed.
func (s *Sessions) Sweep(ctx context.Context) int {
	cutoff := s.cfg.Now().Add(-s.cfg.IdleTimeout)

	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		s.cfg.Observer.SessionsActive(n)
		s.logger.InfoContext(ctx, "idle sessions removed",
			slog.Int("removed", removed),
			slog.Int("active", n),
		)
	}

	return removed
}

// Run sweeps idle sessions every SweepInterval until ctx is done.
func (s *Sessions) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Name implements ports.HealthChecker.
func (s *Sessions) Name() string {
	return "sessions"
}

// Check implements ports.HealthChecker. The service is not ready for new
// visitors once the session cap is reached.
func (s *Sessions) Check(_ context.Context) error {
	if s.cfg.MaxSessions <= 0 {
		return nil
	}

	if n := s.Len(); n >= s.cfg.MaxSessions {
		return domain.NewUnavailableError("sessions", fmt.Sprintf("%d of %d sessions in use", n, s.cfg.MaxSessions))
	}

	return nil
}
