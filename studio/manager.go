package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"youngin-studio/catalog"
	"youngin-studio/core"
	"youngin-studio/metrics"
	"youngin-studio/scene"
)

const (
	DefaultCanvasWidth  = 500
	DefaultCanvasHeight = 600

	DefaultIdleTimeout         = 30 * time.Minute
	DefaultMaxSessionsPerOwner = 5

	defaultSurfaceAttempts = 10
	defaultSurfaceInterval = 100 * time.Millisecond
)

// SurfaceFactory produces the drawing surface for a new session. It may fail while
// the surface is not ready yet.
type SurfaceFactory func(width, height int) (Surface, error)

// Options configures a Manager.
type Options struct {
	Width, Height   int
	HistoryLimit    int
	Catalog         *catalog.Catalog
	Loader          TemplateLoader
	Store           core.DesignStore
	Events          Notifier
	NewSurface      SurfaceFactory
	SurfaceAttempts uint64
	SurfaceInterval time.Duration

	// IdleTimeout is how long a session may go unused before Sweep closes it.
	IdleTimeout time.Duration
	// MaxSessionsPerOwner caps open sessions per owner. Opening one more closes
	// the owner's least recently used session.
	MaxSessionsPerOwner int
	Now                 func() time.Time
}

// Manager owns the open design sessions.
type Manager struct {
	opts       Options
	compositor *Compositor

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager, filling unset options with defaults.
func NewManager(opts Options) *Manager {
	if opts.Width <= 0 {
		opts.Width = DefaultCanvasWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultCanvasHeight
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Loader == nil {
		opts.Loader = catalog.NewLoader(opts.Catalog.Root)
	}
	if opts.Events == nil {
		opts.Events = nopNotifier{}
	}
	if opts.NewSurface == nil {
		opts.NewSurface = func(w, h int) (Surface, error) { return scene.NewSurface(w, h), nil }
	}
	if opts.SurfaceAttempts == 0 {
		opts.SurfaceAttempts = defaultSurfaceAttempts
	}
	if opts.SurfaceInterval <= 0 {
		opts.SurfaceInterval = defaultSurfaceInterval
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.MaxSessionsPerOwner <= 0 {
		opts.MaxSessionsPerOwner = DefaultMaxSessionsPerOwner
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		opts:       opts,
		compositor: NewCompositor(opts.Loader),
		sessions:   make(map[string]*Session),
	}
}

// WaitForSurface polls factory up to attempts times, interval apart.
func WaitForSurface(ctx context.Context, factory SurfaceFactory, width, height int, attempts uint64, interval time.Duration) (Surface, error) {
	if attempts == 0 {
		attempts = 1
	}
	var surface Surface
	backoff := retry.WithMaxRetries(attempts-1, retry.NewConstant(interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s, err := factory(width, height)
		if err != nil {
			return retry.RetryableError(err)
		}
		if s == nil {
			return retry.RetryableError(ErrSurfaceUnavailable)
		}
		surface = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return surface, nil
}

// Create opens a session for owner on the default garment with one recorded state.
func (m *Manager) Create(ctx context.Context, ownerID string) (*Session, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	surface, err := WaitForSurface(ctx, m.opts.NewSurface, m.opts.Width, m.opts.Height, m.opts.SurfaceAttempts, m.opts.SurfaceInterval)
	if err != nil {
		// Not a fault: the surface was simply never ready.
		logrus.WithError(err).WithField("user_id", ownerID).Debug("Gave up waiting for a drawing surface")
		return nil, ErrSurfaceUnavailable
	}

	s := &Session{
		ID:         ulid.Make().String(),
		OwnerID:    ownerID,
		CreatedAt:  time.Now(),
		surface:    surface,
		history:    NewHistory(m.opts.HistoryLimit),
		garments:   NewGarmentSelector(m.opts.Catalog),
		compositor: m.compositor,
		store:      m.opts.Store,
		events:     m.opts.Events,
	}
	if err := s.RecordState(); err != nil {
		return nil, err
	}
	s.touch(m.opts.Now())

	m.mu.Lock()
	var evicted []*Session
	for m.countLocked(ownerID) >= m.opts.MaxSessionsPerOwner {
		oldest := m.oldestLocked(ownerID)
		delete(m.sessions, oldest.ID)
		evicted = append(evicted, oldest)
	}
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SetActiveSessions(n)
	for _, old := range evicted {
		old.log().Info("Design session closed to make room for a new one")
	}
	s.log().Info("Design session opened")
	return s, nil
}

func (m *Manager) countLocked(ownerID string) int {
	n := 0
	for _, s := range m.sessions {
		if s.OwnerID == ownerID {
			n++
		}
	}
	return n
}

func (m *Manager) oldestLocked(ownerID string) *Session {
	var oldest *Session
	for _, s := range m.sessions {
		if s.OwnerID != ownerID {
			continue
		}
		if oldest == nil || s.lastUsed.Load() < oldest.lastUsed.Load() {
			oldest = s
		}
	}
	return oldest
}

// Sweep closes sessions unused for longer than the idle timeout and returns how
// many it closed. Sessions with a save in flight are kept.
func (m *Manager) Sweep() int {
	cutoff := m.opts.Now().Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.Saving() || !s.LastUsed().Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		expired = append(expired, s)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}
	metrics.SetActiveSessions(n)
	for _, s := range expired {
		s.log().Info("Idle design session expired")
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Get returns an owner's session.
func (m *Manager) Get(ownerID, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || s.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.touch(m.opts.Now())
	return s, nil
}

// Close discards an owner's session.
func (m *Manager) Close(ownerID, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.OwnerID != ownerID {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SetActiveSessions(n)
	s.log().Info("Design session closed")
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Store returns the design store sessions save to.
func (m *Manager) Store() core.DesignStore {
	return m.opts.Store
}

// IsNotFound reports whether err means a session or object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrObjectNotFound)
}
