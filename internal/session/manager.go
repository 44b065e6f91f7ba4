package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironsheep/glyph-practice-mcp/internal/canvas"
)

// Options configures a Manager.
type Options struct {
	// Defaults are the surface options new sessions start from.
	Defaults canvas.Options
	// MaxSessions bounds open sessions. Zero means unlimited.
	MaxSessions int
	// LockInputDuringDetection rejects Begin and Extend while a detection of
	// the same session runs.
	LockInputDuringDetection bool
	Logger                   *zap.Logger
}

// Manager is the registry of open sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	defaults canvas.Options
	max      int
	lock     bool
	log      *zap.Logger
}

// NewManager returns an empty registry.
func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		defaults: opts.Defaults,
		max:      opts.MaxSessions,
		lock:     opts.LockInputDuringDetection,
		log:      log,
	}
}

// Defaults returns the surface options new sessions start from.
func (m *Manager) Defaults() canvas.Options {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaults
}

// SetDefaults replaces the options used for sessions created afterwards.
// Open sessions keep theirs.
func (m *Manager) SetDefaults(opts canvas.Options) {
	m.mu.Lock()
	m.defaults = opts
	m.mu.Unlock()
}

// Create opens a session with opts. The caller usually starts from
// Defaults() and overrides a few fields.
func (m *Manager) Create(opts canvas.Options) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.max > 0 && len(m.sessions) >= m.max {
		return nil, fmt.Errorf("%w (%d open)", ErrLimit, len(m.sessions))
	}
	if opts.Logger == nil {
		opts.Logger = m.log
	}
	surface, err := canvas.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create canvas: %w", err)
	}

	id := uuid.NewString()
	s := newSession(id, surface, m.lock, m.log)
	m.sessions[id] = s
	m.log.Debug("session created", zap.String("session", id), zap.Int("open", len(m.sessions)))
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Close removes and closes the session with id.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.log.Debug("session closed", zap.String("session", id))
	return s.Close()
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	open := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for id, s := range open {
		if err := s.Close(); err != nil {
			m.log.Warn("closing session", zap.String("session", id), zap.Error(err))
		}
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the open session ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
