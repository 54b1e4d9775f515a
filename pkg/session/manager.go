package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/domaindetect/internal/logging"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
	"github.com/google/uuid"
)

// lockTTL bounds how long a crashed replica can hold a session lock.
const lockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager keeps sessions addressable by ID, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	cfg  domain.Config
	deps Dependencies
	opts []Option

	mu       sync.Mutex            // Global lock for the maps
	locks    map[string]*lockEntry // Map of active locks
	sessions map[string]*Session

	locker ports.DistributedLocker // Optional distributed locker
	logger *slog.Logger
}

// NewManager creates a session registry. Every session it creates shares the
// collaborators in deps and starts from cfg unless Create is given another one.
func NewManager(cfg domain.Config, deps Dependencies, opts ...Option) *Manager {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		cfg:      cfg,
		deps:     deps,
		opts:     opts,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*Session),
		locker:   o.locker,
		logger:   o.logger,
	}
}

// Config returns the default configuration for new sessions.
func (m *Manager) Config() domain.Config {
	return m.cfg
}

// Create starts a new session. A nil cfg uses the manager's default configuration.
func (m *Manager) Create(cfg *domain.Config) (*Session, error) {
	c := m.cfg
	if cfg != nil {
		c = *cfg
	}

	id := uuid.New().String()
	opts := append(append([]Option(nil), m.opts...), WithID(id))
	s, err := New(c, m.deps, opts...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("Session created", "session_id", id)
	return s, nil
}

// Get returns a session by ID or domain.ErrSessionNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete cancels any running operation of the session and forgets it.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		m.mu.Lock()
		s, ok := m.sessions[id]
		delete(m.sessions, id)
		m.mu.Unlock()

		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		s.Cancel()
		m.logger.Info("Session deleted", "session_id", id)
		return nil
	})
}

// List returns the IDs of all live sessions, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Do runs fn on the session while holding its lock.
func (m *Manager) Do(ctx context.Context, id string, fn func(context.Context, *Session) error) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		s, err := m.Get(id)
		if err != nil {
			return err
		}
		return fn(ctx, s)
	})
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
// With a distributed locker configured the lock also spans replicas.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, "session:"+sessionID, lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
