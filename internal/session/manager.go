package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("session not found")

// Manager keeps the sessions of one process in memory.
type Manager struct {
	quoter Quoter
	opts   Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(q Quoter, opts Options) *Manager {
	return &Manager{
		quoter:   q,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a random identifier.
func (m *Manager) Create() *Session {
	s := New(uuid.NewString(), m.quoter, m.opts)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.opts.Metrics.SetSessionsActive(n)
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Sweep forgets sessions that expired more than one TTL ago. Recently
// expired sessions are kept so callers can still be told they expired.
func (m *Manager) Sweep() int {
	now := m.opts.Now()

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.expiredFor(now, m.opts.TTL) {
			delete(m.sessions, id)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	m.opts.Metrics.SetSessionsActive(n)
	return removed
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.opts.Logger.Info("swept expired sessions", zap.Int("removed", n))
			}
		}
	}
}
