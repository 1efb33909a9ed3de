// Package session tracks browser sessions: a per-session API key override and
// a free-use counter for requests billed to the server key.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName is the cookie carrying the session ID
const CookieName = "codeagent_session"

// ErrQuotaExceeded is returned once a session has used up its free requests
var ErrQuotaExceeded = errors.New("free usage limit reached, please provide your own API key")

// Session is a snapshot of one session's state
type Session struct {
	ID       string
	APIKey   string
	Uses     int
	LastSeen time.Time
}

// Manager holds sessions in memory
type Manager struct {
	sessions map[string]*Session
	mu       sync.Mutex
	freeUses int
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a session manager. A ttl of zero disables pruning.
func NewManager(freeUses int, ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		freeUses: freeUses,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the session for id, creating a fresh one when id is empty or
// unknown. The returned ID may differ from the argument.
func (m *Manager) Get(id string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.lookup(id)
}

// SetKey stores a user-supplied API key for the session
func (m *Manager) SetKey(id, apiKey string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.lookup(id)
	s.APIKey = apiKey
	return *s
}

// Consume records one request. Requests made with the session's own key are
// not counted; requests on the server key fail with ErrQuotaExceeded after
// the free allowance is spent.
func (m *Manager) Consume(id string, usingOwnKey bool) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.lookup(id)
	if usingOwnKey {
		return *s, nil
	}
	if s.Uses >= m.freeUses {
		return *s, ErrQuotaExceeded
	}
	s.Uses++
	return *s, nil
}

// Remaining returns how many free requests the session has left
func (m *Manager) Remaining(s Session) int {
	if n := m.freeUses - s.Uses; n > 0 {
		return n
	}
	return 0
}

// Prune drops sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Prune() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// lookup must be called with mu held
func (m *Manager) lookup(id string) *Session {
	now := m.now()
	if s, ok := m.sessions[id]; ok && id != "" {
		s.LastSeen = now
		return s
	}
	s := &Session{ID: uuid.New().String(), LastSeen: now}
	m.sessions[s.ID] = s
	return s
}
