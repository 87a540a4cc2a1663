// ABOUTME: Server-side session store for stateful credential mode
// ABOUTME: In-memory table with sliding expiry behind a narrow interface

package auth

import (
	"sync"
	"time"
)

// DefaultSessionTTL applies when no session TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

// SessionCookieName is the HTTP-only cookie carrying the session token.
const SessionCookieName = "kartos_admin_session"

// Session is a server-side session record. The token is the map key and the
// cookie value; it never appears in logs.
type Session struct {
	Token     string
	Identity  *Identity
	ExpiresAt time.Time
}

// SessionStore is the narrow interface the middleware and handlers depend on.
// The in-process implementation below suits single-instance deployments; a
// multi-instance deployment needs an external implementation.
type SessionStore interface {
	// Get returns the session if present and unexpired.
	Get(token string) (*Session, bool)
	// Put stores or replaces a session.
	Put(s *Session)
	// Delete removes a session. Deleting an absent token is not an error.
	Delete(token string)
	// Touch slides the session's expiry forward by ttl and returns the
	// renewed session, or false if the token is absent or already expired.
	Touch(token string, ttl time.Duration) (*Session, bool)
}

// MemorySessionStore implements SessionStore with a process-wide map.
// All stateful sessions are lost on restart; this is an accepted deployment
// constraint of session mode.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Get returns the session for the token, expiring it lazily.
func (m *MemorySessionStore) Get(token string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(token)
}

func (m *MemorySessionStore) getLocked(token string) (*Session, bool) {
	s, ok := m.sessions[token]
	if !ok {
		return nil, false
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, token)
		return nil, false
	}
	return s, true
}

// Put stores or replaces a session.
func (m *MemorySessionStore) Put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
}

// Delete removes a session, idempotently.
func (m *MemorySessionStore) Delete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// Touch renews the session's expiry by the full ttl (sliding window).
func (m *MemorySessionStore) Touch(token string, ttl time.Duration) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.getLocked(token)
	if !ok {
		return nil, false
	}
	s.ExpiresAt = m.now().Add(ttl)
	return s, true
}

// Len reports the number of live entries, expired ones included until their
// next lookup.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
