package core

import (
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/wirebridge/internal/store"
	"github.com/vovakirdan/wirebridge/internal/utils"
)

// Registry tracks every live session. Lock order is registry, then session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    clock.Clock
}

// NewRegistry creates an empty registry.
func NewRegistry(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		clock:    clk,
	}
}

// Create inserts a new unauthenticated session with a fresh token.
func (r *Registry) Create(connID, addr string) (*Session, error) {
	token, err := utils.RandomToken(TokenLength)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[connID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, connID)
	}

	s := newSession(connID, addr, token, r.clock.Now())
	r.sessions[connID] = s
	return s, nil
}

// FindByUsername returns the authenticated session holding name, or nil.
// The empty name never matches.
func (r *Registry) FindByUsername(name string) *Session {
	if name == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findByUsernameLocked(name)
}

func (r *Registry) findByUsernameLocked(name string) *Session {
	for _, s := range r.sessions {
		if s.holds(name) {
			return s
		}
	}
	return nil
}

// FindByConnection returns the session of a connection, or nil.
func (r *Registry) FindByConnection(connID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[connID]
}

// Remove deletes a session. It returns false if the session was not present.
func (r *Registry) Remove(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[connID]; !exists {
		return false
	}
	delete(r.sessions, connID)
	return true
}

// ForceLogout unauthenticates s and notifies it with reason. The session
// stays registered and may log in again.
func (r *Registry) ForceLogout(s *Session, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	forceLogout(s, reason)
}

func forceLogout(s *Session, reason string) {
	s.logout()
	s.emit(&Event{Kind: EventLogout, User: s.Username(), Reason: reason})
}

// Claim logs s in as username. A different session already holding the name
// is force-logged-out with evictReason first; both steps happen in one
// critical section so two sessions can never hold the same name.
// The evicted session, if any, is returned.
func (r *Registry) Claim(s *Session, username string, acc *store.Account, ch Channel, evictReason string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[s.ConnID] != s {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, s.ConnID)
	}

	evicted := r.findByUsernameLocked(username)
	if evicted == s {
		evicted = nil
	}
	if evicted != nil {
		forceLogout(evicted, evictReason)
	}

	s.login(username, acc, ch)
	return evicted, nil
}

// Sessions returns a snapshot of all registered sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
