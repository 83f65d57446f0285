package core

import (
	"sync"
	"time"

	"github.com/vovakirdan/wirebridge/internal/store"
)

const (
	// TokenLength is the number of characters of a session token.
	TokenLength = 32
	// PlaceholderName is the username of a session that has not logged in.
	PlaceholderName = "connecting"

	eventQueueSize = 64
)

// Session is the live state of one connection as seen by the core layer.
// ConnID, Addr, Token and Events never change; the remaining fields are
// written only by the Registry.
type Session struct {
	ConnID string
	Addr   string
	Token  string
	Events chan *Event

	mu            sync.Mutex
	username      string
	authenticated bool
	account       *store.Account
	channel       Channel
	limiter       *RateLimiter
}

func newSession(connID, addr, token string, now time.Time) *Session {
	return &Session{
		ConnID:   connID,
		Addr:     addr,
		Token:    token,
		Events:   make(chan *Event, eventQueueSize),
		username: PlaceholderName,
		limiter:  NewRateLimiter(now),
	}
}

// Username returns the display name.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Authenticated reports whether the session passed a credential check.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Account returns the linked account, nil for master-password sessions.
func (s *Session) Account() *store.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// IsAdmin reports whether the linked account has the admin flag.
func (s *Session) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account != nil && s.account.IsAdmin
}

// Channel returns the joined internal channel of an authenticated session.
func (s *Session) Channel() (Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel, s.authenticated
}

// holds reports whether the session is logged in as username.
func (s *Session) holds(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated && s.username == username
}

func (s *Session) allow(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limiter.Allow(now)
}

func (s *Session) login(username string, acc *store.Account, ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.authenticated = true
	s.account = acc
	s.channel = ch
}

func (s *Session) logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
	s.account = nil
	s.channel = Channel{}
}

// emit queues an event without blocking. It returns false when the queue is
// full and the event was dropped.
func (s *Session) emit(ev *Event) bool {
	select {
	case s.Events <- ev:
		return true
	default:
		return false
	}
}
