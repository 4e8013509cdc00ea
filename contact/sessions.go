package contact

import (
	"context"
	"sync"
	"time"

	"github.com/dkessler/homepage/log"
)

// Session pairs one visitor's widget with its challenge provider
// instance. The provider owns the session's single challenge container.
type Session struct {
	Widget   *Widget
	Provider Provider
}

// Sessions holds one Session per visitor. Sessions are isolated:
// verifying in one never affects another. Idle sessions are swept after
// the TTL, which closes their widget and cancels any in-flight load.
type Sessions struct {
	ttl        time.Duration
	newSession func() Session

	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	session   Session
	expiresAt time.Time
}

func NewSessions(ttl time.Duration, newSession func() Session) *Sessions {
	return &Sessions{
		ttl:        ttl,
		newSession: newSession,
		entries:    make(map[string]*sessionEntry),
	}
}

// Open returns the session for the given id, creating and mounting its
// widget on first use, and opens the widget if it is closed.
func (s *Sessions) Open(id string) Session {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok {
		entry = &sessionEntry{session: s.newSession()}
		s.entries[id] = entry
		entry.session.Widget.Mount()
	}
	entry.expiresAt = time.Now().Add(s.ttl)
	s.mu.Unlock()

	entry.session.Widget.Open()
	return entry.session
}

// Get returns an existing session and refreshes its TTL.
func (s *Sessions) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return Session{}, false
	}
	entry.expiresAt = time.Now().Add(s.ttl)
	return entry.session, true
}

// Close closes the session's widget and drops the session.
func (s *Sessions) Close(id string) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if ok {
		entry.session.Widget.Close()
	}
}

// Sweep runs the expiry janitor until the context is cancelled.
func (s *Sessions) Sweep(ctx context.Context) {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweepOnce(now)
		}
	}
}

func (s *Sessions) sweepOnce(now time.Time) {
	var expired []*sessionEntry
	s.mu.Lock()
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			expired = append(expired, entry)
		}
	}
	s.mu.Unlock()

	for _, entry := range expired {
		entry.session.Widget.Close()
	}
	if len(expired) > 0 {
		log.Debugf("contact.sessions.sweep: %d expired", len(expired))
	}
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
