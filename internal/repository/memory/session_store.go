package memory

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps sessions in a map with per-entry expiry.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
}

type sessionEntry struct {
	adminID   string
	expiresAt time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]sessionEntry)}
}

func (s *SessionStore) Create(_ context.Context, sessionID, adminID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = sessionEntry{adminID: adminID, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *SessionStore) Resolve(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.sessions, sessionID)
		return "", ErrSessionNotFound
	}
	return entry.adminID, nil
}

func (s *SessionStore) Drop(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// LoginLimiter counts failed attempts per admin in memory. Windows are not
// enforced; counters last until Reset, which is sufficient for tests and
// single-process development runs.
type LoginLimiter struct {
	mu          sync.Mutex
	maxAttempts int
	failures    map[string]int
}

func NewLoginLimiter(maxAttempts int) *LoginLimiter {
	return &LoginLimiter{maxAttempts: maxAttempts, failures: make(map[string]int)}
}

func (l *LoginLimiter) RecordFailure(_ context.Context, adminID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[adminID]++
	return l.failures[adminID] >= l.maxAttempts, nil
}

func (l *LoginLimiter) IsLocked(_ context.Context, adminID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures[adminID] >= l.maxAttempts, nil
}

func (l *LoginLimiter) Reset(_ context.Context, adminID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, adminID)
	return nil
}
