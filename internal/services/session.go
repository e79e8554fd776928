package services

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/crms-ng/crms-backend/internal/models"
)

// DefaultSessionTTL matches typical gateway session timeouts. A USSD
// conversation that stalls longer than this has already timed out at the
// gateway, so the server only ever sees it again as a fresh dial.
const DefaultSessionTTL = 120 * time.Second

// SessionStore keeps in-progress USSD conversations keyed by the
// gateway-assigned session ID. Sessions are independent of each other, but
// a read-modify-write on one session is made atomic under the store lock so
// duplicate gateway retries cannot interleave.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.USSDSession
	ttl      time.Duration
	stop     chan struct{}
}

// NewSessionStore creates a session store and starts its cleanup routine.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	store := &SessionStore{
		sessions: make(map[string]*models.USSDSession),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go store.cleanupExpiredSessions()
	return store
}

// SessionTTLFromEnv reads USSD_SESSION_TTL_SECONDS, falling back to the
// default when unset or invalid.
func SessionTTLFromEnv() time.Duration {
	raw := os.Getenv("USSD_SESSION_TTL_SECONDS")
	if raw == "" {
		return DefaultSessionTTL
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		log.Printf("⚠️  Invalid USSD_SESSION_TTL_SECONDS=%q, using default", raw)
		return DefaultSessionTTL
	}
	return time.Duration(seconds) * time.Second
}

// Get retrieves a live session. Expired or unknown sessions return nil.
func (s *SessionStore) Get(sessionID string) *models.USSDSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(sessionID)
}

func (s *SessionStore) getLocked(sessionID string) *models.USSDSession {
	session, exists := s.sessions[sessionID]
	if !exists {
		return nil
	}
	if time.Now().After(session.ExpiresAt) {
		delete(s.sessions, sessionID)
		return nil
	}
	return session
}

// Create registers a new session for a phone number. An existing live
// session with the same ID is returned unchanged.
func (s *SessionStore) Create(sessionID, phoneNumber string) *models.USSDSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.getLocked(sessionID); existing != nil {
		return existing
	}

	now := time.Now()
	session := &models.USSDSession{
		SessionID:   sessionID,
		PhoneNumber: phoneNumber,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	s.sessions[sessionID] = session
	return session
}

// Update applies a mutation to a live session atomically and refreshes its
// TTL. Returns nil if the session is gone.
func (s *SessionStore) Update(sessionID string, mutate func(*models.USSDSession)) *models.USSDSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.getLocked(sessionID)
	if session == nil {
		return nil
	}
	mutate(session)
	session.ExpiresAt = time.Now().Add(s.ttl)
	return session
}

// Clear deletes a session. Called the moment a response begins with END.
func (s *SessionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// ActiveCount returns the number of live sessions (for monitoring).
func (s *SessionStore) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	now := time.Now()
	for _, session := range s.sessions {
		if now.Before(session.ExpiresAt) {
			count++
		}
	}
	return count
}

// Stop halts the cleanup routine.
func (s *SessionStore) Stop() {
	close(s.stop)
}

// cleanupExpiredSessions runs periodically to drop expired sessions that
// were never read again.
func (s *SessionStore) cleanupExpiredSessions() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			removed := 0
			for id, session := range s.sessions {
				if now.After(session.ExpiresAt) {
					delete(s.sessions, id)
					removed++
				}
			}
			s.mu.Unlock()
			if removed > 0 {
				log.Printf("Cleaned up %d expired USSD sessions", removed)
			}
		}
	}
}
