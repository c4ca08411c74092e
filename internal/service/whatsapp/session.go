package whatsapp

import (
	"sync"
	"time"
)

// DefaultSessionTTL bounds how long a sender's focused batch is remembered.
const DefaultSessionTTL = 30 * time.Minute

type session struct {
	batchID   int64
	updatedAt time.Time
}

// SessionManager remembers the batch each chat user last addressed.
type SessionManager struct {
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
}

// NewSessionManager creates a new session manager. A non-positive ttl uses DefaultSessionTTL.
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Focus returns the sender's batch while the session is fresh.
func (sm *SessionManager) Focus(userID string) (int64, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	state, exists := sm.sessions[userID]
	if !exists || sm.now().Sub(state.updatedAt) > sm.ttl {
		return 0, false
	}
	return state.batchID, true
}

// SetFocus records the sender's current batch.
func (sm *SessionManager) SetFocus(userID string, batchID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[userID] = session{batchID: batchID, updatedAt: sm.now()}
}

// ClearSession removes a user's session.
func (sm *SessionManager) ClearSession(userID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, userID)
}

// Prune drops expired sessions and returns how many were removed.
func (sm *SessionManager) Prune() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	removed := 0
	for id, state := range sm.sessions {
		if sm.now().Sub(state.updatedAt) > sm.ttl {
			delete(sm.sessions, id)
			removed++
		}
	}
	return removed
}
