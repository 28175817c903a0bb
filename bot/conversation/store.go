package conversation

import "sync"

// MemoryStore keeps sessions in process memory. Sessions are values, so
// callers get copies and write back through Put.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session)}
}

// Get returns the session for userID, creating a fresh one on first contact.
func (s *MemoryStore) Get(userID int64) Session {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return NewSession()
	}
	return sess
}

// Known reports whether userID has an existing session.
func (s *MemoryStore) Known(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[userID]
	return ok
}

// Put stores the session for userID.
func (s *MemoryStore) Put(userID int64, sess Session) {
	s.mu.Lock()
	s.sessions[userID] = sess
	s.mu.Unlock()
}

// Reset drops the session for userID.
func (s *MemoryStore) Reset(userID int64) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// Stats reports the number of live sessions and how many sit in a dialog.
func (s *MemoryStore) Stats() (total, inDialog int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		total++
		if sess.State.IsDialog() {
			inDialog++
		}
	}
	return total, inDialog
}
