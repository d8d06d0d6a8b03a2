package session

import "sync"

// Store defines the interface for session state storage.
// Implementations must be safe for concurrent insert, read, and update
// across sessions; per-session write ordering is the engine's concern.
type Store interface {
	// Put inserts or replaces a session record.
	Put(sess *Session)
	// Get returns a copy of the session, or false if the id is unknown.
	Get(id string) (Session, bool)
	// Update runs fn against the live record under the store lock.
	// fn may inspect the current state and decline the write by returning
	// false. Update returns true only if the id exists and fn applied.
	Update(id string, fn func(*Session) bool) bool
}

// memoryStore implements Store with a mutex-guarded map.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[string]*Session),
	}
}

func (m *memoryStore) Put(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
}

func (m *memoryStore) Get(id string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

func (m *memoryStore) Update(id string, fn func(*Session) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return false
	}
	return fn(sess)
}
