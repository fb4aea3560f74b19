package session

import (
	"errors"
	"sync"

	"github.com/Strum355/log"
)

// Factory builds the session for a key. It runs while the registry is locked, so it
// should only assemble the session.
type Factory func(key string) (*Session, error)

// Registry maps a guild ID to its live session
type Registry struct {
	sessions map[string]*Session
	mu       sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for key, building and starting one with factory if
// none exists. Concurrent callers for one key always share a single session.
func (r *Registry) GetOrCreate(key string, factory Factory) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A session still tearing down is replaced
	if s, ok := r.sessions[key]; ok && s.State() != Stopped {
		return s, nil
	}

	s, err := factory(key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.onStop = r.release
	s.mu.Unlock()

	r.sessions[key] = s
	s.Start()

	log.WithFields(log.Fields{"guild_id": key}).Info("Session created")
	return s, nil
}

// Get returns the session for key. It may already be Stopped while it tears down.
func (r *Registry) Get(key string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Remove deletes the mapping for key. Removing a missing key does nothing.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}

// release drops s unless its key already belongs to a newer session
func (r *Registry) release(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[s.key]; ok && current == s {
		delete(r.sessions, s.key)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ForEach calls fn for every live session
func (r *Registry) ForEach(fn func(*Session)) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		fn(s)
	}
}

// Shutdown leaves every live session and empties the registry
func (r *Registry) Shutdown() {
	r.ForEach(func(s *Session) {
		if err := s.Leave(); err != nil && !errors.Is(err, ErrAlreadyStopped) {
			log.WithFields(log.Fields{"guild_id": s.Key()}).WithError(err).Error("Failed to stop session")
		}
	})

	r.mu.Lock()
	clear(r.sessions)
	r.mu.Unlock()
}
