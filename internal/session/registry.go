package session

import "sync"

// Registry is the process-wide map of live call sessions by call id.
// It is injected into the orchestrator at construction so tests can
// supply an isolated instance.
//
// Invariant: at most one live session per call id, enforced by the
// atomic insert-if-absent in Add.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*CallSession
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*CallSession),
	}
}

// Add inserts the session if its call id is absent.
// Returns ErrDuplicateCall if a session for the id is already live.
func (r *Registry) Add(s *CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.CallID]; exists {
		return ErrDuplicateCall
	}
	r.sessions[s.CallID] = s
	return nil
}

// Get returns the live session for the call id, if any.
func (r *Registry) Get(callID string) (*CallSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[callID]
	return s, ok
}

// Remove deletes the session for the call id. Removing an absent id
// is a no-op.
func (r *Registry) Remove(callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, callID)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns a snapshot of the live sessions.
func (r *Registry) All() []*CallSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*CallSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
