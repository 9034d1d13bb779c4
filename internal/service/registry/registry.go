// Package registry indexes live call sessions for monitoring and cleanup.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ai-voice-agent-service/internal/service/session"
)

// ErrDuplicateSession is returned when a session id is registered twice.
var ErrDuplicateSession = errors.New("session already registered")

// Registry is a process-wide, non-owning index from session id to session.
// Removing a session from the registry does not close it. Safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	now      func() time.Time
}

func New() *Registry {
	return &Registry{
		sessions: make(map[string]*session.Session),
		now:      time.Now,
	}
}

// Register adds a session.
func (r *Registry) Register(s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID()]; ok {
		return ErrDuplicateSession
	}
	r.sessions[s.ID()] = s
	return nil
}

// Unregister removes a session and reports whether it was present. Removing
// an unknown or already removed id is a no-op.
func (r *Registry) Unregister(sessionId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionId]; !ok {
		return false
	}
	delete(r.sessions, sessionId)
	return true
}

// Get returns a registered session.
func (r *Registry) Get(sessionId string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionId]
	return s, ok
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns summaries of all registered sessions, oldest first.
func (r *Registry) List() []session.Summary {
	r.mu.RLock()
	snapshot := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].StartedAt().Before(snapshot[j].StartedAt())
	})

	out := make([]session.Summary, 0, len(snapshot))
	for _, s := range snapshot {
		out = append(out, s.Summary())
	}
	return out
}

// Sweep removes sessions that started more than maxAge ago and returns how
// many were removed. It is meant for sessions whose stop event was missed.
func (r *Registry) Sweep(maxAge time.Duration) int {
	now := r.now()

	r.mu.Lock()
	var removed []*session.Session
	for id, s := range r.sessions {
		if now.Sub(s.StartedAt()) > maxAge {
			delete(r.sessions, id)
			removed = append(removed, s)
		}
	}
	r.mu.Unlock()

	for _, s := range removed {
		log.Info().
			Str("sessionId", s.ID()).
			Str("callId", s.CallID()).
			Dur("age", now.Sub(s.StartedAt())).
			Msg("Swept stale session")
	}
	return len(removed)
}
