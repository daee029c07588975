package session

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry is the in-memory registry of sessions for a node that talks to
// many peers at once (the Supervisor, tracking many PLCs and RTUs). It is
// modeled on a classic agent-manager registry: a mutex-protected
// map keyed by peer ID, with register/deregister/dispatch-shaped accessors
// and snapshot-returning reads so callers never hold the lock while doing
// slow work (sending, logging).
//
// The zero value is not usable — create instances with NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger.Named("session"),
	}
}

// Link creates (or replaces) the session for peerID and marks it linked.
// Replacing an existing entry can happen if a peer relinks before its old
// session's watchdog expired (e.g. after a radio blip) — the old entry is
// simply discarded, matching agentmanager.Manager.Register's behavior on a
// duplicate agent ID.
func (r *Registry) Link(peerID string, watchdogDuration time.Duration, now time.Time) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[peerID]; exists {
		r.logger.Warn("replacing existing session", zap.String("peer_id", peerID))
	}

	s := New(peerID, watchdogDuration)
	s.Linked = true
	s.Watchdog.Feed(now)
	r.sessions[peerID] = s

	r.logger.Info("peer linked", zap.String("peer_id", peerID), zap.Int("total_linked", len(r.sessions)))
	return s
}

// Unlink removes peerID from the registry. Called on CLOSE, watchdog
// timeout, or explicit unlink.
func (r *Registry) Unlink(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[peerID]; !exists {
		return
	}
	delete(r.sessions, peerID)
	r.logger.Info("peer unlinked", zap.String("peer_id", peerID), zap.Int("total_linked", len(r.sessions)))
}

// Get returns the session for peerID, if any.
func (r *Registry) Get(peerID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[peerID]
	return s, ok
}

// IsLinked reports whether peerID currently has a linked session.
func (r *Registry) IsLinked(peerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[peerID]
	return ok && s.Linked
}

// Snapshot returns a copy of all currently tracked sessions, safe to range
// over without holding the registry's lock.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		cp := *s
		out = append(out, &cp)
	}
	return out
}

// ReapExpired removes every session whose watchdog has fired, returning the
// peer IDs removed. This is a belt-and-suspenders sweep — the primary
// timeout path is the per-session watchdog observed by whatever loop owns
// that session; this exists for nodes (like the Supervisor) that also want
// a periodic consistency pass (see supervisor/housekeep).
func (r *Registry) ReapExpired(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reaped []string
	for peerID, s := range r.sessions {
		if fired, _ := s.Watchdog.Check(now); fired {
			delete(r.sessions, peerID)
			reaped = append(reaped, peerID)
		}
	}
	if len(reaped) > 0 {
		r.logger.Info("reaped expired sessions", zap.Strings("peer_ids", reaped))
	}
	return reaped
}

// Count returns the number of currently tracked sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// String implements fmt.Stringer for quick debug logging.
func (r *Registry) String() string {
	return fmt.Sprintf("Registry{sessions=%d}", r.Count())
}
