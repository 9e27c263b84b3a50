package server

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// Registry is the concurrency-safe mapping from logged-in username to its
// live session. It enforces at-most-one-active-session-per-user: attaching
// a username that already has a session replaces the old mapping, and
// detaching uses compare-and-remove so a stale disconnect handler can never
// evict the newer session that replaced it.
//
// The registry never closes sessions on replacement; Attach hands the
// displaced session back to the caller, which owns that decision.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		log:      log,
	}
}

// Attach installs session as the active connection for username and returns
// the session it displaced, if any. The displaced session is not closed.
func (r *Registry) Attach(username string, session *Session) *Session {
	r.mu.Lock()
	displaced := r.sessions[username]
	r.sessions[username] = session
	total := len(r.sessions)
	r.mu.Unlock()

	r.log.Info("session attached",
		"username", username, "session", session.ID(), "online", total)
	return displaced
}

// Detach removes the mapping for username only if session is still the one
// registered. It reports whether a removal happened; a false return means
// the session was already replaced or removed.
func (r *Registry) Detach(username string, session *Session) bool {
	r.mu.Lock()
	current, exists := r.sessions[username]
	if !exists || current != session {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, username)
	total := len(r.sessions)
	r.mu.Unlock()

	r.log.Info("session detached",
		"username", username, "session", session.ID(), "online", total)
	return true
}

// Lookup returns the active session for username, if one exists.
func (r *Registry) Lookup(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[username]
	return session, exists
}

// Usernames returns a sorted snapshot of currently connected usernames.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	names := lo.Keys(r.sessions)
	r.mu.RUnlock()

	slices.Sort(names)
	return names
}

// Len returns the number of currently connected sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll detaches every session and closes it with the given reason.
// Used during graceful shutdown. Sessions are closed outside the lock.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	snapshot := lo.Values(r.sessions)
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, session := range snapshot {
		session.CloseWithReason(websocket.CloseGoingAway, reason)
	}

	if len(snapshot) > 0 {
		r.log.Info("closed all sessions", "count", len(snapshot), "reason", reason)
	}
}
