// Package realtime implements the websocket presence channel: a hub of
// connected clients, a registry of identified users, and the event handlers
// that keep per-tenant online flags in sync with socket state.
package realtime

import "sync"

// registration ties an identified user to their active socket.
type registration struct {
	SocketID string
	TenantID string
}

// Registry is the process-wide map of online users. A user maps to at most
// one socket; a second connection from the same user overwrites the first
// (last write wins). Purely in-memory: it mirrors live socket state and is
// rebuilt naturally as clients reconnect after a restart.
type Registry struct {
	mu    sync.RWMutex
	users map[string]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]registration)}
}

// Put registers the user's active socket, replacing any previous one.
func (r *Registry) Put(userID, tenantID, socketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = registration{SocketID: socketID, TenantID: tenantID}
}

// Remove clears the user's registration.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
}

// Get returns the user's active socket id, if the user is online.
func (r *Registry) Get(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.users[userID]
	return reg.SocketID, ok
}

// Online reports whether the user has an active socket.
func (r *Registry) Online(userID string) bool {
	_, ok := r.Get(userID)
	return ok
}

// Len returns the number of online users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
