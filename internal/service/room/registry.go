package room

import "sync"

// Binding is the process-local routing state for one live connection.
type Binding struct {
	PlayerID  string
	SessionID string
}

// Registry maps transport connections to the player and session they
// represent. Bindings are ephemeral: created on join or create, replaced on
// reconnect, destroyed on disconnect.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]Binding)}
}

// Bind associates a connection with a player in a session.
func (r *Registry) Bind(connID, playerID, sessionID string) {
	r.mu.Lock()
	r.bindings[connID] = Binding{PlayerID: playerID, SessionID: sessionID}
	r.mu.Unlock()
}

// Resolve looks up the binding for a connection.
func (r *Registry) Resolve(connID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[connID]
	return b, ok
}

// Unbind removes a connection's binding, if any.
func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	delete(r.bindings, connID)
	r.mu.Unlock()
}
