package ws

import "sync"

// Conn is a live, possibly unauthenticated, client connection.
type Conn interface {
	ID() string
	// Send enqueues payload without blocking. It reports false when the
	// connection can no longer accept frames.
	Send(payload []byte) bool
	Close() error
}

// Registry maps live connections to authenticated user ids and back.
// A user has at most one routable connection: binding a newer connection for
// the same user evicts the older one from both maps without closing it.
type Registry struct {
	mu     sync.RWMutex
	byConn map[Conn]string
	byUser map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[Conn]string),
		byUser: make(map[string]Conn),
	}
}

func (r *Registry) Bind(c Conn, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-auth as a different user drops the previous identity.
	if prev, ok := r.byConn[c]; ok && prev != userID {
		if r.byUser[prev] == c {
			delete(r.byUser, prev)
		}
	}
	if old, ok := r.byUser[userID]; ok && old != c {
		delete(r.byConn, old)
	}
	r.byConn[c] = userID
	r.byUser[userID] = c
}

// Unbind forgets c. It returns the user c was bound to and whether c was
// still that user's routable connection.
func (r *Registry) Unbind(c Conn) (userID string, current bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[c]
	if !ok {
		return "", false
	}
	delete(r.byConn, c)
	if r.byUser[userID] == c {
		delete(r.byUser, userID)
		current = true
	}
	return userID, current
}

func (r *Registry) Resolve(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

func (r *Registry) IdentityOf(c Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[c]
	return id, ok
}

// LiveConnectionsFor resolves userIDs to their connections, skipping users
// that are offline. Duplicate ids resolve once.
func (r *Registry) LiveConnectionsFor(userIDs []string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conn, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if c, ok := r.byUser[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of authenticated connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
