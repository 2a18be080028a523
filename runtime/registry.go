package runtime

import (
	"sync"
	"time"

	"groupchat/domain"
	"groupchat/errors"
)

type binding struct {
	identity domain.Identity
	room     domain.RoomID
	hasRoom  bool
	joinedAt time.Time
}

// Registry is the presence side of the engine: it maps live connections
// to identities and their current room. It owns no durable state and is
// rebuilt from nothing on restart.
type Registry struct {
	mu       sync.RWMutex
	bindings map[domain.ConnectionID]binding
	byName   map[string]domain.ConnectionID
}

func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[domain.ConnectionID]binding),
		byName:   make(map[string]domain.ConnectionID),
	}
}

// Register binds an identity to a connection. It rejects only when a
// *different* live connection already holds the display name; the same
// connection re-registering replaces its prior binding instead of being
// refused.
func (r *Registry) Register(conn domain.ConnectionID, identity domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if holder, ok := r.byName[identity.Username]; ok && holder != conn {
		return errors.ErrNameTaken
	}

	if prev, ok := r.bindings[conn]; ok {
		delete(r.byName, prev.identity.Username)
	}
	r.bindings[conn] = binding{identity: identity, joinedAt: time.Now().UTC()}
	r.byName[identity.Username] = conn
	return nil
}

// Unregister removes the binding and returns the identity that was
// freed, so callers can broadcast a "left" notice. A connection that
// never registered is a no-op.
func (r *Registry) Unregister(conn domain.ConnectionID) (domain.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[conn]
	if !ok {
		return domain.Identity{}, false
	}
	delete(r.bindings, conn)
	if r.byName[b.identity.Username] == conn {
		delete(r.byName, b.identity.Username)
	}
	return b.identity, true
}

func (r *Registry) IdentityOf(conn domain.ConnectionID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[conn]
	return b.identity, ok
}

func (r *Registry) CurrentRoomOf(conn domain.ConnectionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[conn]
	if !ok || !b.hasRoom {
		return 0, false
	}
	return b.room, true
}

// SetCurrentRoom records which room the connection observes. It is a
// no-op for unregistered connections.
func (r *Registry) SetCurrentRoom(conn domain.ConnectionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[conn]
	if !ok {
		return
	}
	b.room = roomID
	b.hasRoom = true
	r.bindings[conn] = b
}

// Count returns the number of live registered connections, for
// presence display.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
