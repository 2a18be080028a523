package runtime

import (
	"context"
	"log/slog"
	"sync"

	"groupchat/contract"
	"groupchat/domain"
	"groupchat/domain/event"
)

type connSet map[domain.ConnectionID]struct{}

// Router maintains the room -> subscribers index and delivers events to
// the right connection subset. The index is derived state: it must stay
// consistent with the presence registry's per-connection current room,
// which the session handlers guarantee by unsubscribing from the old
// room before subscribing to the new one.
type Router struct {
	mu    sync.RWMutex
	log   *slog.Logger
	sinks map[domain.ConnectionID]contract.EventSink
	rooms map[domain.RoomID]connSet
}

func NewRouter(log *slog.Logger) *Router {
	return &Router{
		log:   log,
		sinks: make(map[domain.ConnectionID]contract.EventSink),
		rooms: make(map[domain.RoomID]connSet),
	}
}

// Attach registers the connection's delivery sink. Until a connection
// is attached it cannot receive anything, room-scoped or global.
func (r *Router) Attach(conn domain.ConnectionID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[conn] = sink
}

// Detach removes the sink and every room subscription for the
// connection, preventing leaks on disconnect.
func (r *Router) Detach(conn domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, conn)
	for roomID, set := range r.rooms {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

func (r *Router) Subscribe(conn domain.ConnectionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomID]; !ok {
		r.rooms[roomID] = make(connSet)
	}
	r.rooms[roomID][conn] = struct{}{}
}

func (r *Router) Unsubscribe(conn domain.ConnectionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.rooms[roomID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// Subscribers returns the connections currently subscribed to a room,
// so session handlers can relocate occupants when the room goes away.
func (r *Router) Subscribers(roomID domain.RoomID) []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]domain.ConnectionID, 0, len(r.rooms[roomID]))
	for conn := range r.rooms[roomID] {
		conns = append(conns, conn)
	}
	return conns
}

// Publish delivers the event to every connection currently subscribed
// to the room. Events published sequentially for one room reach every
// subscriber in that sequence; delivery order across subscribers is
// unspecified.
func (r *Router) Publish(ctx context.Context, roomID domain.RoomID, e event.DomainEvent) {
	r.PublishExcept(ctx, roomID, e, "")
}

// PublishExcept is Publish minus one connection, used to avoid echoing
// a notice back to a connection that already received a snapshot.
func (r *Router) PublishExcept(ctx context.Context, roomID domain.RoomID, e event.DomainEvent, excluded domain.ConnectionID) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for conn := range r.rooms[roomID] {
		if conn == excluded {
			continue
		}
		r.deliver(ctx, conn, e)
	}
}

// PublishGlobal delivers to all attached connections, independent of
// their room.
func (r *Router) PublishGlobal(ctx context.Context, e event.DomainEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for conn := range r.sinks {
		r.deliver(ctx, conn, e)
	}
}

// Send delivers to a single connection. Used for snapshots, history
// and originator-only error notices.
func (r *Router) Send(ctx context.Context, conn domain.ConnectionID, e event.DomainEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.deliver(ctx, conn, e)
}

// deliver swallows sink failures: a dead transport must never block or
// fail delivery to the remaining subscribers.
func (r *Router) deliver(ctx context.Context, conn domain.ConnectionID, e event.DomainEvent) {
	sink, ok := r.sinks[conn]
	if !ok {
		return
	}
	if err := sink.Consume(ctx, e); err != nil {
		r.log.Debug("Event delivery failed",
			"connection", string(conn),
			"event", string(e.EventType()),
			"error", err)
	}
}
