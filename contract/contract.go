//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"groupchat/domain"
	"groupchat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself; supervision handles panics and restarts.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need
// for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives events for one connection. Implementations must
// never block the caller: a slow or dead subscriber is the sink's
// problem, not the publisher's.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IPresence tracks which ephemeral connections hold which identity and
// which room they currently observe. Purely in-memory, rebuilt from
// nothing on restart.
type IPresence interface {
	Register(conn domain.ConnectionID, identity domain.Identity) error
	Unregister(conn domain.ConnectionID) (domain.Identity, bool)
	IdentityOf(conn domain.ConnectionID) (domain.Identity, bool)
	CurrentRoomOf(conn domain.ConnectionID) (domain.RoomID, bool)
	SetCurrentRoom(conn domain.ConnectionID, roomID domain.RoomID)
	Count() int
}

// IRouter maintains the room -> subscriber index and delivers events to
// the right connection subset. Per-room publish order is preserved;
// order across rooms is unspecified.
type IRouter interface {
	Attach(conn domain.ConnectionID, sink EventSink)
	Detach(conn domain.ConnectionID)
	Subscribe(conn domain.ConnectionID, roomID domain.RoomID)
	Unsubscribe(conn domain.ConnectionID, roomID domain.RoomID)
	Subscribers(roomID domain.RoomID) []domain.ConnectionID
	Publish(ctx context.Context, roomID domain.RoomID, e event.DomainEvent)
	PublishExcept(ctx context.Context, roomID domain.RoomID, e event.DomainEvent, excluded domain.ConnectionID)
	PublishGlobal(ctx context.Context, e event.DomainEvent)
	Send(ctx context.Context, conn domain.ConnectionID, e event.DomainEvent)
}

// ICoordinator admits AI requests. Enqueue never blocks the caller.
type ICoordinator interface {
	Enqueue(req domain.AIRequest) error
}
