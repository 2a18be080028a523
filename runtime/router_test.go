package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"groupchat/domain"
	"groupchat/domain/event"
)

// recordingSink captures everything delivered to one connection.
type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
	fail   bool
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	if s.fail {
		return fmt.Errorf("sink is dead")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) received() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

func TestRouter_Publish_Reaches_Room_Subscribers_Only(t *testing.T) {
	req := require.New(t)
	router := NewRouter(logs.GetLoggerFromLevel(slog.LevelDebug))
	ctx := context.Background()

	inRoom := domain.ConnectionID(uuid.NewString())
	elsewhere := domain.ConnectionID(uuid.NewString())
	sinkIn, sinkOut := &recordingSink{}, &recordingSink{}

	router.Attach(inRoom, sinkIn)
	router.Attach(elsewhere, sinkOut)
	router.Subscribe(inRoom, domain.RoomID(1))
	router.Subscribe(elsewhere, domain.RoomID(2))

	router.Publish(ctx, domain.RoomID(1), event.AIBusy{Message: "busy"})

	req.Len(sinkIn.received(), 1)
	req.Empty(sinkOut.received())
}

func TestRouter_PublishExcept_Skips_Origin(t *testing.T) {
	req := require.New(t)
	router := NewRouter(logs.GetLoggerFromLevel(slog.LevelDebug))
	ctx := context.Background()
	roomID := domain.RoomID(1)

	origin := domain.ConnectionID(uuid.NewString())
	other := domain.ConnectionID(uuid.NewString())
	sinkOrigin, sinkOther := &recordingSink{}, &recordingSink{}

	router.Attach(origin, sinkOrigin)
	router.Attach(other, sinkOther)
	router.Subscribe(origin, roomID)
	router.Subscribe(other, roomID)

	router.PublishExcept(ctx, roomID, event.UserJoined{Username: "alice"}, origin)

	req.Empty(sinkOrigin.received())
	req.Len(sinkOther.received(), 1)
}

func TestRouter_PublishGlobal_Ignores_Rooms(t *testing.T) {
	req := require.New(t)
	router := NewRouter(logs.GetLoggerFromLevel(slog.LevelDebug))
	ctx := context.Background()

	subscribed := domain.ConnectionID(uuid.NewString())
	roomless := domain.ConnectionID(uuid.NewString())
	sinkSub, sinkFree := &recordingSink{}, &recordingSink{}

	router.Attach(subscribed, sinkSub)
	router.Attach(roomless, sinkFree)
	router.Subscribe(subscribed, domain.RoomID(1))

	router.PublishGlobal(ctx, event.UserLeft{Username: "bob"})

	req.Len(sinkSub.received(), 1)
	req.Len(sinkFree.received(), 1)
}

func TestRouter_Dead_Sink_Never_Blocks_Others(t *testing.T) {
	req := require.New(t)
	router := NewRouter(logs.GetLoggerFromLevel(slog.LevelDebug))
	ctx := context.Background()
	roomID := domain.RoomID(1)

	dead := domain.ConnectionID(uuid.NewString())
	alive := domain.ConnectionID(uuid.NewString())
	sinkDead := &recordingSink{fail: true}
	sinkAlive := &recordingSink{}

	router.Attach(dead, sinkDead)
	router.Attach(alive, sinkAlive)
	router.Subscribe(dead, roomID)
	router.Subscribe(alive, roomID)

	router.Publish(ctx, roomID, event.AIBusy{Message: "busy"})

	req.Len(sinkAlive.received(), 1)
}

func TestRouter_Detach_Removes_All_Subscriptions(t *testing.T) {
	req := require.New(t)
	router := NewRouter(logs.GetLoggerFromLevel(slog.LevelDebug))
	ctx := context.Background()

	conn := domain.ConnectionID(uuid.NewString())
	sink := &recordingSink{}
	router.Attach(conn, sink)
	router.Subscribe(conn, domain.RoomID(1))
	router.Subscribe(conn, domain.RoomID(2))

	router.Detach(conn)

	router.Publish(ctx, domain.RoomID(1), event.AIBusy{Message: "busy"})
	router.Publish(ctx, domain.RoomID(2), event.AIBusy{Message: "busy"})
	router.PublishGlobal(ctx, event.UserLeft{Username: "bob"})
	req.Empty(sink.received())
	req.Empty(router.Subscribers(domain.RoomID(1)))
}

func TestRouter_Per_Room_Order_Is_Preserved(t *testing.T) {
	req := require.New(t)
	router := NewRouter(logs.GetLoggerFromLevel(slog.LevelDebug))
	ctx := context.Background()
	roomID := domain.RoomID(1)

	conn := domain.ConnectionID(uuid.NewString())
	sink := &recordingSink{}
	router.Attach(conn, sink)
	router.Subscribe(conn, roomID)

	// When a start, chunks and an end are published in sequence
	router.Publish(ctx, roomID, event.AIResponseStart{ID: "ai_1"})
	router.Publish(ctx, roomID, event.AIResponseChunk{ID: "ai_1", Chunk: "hel"})
	router.Publish(ctx, roomID, event.AIResponseChunk{ID: "ai_1", Chunk: "lo"})
	router.Publish(ctx, roomID, event.AIResponseEnd{ID: "ai_1"})

	// Then the sink observes them in exactly that sequence
	got := sink.received()
	req.Len(got, 4)
	req.Equal(event.AIResponseStartType, got[0].EventType())
	req.Equal(event.AIResponseChunkType, got[1].EventType())
	req.Equal("hel", got[1].(event.AIResponseChunk).Chunk)
	req.Equal("lo", got[2].(event.AIResponseChunk).Chunk)
	req.Equal(event.AIResponseEndType, got[3].EventType())
}
