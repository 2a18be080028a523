package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"groupchat/ai"
	"groupchat/domain"
	"groupchat/domain/event"
	"groupchat/errors"
	"groupchat/repositories"
)

// fakeProvider streams canned chunks, optionally waiting on a gate so
// tests can hold a generation in flight.
type fakeProvider struct {
	mu     sync.Mutex
	gate   chan struct{}
	chunks []string
	err    error
	calls  int
}

func (p *fakeProvider) StreamCompletion(ctx context.Context, _ []ai.PromptTurn, emit func(string) error) error {
	p.mu.Lock()
	p.calls++
	gate := p.gate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.err != nil {
		return p.err
	}
	for _, chunk := range p.chunks {
		if err := emit(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type coordinatorHarness struct {
	coordinator *Coordinator
	sink        *recordingSink
	messages    repositories.IMessageRepository
	cancel      context.CancelFunc
}

func newCoordinatorHarness(t *testing.T, provider ai.ICompletionProvider, queueSize int) *coordinatorHarness {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	messages, err := repositories.NewMessageRepository(db, log)
	req.NoError(err)
	t.Cleanup(func() { _ = messages.Close() })

	router := NewRouter(log)
	sink := &recordingSink{}
	conn := domain.ConnectionID("observer")
	router.Attach(conn, sink)
	router.Subscribe(conn, domain.RoomID(1))

	coordinator := NewCoordinator(log, router, messages, provider,
		queueSize, 10*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = coordinator.Run(ctx) }()
	for _, w := range coordinator.Workers(2) {
		go func() { _ = w.Run(ctx) }()
	}
	t.Cleanup(cancel)

	return &coordinatorHarness{coordinator: coordinator, sink: sink, messages: messages, cancel: cancel}
}

func (h *coordinatorHarness) eventsOfType(t event.Type) []event.DomainEvent {
	var out []event.DomainEvent
	for _, e := range h.sink.received() {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

func TestCoordinator_Streams_Start_Chunks_End_In_Order(t *testing.T) {
	req := require.New(t)
	provider := &fakeProvider{chunks: []string{"Hello", " there"}}
	h := newCoordinatorHarness(t, provider, 8)

	request := domain.AIRequest{
		Query:      "say hi",
		Requester:  domain.Identity{UserID: 1, Username: "alice"},
		RoomID:     domain.RoomID(1),
		EnqueuedAt: time.Now().UTC(),
	}
	req.NoError(h.coordinator.Enqueue(request))

	req.Eventually(func() bool {
		return len(h.eventsOfType(event.AIResponseEndType)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Then start, every chunk and end share one correlation id, in order
	got := h.sink.received()
	corrID := request.CorrelationID()
	var sequence []event.Type
	for _, e := range got {
		sequence = append(sequence, e.EventType())
	}
	req.Equal([]event.Type{
		event.AIResponseStartType,
		event.AIResponseChunkType,
		event.AIResponseChunkType,
		event.AIResponseEndType,
	}, sequence)
	req.Equal(corrID, got[0].(event.AIResponseStart).ID)
	req.Equal("alice", got[0].(event.AIResponseStart).TriggeredBy)
	req.Equal("Hello", got[1].(event.AIResponseChunk).Chunk)
	req.Equal(corrID, got[3].(event.AIResponseEnd).ID)

	// And the full response is persisted as an assistant message
	req.Eventually(func() bool {
		stored, err := h.messages.Recent(domain.RoomID(1), 10)
		return err == nil && len(stored) == 1
	}, 2*time.Second, 10*time.Millisecond)
	stored, err := h.messages.Recent(domain.RoomID(1), 10)
	req.NoError(err)
	req.True(stored[0].IsAI)
	req.Equal(domain.AIAuthorName, stored[0].AuthorName)
	req.Equal("alice", stored[0].TriggeredBy)
	req.Equal("Hello there", stored[0].Content)
}

func TestCoordinator_Single_Flight_Busy_Notice_And_Requeue(t *testing.T) {
	req := require.New(t)
	gate := make(chan struct{})
	provider := &fakeProvider{gate: gate, chunks: []string{"done"}}
	h := newCoordinatorHarness(t, provider, 8)

	first := domain.AIRequest{
		Query:      "first",
		Requester:  domain.Identity{UserID: 1, Username: "alice"},
		RoomID:     domain.RoomID(1),
		EnqueuedAt: time.Now().UTC(),
	}
	second := first
	second.Requester = domain.Identity{UserID: 2, Username: "bob"}
	second.EnqueuedAt = first.EnqueuedAt.Add(time.Millisecond)

	// Given the first generation is held in flight
	req.NoError(h.coordinator.Enqueue(first))
	req.Eventually(func() bool { return provider.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	// When a second request arrives
	req.NoError(h.coordinator.Enqueue(second))

	// Then a busy notice goes out and the request waits at the back
	req.Eventually(func() bool {
		return len(h.eventsOfType(event.AIBusyType)) >= 1
	}, 2*time.Second, 5*time.Millisecond)
	busy := h.eventsOfType(event.AIBusyType)[0].(event.AIBusy)
	req.Contains(busy.Message, "currently processing")
	req.Empty(h.eventsOfType(event.AIResponseEndType))

	// When the active generation finishes, both complete
	close(gate)
	req.Eventually(func() bool {
		return len(h.eventsOfType(event.AIResponseEndType)) == 2
	}, 5*time.Second, 10*time.Millisecond)
	req.Equal(2, provider.callCount())
}

func TestCoordinator_Provider_Error_Publishes_AIError_And_Persists_Nothing(t *testing.T) {
	req := require.New(t)
	provider := &fakeProvider{err: fmt.Errorf("upstream unavailable")}
	h := newCoordinatorHarness(t, provider, 8)

	request := domain.AIRequest{
		Query:      "boom",
		Requester:  domain.Identity{UserID: 1, Username: "alice"},
		RoomID:     domain.RoomID(1),
		EnqueuedAt: time.Now().UTC(),
	}
	req.NoError(h.coordinator.Enqueue(request))

	req.Eventually(func() bool {
		return len(h.eventsOfType(event.AIErrorType)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	failure := h.eventsOfType(event.AIErrorType)[0].(event.AIError)
	req.Equal(request.CorrelationID(), failure.ID)
	req.Contains(failure.Message, "AI response failed")
	req.Empty(h.eventsOfType(event.AIResponseEndType))

	stored, err := h.messages.Recent(domain.RoomID(1), 10)
	req.NoError(err)
	req.Empty(stored)
}

func TestCoordinator_Enqueue_Full_Queue_Rejects_Without_Blocking(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// A coordinator that is never run: the queue only fills up
	coordinator := NewCoordinator(log, NewRouter(log), nil, &fakeProvider{},
		1, 10*time.Millisecond, time.Second)

	request := domain.AIRequest{RoomID: domain.RoomID(1), EnqueuedAt: time.Now().UTC()}
	req.NoError(coordinator.Enqueue(request))
	req.ErrorIs(coordinator.Enqueue(request), errors.ErrQueueFull)
	req.Equal(1, coordinator.QueueDepth())
}
