package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"groupchat/ai"
	"groupchat/contract"
	"groupchat/domain"
	"groupchat/domain/event"
	"groupchat/errors"
	"groupchat/repositories"
)

// Coordinator serializes AI generations: a single FIFO queue and at
// most one in-flight generation server-wide, on the assumption that the
// completion provider is a scarce, rate-limited resource.
//
// The control loop never blocks on a generation. The blocking provider
// call runs on a small pool of generation workers (Workers), while a
// one-slot semaphore enforces single-flight. When the slot is occupied
// the dequeued request goes back to the tail of the queue, a global
// busy notice is broadcast, and the loop backs off for a fixed interval
// before rechecking, which guarantees forward progress as long as the
// active generation eventually completes.
type Coordinator struct {
	log      *slog.Logger
	router   contract.IRouter
	messages repositories.IMessageRepository
	provider ai.ICompletionProvider

	queue   chan domain.AIRequest
	jobs    chan domain.AIRequest
	active  chan struct{}
	backoff time.Duration
	timeout time.Duration
}

func NewCoordinator(
	log *slog.Logger,
	router contract.IRouter,
	messages repositories.IMessageRepository,
	provider ai.ICompletionProvider,
	queueSize int,
	backoff, timeout time.Duration,
) *Coordinator {
	return &Coordinator{
		log:      log,
		router:   router,
		messages: messages,
		provider: provider,
		queue:    make(chan domain.AIRequest, queueSize),
		jobs:     make(chan domain.AIRequest),
		active:   make(chan struct{}, 1),
		backoff:  backoff,
		timeout:  timeout,
	}
}

// Enqueue admits a request at the back of the queue without blocking
// the caller. A full queue is reported to the caller instead of
// stalling chat traffic.
func (c *Coordinator) Enqueue(req domain.AIRequest) error {
	select {
	case c.queue <- req:
		return nil
	default:
		return errors.ErrQueueFull
	}
}

// Busy reports whether a generation is in flight right now.
func (c *Coordinator) Busy() bool {
	return len(c.active) > 0
}

// QueueDepth counts requests waiting for admission.
func (c *Coordinator) QueueDepth() int {
	return len(c.queue)
}

// Run is the coordinator's control loop. It only does admission
// bookkeeping, so it stays responsive while a generation streams.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-c.queue:
			if !ok {
				return nil
			}
			c.admit(ctx, req)
		}
	}
}

func (c *Coordinator) admit(ctx context.Context, req domain.AIRequest) {
	select {
	case c.active <- struct{}{}:
		select {
		case c.jobs <- req:
		case <-ctx.Done():
			<-c.active
		}
	default:
		// Another generation is active: notify, requeue at the back
		// and back off before the next admission attempt.
		c.router.PublishGlobal(ctx, event.AIBusy{
			Message: "AI is currently processing another request. Please wait...",
		})
		select {
		case c.queue <- req:
		default:
			c.log.Warn("AI queue full while requeueing busy request",
				"room_id", uint64(req.RoomID),
				"requester", req.Requester.Username)
		}
		select {
		case <-ctx.Done():
		case <-time.After(c.backoff):
		}
	}
}

// Workers returns the bounded pool executing the blocking provider
// calls. Size must be at least two so one stalled generation cannot
// starve the handoff channel.
func (c *Coordinator) Workers(size int) []contract.Worker {
	if size < 2 {
		size = 2
	}
	pool := make([]contract.Worker, 0, size)
	for i := 0; i < size; i++ {
		pool = append(pool, &generationWorker{coordinator: c})
	}
	return pool
}

var _ contract.Worker = (*generationWorker)(nil)

type generationWorker struct {
	coordinator *Coordinator
}

func (w *generationWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-w.coordinator.jobs:
			if !ok {
				return nil
			}
			w.coordinator.handle(ctx, req)
		}
	}
}

// handle runs one generation end to end. The semaphore slot is always
// released and a panic in one request must never stop the pool.
func (c *Coordinator) handle(ctx context.Context, req domain.AIRequest) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Generation panicked", "panic", r,
				"room_id", uint64(req.RoomID))
			c.router.Publish(ctx, req.RoomID, event.AIError{
				ID:      req.CorrelationID(),
				Message: "AI processing failed: internal error",
			})
		}
		<-c.active
	}()
	c.process(ctx, req)
}

func (c *Coordinator) process(ctx context.Context, req domain.AIRequest) {
	corrID := req.CorrelationID()
	c.log.Info("Processing AI request",
		"requester", req.Requester.Username,
		"room_id", uint64(req.RoomID),
		"correlation_id", corrID)

	history, err := c.messages.Recent(req.RoomID, ai.ContextMessages)
	if err != nil {
		c.fail(ctx, req.RoomID, corrID, err)
		return
	}
	turns := ai.BuildPrompt(history, req.Query)

	// The placeholder event precedes the first token on purpose:
	// clients render immediately, before the provider produces output.
	c.router.Publish(ctx, req.RoomID, event.AIResponseStart{
		ID:          corrID,
		Username:    domain.AIAuthorName,
		TriggeredBy: req.Requester.Username,
		At:          req.EnqueuedAt,
	})

	genCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var full strings.Builder
	err = c.provider.StreamCompletion(genCtx, turns, func(chunk string) error {
		full.WriteString(chunk)
		c.router.Publish(ctx, req.RoomID, event.AIResponseChunk{ID: corrID, Chunk: chunk})
		return nil
	})
	if err != nil {
		// Partial output is dropped; a fresh mention retries.
		c.fail(ctx, req.RoomID, corrID, err)
		return
	}

	c.router.Publish(ctx, req.RoomID, event.AIResponseEnd{ID: corrID})

	persisted, err := c.messages.Append(domain.Message{
		RoomID:      req.RoomID,
		AuthorName:  domain.AIAuthorName,
		Content:     full.String(),
		IsAI:        true,
		TriggeredBy: req.Requester.Username,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		c.log.Error("Failed to persist AI response", "error", err,
			"correlation_id", corrID)
		return
	}
	c.log.Info("Completed AI response",
		"correlation_id", corrID,
		"message_id", uint64(persisted.ID),
		"chars", full.Len())
}

func (c *Coordinator) fail(ctx context.Context, roomID domain.RoomID, corrID string, err error) {
	c.log.Error("AI request failed", "error", err, "correlation_id", corrID)
	c.router.Publish(ctx, roomID, event.AIError{
		ID:      corrID,
		Message: fmt.Sprintf("AI response failed: %v", err),
	})
}
