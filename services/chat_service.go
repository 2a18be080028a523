package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"

	"groupchat/contract"
	"groupchat/domain"
	"groupchat/domain/event"
	"groupchat/errors"
	"groupchat/moderation"
	"groupchat/observability"
	"groupchat/repositories"
)

type IChatService interface {
	PostMessage(ctx context.Context, conn domain.ConnectionID, content string) error
	History(roomID domain.RoomID, limit int) ([]domain.Message, error)
}

// ChatService is the send-chat-text path: censor, persist, broadcast
// to the author's current room, and hand AI mentions to the
// coordinator without blocking.
type ChatService struct {
	log         *slog.Logger
	presence    contract.IPresence
	router      contract.IRouter
	coordinator contract.ICoordinator
	messages    repositories.IMessageRepository
	moderator   moderation.Moderator
	monitor     *observability.Monitor
}

func NewChatService(
	log *slog.Logger,
	presence contract.IPresence,
	router contract.IRouter,
	coordinator contract.ICoordinator,
	messages repositories.IMessageRepository,
	moderator moderation.Moderator,
	monitor *observability.Monitor,
) *ChatService {
	return &ChatService{
		log:         log,
		presence:    presence,
		router:      router,
		coordinator: coordinator,
		messages:    messages,
		moderator:   moderator,
		monitor:     monitor,
	}
}

func (s *ChatService) PostMessage(ctx context.Context, conn domain.ConnectionID, content string) error {
	identity, ok := s.presence.IdentityOf(conn)
	if !ok {
		return errors.ErrNotRegistered
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.ErrEmptyMessage
	}
	roomID, ok := s.presence.CurrentRoomOf(conn)
	if !ok {
		return errors.ErrNotRegistered
	}

	censored := s.moderator.Censor(content)
	info := whatlanggo.Detect(censored)

	message, err := s.messages.Append(domain.Message{
		RoomID:     roomID,
		AuthorID:   identity.UserID,
		AuthorName: identity.Username,
		Content:    censored,
		Language:   info.Lang.Iso6391(),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	s.monitor.CountMessage()

	s.router.Publish(ctx, roomID, event.FromMessage(message))

	if !domain.DetectMention(censored) {
		return nil
	}
	req := domain.AIRequest{
		Query:      domain.ExtractQuery(censored),
		Requester:  identity,
		RoomID:     roomID,
		EnqueuedAt: message.CreatedAt,
	}
	if err := s.coordinator.Enqueue(req); err != nil {
		// The message itself went through; only the generation is lost.
		s.log.Warn("Dropping AI request", "error", err,
			"requester", identity.Username, "room_id", uint64(roomID))
		s.router.Send(ctx, conn, event.AIError{
			Message: "AI request queue is full, try again later",
		})
	}
	return nil
}

func (s *ChatService) History(roomID domain.RoomID, limit int) ([]domain.Message, error) {
	return s.messages.Recent(roomID, limit)
}
