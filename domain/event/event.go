// Package event defines the tagged events the engine publishes to
// connected clients. One Go type per wire event, no loosely typed maps.
package event

import (
	"time"

	"groupchat/domain"
)

type Type string

const (
	UserJoinedType      Type = "user_joined"
	UserLeftType        Type = "user_left"
	ChatMessageType     Type = "chat_message"
	ChatHistoryType     Type = "chat_history"
	RoomSnapshotType    Type = "room_snapshot"
	RoomCreatedType     Type = "room_created"
	RoomDeletedType     Type = "room_deleted"
	RoomListType        Type = "room_list"
	AIBusyType          Type = "ai_busy"
	AIResponseStartType Type = "ai_response_start"
	AIResponseChunkType Type = "ai_response_chunk"
	AIResponseEndType   Type = "ai_response_end"
	AIErrorType         Type = "ai_error"
	AuthType            Type = "auth"
	ErrorType           Type = "error"
)

// DomainEvent is anything the router can deliver to a sink. Scoping
// (room, global, single connection) is decided by the publisher, not
// encoded in the event itself.
type DomainEvent interface {
	EventType() Type
}

// UserJoined and UserLeft are global notices, independent of rooms.
type UserJoined struct {
	Username  string    `json:"username"`
	UserCount int       `json:"user_count"`
	At        time.Time `json:"timestamp"`
}

func (UserJoined) EventType() Type { return UserJoinedType }

type UserLeft struct {
	Username  string    `json:"username"`
	UserCount int       `json:"user_count"`
	At        time.Time `json:"timestamp"`
}

func (UserLeft) EventType() Type { return UserLeftType }

// ChatMessage mirrors the persisted message record.
type ChatMessage struct {
	ID          uint64    `json:"id"`
	RoomID      uint64    `json:"room_id"`
	Username    string    `json:"username"`
	Content     string    `json:"content"`
	Language    string    `json:"language,omitempty"`
	IsAI        bool      `json:"is_ai"`
	TriggeredBy string    `json:"triggered_by,omitempty"`
	At          time.Time `json:"timestamp"`
}

func (ChatMessage) EventType() Type { return ChatMessageType }

func FromMessage(m domain.Message) ChatMessage {
	return ChatMessage{
		ID:          uint64(m.ID),
		RoomID:      uint64(m.RoomID),
		Username:    m.AuthorName,
		Content:     m.Content,
		Language:    m.Language,
		IsAI:        m.IsAI,
		TriggeredBy: m.TriggeredBy,
		At:          m.CreatedAt,
	}
}

// ChatHistory is the explicit snapshot sent to one connection at
// join/switch time; it is never broadcast.
type ChatHistory struct {
	RoomID   uint64        `json:"room_id"`
	Messages []ChatMessage `json:"messages"`
}

func (ChatHistory) EventType() Type { return ChatHistoryType }

type RoomPayload struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   uint64    `json:"created_by,omitempty"`
	IsPrivate   bool      `json:"is_private"`
	CreatedAt   time.Time `json:"created_at"`
}

func FromRoom(r domain.Room) RoomPayload {
	return RoomPayload{
		ID:          uint64(r.ID),
		Name:        r.Name,
		Description: r.Description,
		CreatedBy:   uint64(r.CreatedBy),
		IsPrivate:   r.IsPrivate,
		CreatedAt:   r.CreatedAt,
	}
}

type RoomSnapshot struct {
	Room        RoomPayload `json:"room"`
	MemberCount int         `json:"member_count"`
}

func (RoomSnapshot) EventType() Type { return RoomSnapshotType }

type RoomCreated struct {
	Room RoomPayload `json:"room"`
}

func (RoomCreated) EventType() Type { return RoomCreatedType }

type RoomDeleted struct {
	RoomID uint64 `json:"room_id"`
	Name   string `json:"name"`
}

func (RoomDeleted) EventType() Type { return RoomDeletedType }

type RoomList struct {
	Rooms []RoomPayload `json:"rooms"`
}

func (RoomList) EventType() Type { return RoomListType }

// AIBusy is the global notice emitted when a request is requeued
// because another generation is active.
type AIBusy struct {
	Message string `json:"message"`
}

func (AIBusy) EventType() Type { return AIBusyType }

// AIResponseStart precedes the first chunk so clients can render a
// placeholder immediately. ID correlates the whole stream.
type AIResponseStart struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	TriggeredBy string    `json:"triggered_by"`
	At          time.Time `json:"timestamp"`
}

func (AIResponseStart) EventType() Type { return AIResponseStartType }

type AIResponseChunk struct {
	ID    string `json:"id"`
	Chunk string `json:"chunk"`
}

func (AIResponseChunk) EventType() Type { return AIResponseChunkType }

type AIResponseEnd struct {
	ID string `json:"id"`
}

func (AIResponseEnd) EventType() Type { return AIResponseEndType }

type AIError struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

func (AIError) EventType() Type { return AIErrorType }

// Auth is the reply to register/login envelopes, sent only to the
// requesting connection.
type Auth struct {
	Token    string `json:"token"`
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
}

func (Auth) EventType() Type { return AuthType }

// ErrorNotice is a generic, connection-scoped failure notice.
type ErrorNotice struct {
	Message string `json:"message"`
}

func (ErrorNotice) EventType() Type { return ErrorType }
