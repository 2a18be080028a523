package ws

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"groupchat/domain/event"
)

var validate = validator.New()

// Envelope is the wire frame in both directions: a type tag and a
// typed payload. Inbound payloads are decoded into one struct per type
// and validated before they reach the engine.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	inboundJoin       = "join"
	inboundChat       = "chat_message"
	inboundCreateRoom = "create_room"
	inboundJoinRoom   = "join_room"
	inboundLeaveRoom  = "leave_room"
	inboundSwitchRoom = "switch_room"
	inboundListRooms  = "list_rooms"
	inboundDeleteRoom = "delete_room"
	inboundRegister   = "register"
	inboundLogin      = "login"
)

type JoinPayload struct {
	Username string `json:"username" validate:"required,max=50"`
	Token    string `json:"token,omitempty"`
}

type ChatPayload struct {
	Message string `json:"message" validate:"required"`
}

type CreateRoomPayload struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	IsPrivate   bool   `json:"is_private"`
}

type RoomTargetPayload struct {
	RoomID uint64 `json:"room_id" validate:"required"`
}

type CredentialsPayload struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
}

// decodePayload unmarshals and validates one inbound payload.
func decodePayload(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// encodeEvent wraps an outbound event into its wire envelope.
func encodeEvent(e event.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: string(e.EventType()), Payload: payload})
}
