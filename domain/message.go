// Messages are immutable chat events: strictly append-only, ordered by
// their store-assigned id within a room, never mutated after creation.
package domain

import "time"

type MessageID uint64

// AIAuthorName is the display name attached to AI-authored messages,
// which carry no user id.
const AIAuthorName = "AI Assistant"

type Message struct {
	ID      MessageID
	RoomID  RoomID
	// AuthorID is zero for AI-authored messages.
	AuthorID   UserID
	AuthorName string
	Content    string
	// Language is the detected ISO 639-1 code of the content, empty
	// when detection was inconclusive.
	Language string
	IsAI     bool
	// TriggeredBy is set only on AI messages and identifies the human
	// whose text caused the generation.
	TriggeredBy string
	CreatedAt   time.Time
}
