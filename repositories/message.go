//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"groupchat/domain"
)

type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	Recent(roomID domain.RoomID, limit int) ([]domain.Message, error)
}

// MessageRepository persists messages in BadgerDB.
// The key is formatted as "msg:{room_id}:{id}" with both parts zero
// padded to 19 digits, so a prefix scan over one room returns messages
// in persistence order (ids are store-assigned and monotonic).
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:msg"), 128)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, log: log, seq: seq}, nil
}

func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

type diskMessage struct {
	ID          uint64    `json:"id"`
	RoomID      uint64    `json:"room_id"`
	AuthorID    uint64    `json:"user_id,omitempty"`
	AuthorName  string    `json:"username"`
	Content     string    `json:"content"`
	Language    string    `json:"language,omitempty"`
	IsAI        bool      `json:"is_ai"`
	TriggeredBy string    `json:"triggered_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func messageKey(roomID domain.RoomID, id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("msg:%019d:%019d", roomID, id))
}

// Append assigns the store id and persists the message. Messages are
// append-only; there is no update or delete path outside the room
// cascade.
func (m *MessageRepository) Append(message domain.Message) (domain.Message, error) {
	id, err := nextID(m.seq)
	if err != nil {
		return domain.Message{}, err
	}
	message.ID = domain.MessageID(id)

	data, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal failed: %w", err)
	}
	err = update(m.db, func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.RoomID, message.ID), data)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// Recent returns the last `limit` messages of a room, oldest first.
// It walks the room prefix backwards from the highest possible id and
// reverses the collected window, the cheap way to page a padded key
// space.
func (m *MessageRepository) Recent(roomID domain.RoomID, limit int) ([]domain.Message, error) {
	var collected []diskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%019d:", roomID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(collected) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			var disk diskMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &disk)
			}); err != nil {
				return err
			}
			collected = append(collected, disk)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse scan yields newest first; callers want oldest first.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return lo.Map(collected, func(disk diskMessage, _ int) domain.Message {
		return toMessage(disk)
	}), nil
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:          uint64(message.ID),
		RoomID:      uint64(message.RoomID),
		AuthorID:    uint64(message.AuthorID),
		AuthorName:  message.AuthorName,
		Content:     message.Content,
		Language:    message.Language,
		IsAI:        message.IsAI,
		TriggeredBy: message.TriggeredBy,
		CreatedAt:   message.CreatedAt,
	}
}

func toMessage(disk diskMessage) domain.Message {
	return domain.Message{
		ID:          domain.MessageID(disk.ID),
		RoomID:      domain.RoomID(disk.RoomID),
		AuthorID:    domain.UserID(disk.AuthorID),
		AuthorName:  disk.AuthorName,
		Content:     disk.Content,
		Language:    disk.Language,
		IsAI:        disk.IsAI,
		TriggeredBy: disk.TriggeredBy,
		CreatedAt:   disk.CreatedAt,
	}
}
