package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"groupchat/domain"
)

func newMessageRepository(t *testing.T) *MessageRepository {
	t.Helper()
	repository, err := NewMessageRepository(openTestDB(t), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func TestMessageRepository_Append_Assigns_Increasing_IDs(t *testing.T) {
	req := require.New(t)
	repository := newMessageRepository(t)
	roomID := domain.RoomID(1)

	var lastID domain.MessageID
	for i := 0; i < 5; i++ {
		stored, err := repository.Append(domain.Message{
			RoomID:     roomID,
			AuthorName: "alice",
			Content:    fmt.Sprintf("message %d", i),
			CreatedAt:  time.Now().UTC(),
		})
		req.NoError(err)
		req.Greater(stored.ID, lastID)
		lastID = stored.ID
	}
}

func TestMessageRepository_Recent_Returns_Oldest_First(t *testing.T) {
	req := require.New(t)
	repository := newMessageRepository(t)
	roomID := domain.RoomID(1)
	at := time.Now().UTC()

	contents := []string{"first", "second", "third"}
	for i, content := range contents {
		_, err := repository.Append(domain.Message{
			RoomID:     roomID,
			AuthorName: "alice",
			Content:    content,
			CreatedAt:  at.Add(time.Duration(i) * time.Minute),
		})
		req.NoError(err)
	}

	fetched, err := repository.Recent(roomID, 10)
	req.NoError(err)
	req.Len(fetched, len(contents))
	for i, m := range fetched {
		req.Equal(contents[i], m.Content)
	}
}

func TestMessageRepository_Recent_Honors_Limit(t *testing.T) {
	req := require.New(t)
	repository := newMessageRepository(t)
	roomID := domain.RoomID(1)

	for i := 0; i < 10; i++ {
		_, err := repository.Append(domain.Message{
			RoomID:     roomID,
			AuthorName: "alice",
			Content:    fmt.Sprintf("message %d", i),
			CreatedAt:  time.Now().UTC(),
		})
		req.NoError(err)
	}

	// The limit keeps the newest messages, still oldest-first
	fetched, err := repository.Recent(roomID, 3)
	req.NoError(err)
	req.Len(fetched, 3)
	req.Equal("message 7", fetched[0].Content)
	req.Equal("message 9", fetched[2].Content)
}

func TestMessageRepository_Recent_Isolates_Rooms(t *testing.T) {
	req := require.New(t)
	repository := newMessageRepository(t)

	_, err := repository.Append(domain.Message{RoomID: 1, AuthorName: "alice", Content: "room one", CreatedAt: time.Now().UTC()})
	req.NoError(err)
	_, err = repository.Append(domain.Message{RoomID: 2, AuthorName: "bob", Content: "room two", CreatedAt: time.Now().UTC()})
	req.NoError(err)

	fetched, err := repository.Recent(domain.RoomID(1), 10)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("room one", fetched[0].Content)

	empty, err := repository.Recent(domain.RoomID(3), 10)
	req.NoError(err)
	req.Empty(empty)
}

func TestMessageRepository_Preserves_AI_Attribution(t *testing.T) {
	req := require.New(t)
	repository := newMessageRepository(t)

	stored, err := repository.Append(domain.Message{
		RoomID:      1,
		AuthorName:  domain.AIAuthorName,
		Content:     "Here is my answer.",
		IsAI:        true,
		TriggeredBy: "alice",
		CreatedAt:   time.Now().UTC(),
	})
	req.NoError(err)

	fetched, err := repository.Recent(domain.RoomID(1), 10)
	req.NoError(err)
	req.Len(fetched, 1)
	req.True(fetched[0].IsAI)
	req.Equal("alice", fetched[0].TriggeredBy)
	req.Equal(stored.ID, fetched[0].ID)
}
