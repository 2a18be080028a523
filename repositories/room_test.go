package repositories

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"groupchat/domain"
	"groupchat/errors"
)

func newRoomRepository(t *testing.T) *RoomRepository {
	t.Helper()
	repository, err := NewRoomRepository(openTestDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func TestRoomRepository_EnsureDefaultRoom_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	first, err := repository.EnsureDefaultRoom()
	req.NoError(err)
	req.Equal(domain.DefaultRoomName, first.Name)
	req.Equal(first.ID, repository.DefaultRoomID())

	second, err := repository.EnsureDefaultRoom()
	req.NoError(err)
	req.Equal(first.ID, second.ID)
}

func TestRoomRepository_CreateRoom_Creator_Becomes_Admin(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)
	creator := domain.UserID(7)

	room, err := repository.CreateRoom("games", "board games", creator, false)
	req.NoError(err)
	req.NotZero(room.ID)

	member, err := repository.IsMember(creator, room.ID)
	req.NoError(err)
	req.True(member)

	count, err := repository.MemberCount(room.ID)
	req.NoError(err)
	req.Equal(1, count)
}

func TestRoomRepository_CreateRoom_Duplicate_Name(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	_, err := repository.CreateRoom("games", "", 1, false)
	req.NoError(err)

	_, err = repository.CreateRoom("games", "", 2, false)
	req.ErrorIs(err, errors.ErrDuplicateRoomName)
}

func TestRoomRepository_CreateRoom_Racing_Same_Name_One_Winner(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	const racers = 8
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			_, err := repository.CreateRoom("contested", "", domain.UserID(userID+1), false)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			req.ErrorIs(err, errors.ErrDuplicateRoomName)
		}
	}
	req.Equal(1, winners)
}

func TestRoomRepository_JoinRoom(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	room, err := repository.CreateRoom("games", "", 1, false)
	req.NoError(err)

	req.NoError(repository.JoinRoom(2, room.ID, domain.RoleMember))
	req.ErrorIs(repository.JoinRoom(2, room.ID, domain.RoleMember), errors.ErrAlreadyMember)
	req.ErrorIs(repository.JoinRoom(2, domain.RoomID(999), domain.RoleMember), errors.ErrRoomNotFound)
}

func TestRoomRepository_LeaveRoom_Protects_Default(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	general, err := repository.EnsureDefaultRoom()
	req.NoError(err)
	req.NoError(repository.JoinRoom(1, general.ID, domain.RoleMember))

	req.ErrorIs(repository.LeaveRoom(1, general.ID), errors.ErrCannotLeaveDefaultRoom)

	room, err := repository.CreateRoom("games", "", 1, false)
	req.NoError(err)
	req.NoError(repository.LeaveRoom(1, room.ID))

	member, err := repository.IsMember(1, room.ID)
	req.NoError(err)
	req.False(member)

	// Leaving a room you are not in is a no-op
	req.NoError(repository.LeaveRoom(1, room.ID))
}

func TestRoomRepository_DeleteRoom_Creator_Only(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	room, err := repository.CreateRoom("games", "", 1, false)
	req.NoError(err)

	req.ErrorIs(repository.DeleteRoom(room.ID, 2), errors.ErrNotCreator)
	req.NoError(repository.DeleteRoom(room.ID, 1))
	req.ErrorIs(repository.DeleteRoom(room.ID, 1), errors.ErrRoomNotFound)
}

func TestRoomRepository_DeleteRoom_Default_Room_Always_Refused(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	general, err := repository.EnsureDefaultRoom()
	req.NoError(err)

	// Even a would-be creator cannot delete it
	req.ErrorIs(repository.DeleteRoom(general.ID, 0), errors.ErrCannotDeleteDefaultRoom)
	req.ErrorIs(repository.DeleteRoom(general.ID, 1), errors.ErrCannotDeleteDefaultRoom)
}

func TestRoomRepository_DeleteRoom_Cascades_Memberships_And_Messages(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository, err := NewRoomRepository(db)
	req.NoError(err)
	defer repository.Close()

	messages, err := NewMessageRepository(db, slog.Default())
	req.NoError(err)
	defer messages.Close()

	room, err := repository.CreateRoom("doomed", "", 1, false)
	req.NoError(err)
	req.NoError(repository.JoinRoom(2, room.ID, domain.RoleMember))
	for i := 0; i < 3; i++ {
		_, err = messages.Append(domain.Message{
			RoomID:     room.ID,
			AuthorName: "alice",
			Content:    fmt.Sprintf("message %d", i),
			CreatedAt:  time.Now().UTC(),
		})
		req.NoError(err)
	}

	req.NoError(repository.DeleteRoom(room.ID, 1))

	// Memberships are gone in both directions
	member, err := repository.IsMember(2, room.ID)
	req.NoError(err)
	req.False(member)
	mine, err := repository.ListRoomsForUser(2)
	req.NoError(err)
	req.Empty(mine)

	// Messages are gone
	stored, err := messages.Recent(room.ID, 10)
	req.NoError(err)
	req.Empty(stored)

	// And the name is free again
	_, err = repository.CreateRoom("doomed", "", 3, false)
	req.NoError(err)
}

func TestRoomRepository_Listing_Respects_Privacy(t *testing.T) {
	req := require.New(t)
	repository := newRoomRepository(t)

	public, err := repository.CreateRoom("public-room", "", 1, false)
	req.NoError(err)
	private, err := repository.CreateRoom("private-room", "", 1, true)
	req.NoError(err)

	listed, err := repository.ListPublicRooms()
	req.NoError(err)
	req.Len(listed, 1)
	req.Equal(public.ID, listed[0].ID)

	// The creator still sees the private room through memberships
	mine, err := repository.ListRoomsForUser(1)
	req.NoError(err)
	ids := []domain.RoomID{mine[0].ID, mine[1].ID}
	req.Contains(ids, private.ID)
	req.Contains(ids, public.ID)
}
