package repositories

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"groupchat/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUserRepository_CreateUser_And_Lookup(t *testing.T) {
	req := require.New(t)
	repository, err := NewUserRepository(openTestDB(t))
	req.NoError(err)
	defer repository.Close()

	created, err := repository.CreateUser("alice", "hashed-secret")
	req.NoError(err)
	req.NotZero(created.ID)
	req.Equal("alice", created.Username)

	byName, err := repository.GetUserByName("alice")
	req.NoError(err)
	req.Equal(created.ID, byName.ID)
	req.Equal("hashed-secret", byName.PasswordHash)

	byID, err := repository.GetUser(created.ID)
	req.NoError(err)
	req.Equal(created.Username, byID.Username)
}

func TestUserRepository_CreateUser_Duplicate_Name(t *testing.T) {
	req := require.New(t)
	repository, err := NewUserRepository(openTestDB(t))
	req.NoError(err)
	defer repository.Close()

	_, err = repository.CreateUser("alice", "hash1")
	req.NoError(err)

	_, err = repository.CreateUser("alice", "hash2")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_GetOrCreateUser_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repository, err := NewUserRepository(openTestDB(t))
	req.NoError(err)
	defer repository.Close()

	first, err := repository.GetOrCreateUser("bob")
	req.NoError(err)

	second, err := repository.GetOrCreateUser("bob")
	req.NoError(err)
	req.Equal(first.ID, second.ID)
}

func TestUserRepository_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository, err := NewUserRepository(openTestDB(t))
	req.NoError(err)
	defer repository.Close()

	_, err = repository.GetUserByName("ghost")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repository.GetUser(42)
	req.ErrorIs(err, errors.ErrUserNotFound)
}
