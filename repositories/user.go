//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"groupchat/domain"
	"groupchat/errors"
)

type IUserRepository interface {
	CreateUser(username, passwordHash string) (domain.User, error)
	GetOrCreateUser(username string) (domain.User, error)
	GetUserByName(username string) (domain.User, error)
	GetUser(id domain.UserID) (domain.User, error)
}

// UserRepository persists accounts in BadgerDB. Two keys per user:
// "user:id:{id}" holds the record, "user:name:{username}" is the
// uniqueness index checked inside the same transaction as the write.
type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewUserRepository(db *badger.DB) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte("seq:user"), 64)
	if err != nil {
		return nil, fmt.Errorf("user sequence: %w", err)
	}
	return &UserRepository{db: db, seq: seq}, nil
}

// Close releases the id sequence lease.
func (u *UserRepository) Close() error {
	return u.seq.Release()
}

type diskUser struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func userIDKey(id domain.UserID) []byte {
	return []byte(fmt.Sprintf("user:id:%019d", id))
}

func userNameKey(username string) []byte {
	return []byte("user:name:" + username)
}

// CreateUser persists a new account. The name index lookup and both
// writes share one transaction so two racing creations cannot both win.
func (u *UserRepository) CreateUser(username, passwordHash string) (domain.User, error) {
	id, err := nextID(u.seq)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:           domain.UserID(id),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = update(u.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(userNameKey(username)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(userIDKey(user.ID), data); err != nil {
			return err
		}
		return txn.Set(userNameKey(username), []byte(strconv.FormatUint(id, 10)))
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// GetOrCreateUser backs display-name logins: unauthenticated joiners
// get a passwordless account on first sight of the name.
func (u *UserRepository) GetOrCreateUser(username string) (domain.User, error) {
	user, err := u.GetUserByName(username)
	if err == nil {
		return user, nil
	}
	if err != errors.ErrUserNotFound {
		return domain.User{}, err
	}
	user, err = u.CreateUser(username, "")
	if err == errors.ErrUserAlreadyExists {
		// Lost the race to another connection; the record exists now.
		return u.GetUserByName(username)
	}
	return user, err
}

func (u *UserRepository) GetUserByName(username string) (domain.User, error) {
	var id uint64
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userNameKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id, err = strconv.ParseUint(string(val), 10, 64)
			return err
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return u.GetUser(domain.UserID(id))
}

func (u *UserRepository) GetUser(id domain.UserID) (domain.User, error) {
	var disk diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &disk)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return toUser(disk), nil
}

func fromUser(user domain.User) diskUser {
	return diskUser{
		ID:           uint64(user.ID),
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
}

func toUser(disk diskUser) domain.User {
	return domain.User{
		ID:           domain.UserID(disk.ID),
		Username:     disk.Username,
		PasswordHash: disk.PasswordHash,
		CreatedAt:    disk.CreatedAt,
	}
}
