//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
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

type IRoomRepository interface {
	EnsureDefaultRoom() (domain.Room, error)
	DefaultRoomID() domain.RoomID
	CreateRoom(name, description string, creator domain.UserID, isPrivate bool) (domain.Room, error)
	GetRoom(id domain.RoomID) (domain.Room, error)
	JoinRoom(userID domain.UserID, roomID domain.RoomID, role domain.Role) error
	LeaveRoom(userID domain.UserID, roomID domain.RoomID) error
	DeleteRoom(roomID domain.RoomID, requester domain.UserID) error
	ListPublicRooms() ([]domain.Room, error)
	ListRoomsForUser(userID domain.UserID) ([]domain.Room, error)
	IsMember(userID domain.UserID, roomID domain.RoomID) (bool, error)
	MemberCount(roomID domain.RoomID) (int, error)
}

// RoomRepository persists rooms and memberships in BadgerDB.
//
// Key layout:
//
//	room:id:{id}              room record
//	room:name:{name}          unique name index (case-sensitive)
//	member:{room}:{user}      membership record
//	memberof:{user}:{room}    reverse index for per-user room listing
//
// Every mutation runs inside a single db.Update closure so the
// existence/uniqueness check and the write cannot interleave with a
// concurrent call: two racing CreateRoom calls with the same name see
// one winner and one ErrDuplicateRoomName.
type RoomRepository struct {
	db        *badger.DB
	seq       *badger.Sequence
	defaultID domain.RoomID
}

func NewRoomRepository(db *badger.DB) (*RoomRepository, error) {
	seq, err := db.GetSequence([]byte("seq:room"), 16)
	if err != nil {
		return nil, fmt.Errorf("room sequence: %w", err)
	}
	return &RoomRepository{db: db, seq: seq}, nil
}

func (r *RoomRepository) Close() error {
	return r.seq.Release()
}

type diskRoom struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   uint64    `json:"created_by"`
	IsPrivate   bool      `json:"is_private"`
	CreatedAt   time.Time `json:"created_at"`
}

type diskMembership struct {
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

func roomIDKey(id domain.RoomID) []byte {
	return []byte(fmt.Sprintf("room:id:%019d", id))
}

func roomNameKey(name string) []byte {
	return []byte("room:name:" + name)
}

func memberKey(roomID domain.RoomID, userID domain.UserID) []byte {
	return []byte(fmt.Sprintf("member:%019d:%019d", roomID, userID))
}

func memberOfKey(userID domain.UserID, roomID domain.RoomID) []byte {
	return []byte(fmt.Sprintf("memberof:%019d:%019d", userID, roomID))
}

// EnsureDefaultRoom creates the "General" room if it does not exist yet
// and pins its id for the default-room protections.
func (r *RoomRepository) EnsureDefaultRoom() (domain.Room, error) {
	room, err := r.getRoomByName(domain.DefaultRoomName)
	if err == nil {
		r.defaultID = room.ID
		return room, nil
	}
	if err != errors.ErrRoomNotFound {
		return domain.Room{}, err
	}
	room, err = r.CreateRoom(domain.DefaultRoomName, "Default chat room for everyone", 0, false)
	if err != nil {
		return domain.Room{}, err
	}
	r.defaultID = room.ID
	return room, nil
}

func (r *RoomRepository) DefaultRoomID() domain.RoomID {
	return r.defaultID
}

// CreateRoom writes the room, its name index and the creator's admin
// membership in one transaction. A creator of zero (the system) gets no
// membership row.
func (r *RoomRepository) CreateRoom(name, description string, creator domain.UserID, isPrivate bool) (domain.Room, error) {
	id, err := nextID(r.seq)
	if err != nil {
		return domain.Room{}, err
	}
	room := domain.Room{
		ID:          domain.RoomID(id),
		Name:        name,
		Description: description,
		CreatedBy:   creator,
		IsPrivate:   isPrivate,
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(fromRoom(room))
	if err != nil {
		return domain.Room{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = update(r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(roomNameKey(name)); err == nil {
			return errors.ErrDuplicateRoomName
		}
		if err := txn.Set(roomIDKey(room.ID), data); err != nil {
			return err
		}
		if err := txn.Set(roomNameKey(name), []byte(strconv.FormatUint(id, 10))); err != nil {
			return err
		}
		if creator == 0 {
			return nil
		}
		return setMembership(txn, room.ID, creator, domain.RoleAdmin)
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func setMembership(txn *badger.Txn, roomID domain.RoomID, userID domain.UserID, role domain.Role) error {
	data, err := json.Marshal(diskMembership{Role: string(role), JoinedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := txn.Set(memberKey(roomID, userID), data); err != nil {
		return err
	}
	return txn.Set(memberOfKey(userID, roomID), nil)
}

func (r *RoomRepository) GetRoom(id domain.RoomID) (domain.Room, error) {
	var disk diskRoom
	err := r.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, roomIDKey(id), &disk)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	return toRoom(disk), nil
}

func (r *RoomRepository) getRoomByName(name string) (domain.Room, error) {
	var id uint64
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomNameKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id, err = strconv.ParseUint(string(val), 10, 64)
			return err
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	return r.GetRoom(domain.RoomID(id))
}

// JoinRoom checks room existence and membership inside the same
// transaction as the write, keeping joins idempotent under races.
func (r *RoomRepository) JoinRoom(userID domain.UserID, roomID domain.RoomID, role domain.Role) error {
	return update(r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(roomIDKey(roomID)); err == badger.ErrKeyNotFound {
			return errors.ErrRoomNotFound
		} else if err != nil {
			return err
		}
		if _, err := txn.Get(memberKey(roomID, userID)); err == nil {
			return errors.ErrAlreadyMember
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return setMembership(txn, roomID, userID, role)
	})
}

// LeaveRoom is a no-op when the user is not a member. Leaving the
// default room is refused.
func (r *RoomRepository) LeaveRoom(userID domain.UserID, roomID domain.RoomID) error {
	if roomID == r.defaultID {
		return errors.ErrCannotLeaveDefaultRoom
	}
	return update(r.db, func(txn *badger.Txn) error {
		if err := txn.Delete(memberKey(roomID, userID)); err != nil {
			return err
		}
		return txn.Delete(memberOfKey(userID, roomID))
	})
}

// DeleteRoom removes the room, its name index, every membership (both
// directions) and every message, all in one transaction so a failure
// mid-cascade rolls the whole deletion back. The creator check reads
// the room record in the same transaction.
func (r *RoomRepository) DeleteRoom(roomID domain.RoomID, requester domain.UserID) error {
	if roomID == r.defaultID {
		return errors.ErrCannotDeleteDefaultRoom
	}
	return update(r.db, func(txn *badger.Txn) error {
		var disk diskRoom
		err := readJSON(txn, roomIDKey(roomID), &disk)
		if err == badger.ErrKeyNotFound {
			return errors.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		if domain.UserID(disk.CreatedBy) != requester {
			return errors.ErrNotCreator
		}

		doomed := [][]byte{roomIDKey(roomID), roomNameKey(disk.Name)}
		memberPrefix := []byte(fmt.Sprintf("member:%019d:", roomID))
		msgPrefix := []byte(fmt.Sprintf("msg:%019d:", roomID))

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(memberPrefix); it.ValidForPrefix(memberPrefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			userID, err := strconv.ParseUint(string(key[len(memberPrefix):]), 10, 64)
			if err != nil {
				it.Close()
				return err
			}
			doomed = append(doomed, key, memberOfKey(domain.UserID(userID), roomID))
		}
		it.Close()

		it = txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		for it.Seek(msgPrefix); it.ValidForPrefix(msgPrefix); it.Next() {
			doomed = append(doomed, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range doomed {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RoomRepository) ListPublicRooms() ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("room:id:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var disk diskRoom
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &disk)
			}); err != nil {
				return err
			}
			if !disk.IsPrivate {
				rooms = append(rooms, toRoom(disk))
			}
		}
		return nil
	})
	return rooms, err
}

func (r *RoomRepository) ListRoomsForUser(userID domain.UserID) ([]domain.Room, error) {
	var ids []domain.RoomID
	prefix := []byte(fmt.Sprintf("memberof:%019d:", userID))
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			id, err := strconv.ParseUint(string(key[len(prefix):]), 10, 64)
			if err != nil {
				return err
			}
			ids = append(ids, domain.RoomID(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rooms := make([]domain.Room, 0, len(ids))
	for _, id := range ids {
		room, err := r.GetRoom(id)
		if err == errors.ErrRoomNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (r *RoomRepository) IsMember(userID domain.UserID, roomID domain.RoomID) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(roomID, userID))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *RoomRepository) MemberCount(roomID domain.RoomID) (int, error) {
	count := 0
	prefix := []byte(fmt.Sprintf("member:%019d:", roomID))
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func readJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func fromRoom(room domain.Room) diskRoom {
	return diskRoom{
		ID:          uint64(room.ID),
		Name:        room.Name,
		Description: room.Description,
		CreatedBy:   uint64(room.CreatedBy),
		IsPrivate:   room.IsPrivate,
		CreatedAt:   room.CreatedAt,
	}
}

func toRoom(disk diskRoom) domain.Room {
	return domain.Room{
		ID:          domain.RoomID(disk.ID),
		Name:        disk.Name,
		Description: disk.Description,
		CreatedBy:   domain.UserID(disk.CreatedBy),
		IsPrivate:   disk.IsPrivate,
		CreatedAt:   disk.CreatedAt,
	}
}
