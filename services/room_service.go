package services

import (
	"strings"

	"groupchat/domain"
	"groupchat/errors"
	"groupchat/repositories"
)

type IRoomService interface {
	CreateRoom(name, description string, creator domain.Identity, isPrivate bool) (domain.Room, error)
	JoinRoom(identity domain.Identity, roomID domain.RoomID) error
	LeaveRoom(identity domain.Identity, roomID domain.RoomID) error
	DeleteRoom(roomID domain.RoomID, requester domain.Identity) (domain.Room, error)
	ListRooms(identity domain.Identity) ([]domain.Room, error)
	IsMember(identity domain.Identity, roomID domain.RoomID) (bool, error)
	Snapshot(roomID domain.RoomID) (domain.Room, int, error)
	EnsureDefaultMembership(identity domain.Identity) (domain.RoomID, error)
	DefaultRoomID() domain.RoomID
}

// RoomService owns room lifecycle and membership rules. Atomicity of
// the check-then-write paths lives in the repository's transactions;
// this layer adds validation and the room-list shape clients see.
type RoomService struct {
	rooms repositories.IRoomRepository
}

func NewRoomService(rooms repositories.IRoomRepository) *RoomService {
	return &RoomService{rooms: rooms}
}

func (s *RoomService) CreateRoom(name, description string, creator domain.Identity, isPrivate bool) (domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Room{}, errors.ErrEmptyRoomName
	}
	return s.rooms.CreateRoom(name, description, creator.UserID, isPrivate)
}

func (s *RoomService) JoinRoom(identity domain.Identity, roomID domain.RoomID) error {
	return s.rooms.JoinRoom(identity.UserID, roomID, domain.RoleMember)
}

func (s *RoomService) LeaveRoom(identity domain.Identity, roomID domain.RoomID) error {
	return s.rooms.LeaveRoom(identity.UserID, roomID)
}

// DeleteRoom returns the deleted room so callers can broadcast its
// name. Creator and default-room checks happen in the repository's
// transaction.
func (s *RoomService) DeleteRoom(roomID domain.RoomID, requester domain.Identity) (domain.Room, error) {
	room, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if err := s.rooms.DeleteRoom(roomID, requester.UserID); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// ListRooms is the client-visible room list: the deduplicated union of
// public rooms and the identity's memberships.
func (s *RoomService) ListRooms(identity domain.Identity) ([]domain.Room, error) {
	public, err := s.rooms.ListPublicRooms()
	if err != nil {
		return nil, err
	}
	mine, err := s.rooms.ListRoomsForUser(identity.UserID)
	if err != nil {
		return nil, err
	}

	seen := make(map[domain.RoomID]struct{}, len(public)+len(mine))
	merged := make([]domain.Room, 0, len(public)+len(mine))
	for _, room := range append(public, mine...) {
		if _, ok := seen[room.ID]; ok {
			continue
		}
		seen[room.ID] = struct{}{}
		merged = append(merged, room)
	}
	return merged, nil
}

func (s *RoomService) IsMember(identity domain.Identity, roomID domain.RoomID) (bool, error) {
	return s.rooms.IsMember(identity.UserID, roomID)
}

func (s *RoomService) Snapshot(roomID domain.RoomID) (domain.Room, int, error) {
	room, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return domain.Room{}, 0, err
	}
	count, err := s.rooms.MemberCount(roomID)
	if err != nil {
		return domain.Room{}, 0, err
	}
	return room, count, nil
}

// EnsureDefaultMembership implicitly joins the identity to the default
// room; an existing membership is fine.
func (s *RoomService) EnsureDefaultMembership(identity domain.Identity) (domain.RoomID, error) {
	roomID := s.rooms.DefaultRoomID()
	err := s.rooms.JoinRoom(identity.UserID, roomID, domain.RoleMember)
	if err != nil && err != errors.ErrAlreadyMember {
		return roomID, err
	}
	return roomID, nil
}

func (s *RoomService) DefaultRoomID() domain.RoomID {
	return s.rooms.DefaultRoomID()
}
