package domain

import "time"

type RoomID uint64

// DefaultRoomName is the always-present room every identity belongs to.
// It can never be left or deleted.
const DefaultRoomName = "General"

type Room struct {
	ID          RoomID
	Name        string
	Description string
	// CreatedBy is zero when the creator was removed, or for the
	// default room which is created by the system.
	CreatedBy UserID
	IsPrivate bool
	CreatedAt time.Time
}

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Membership relates an Identity to a Room. Joining is idempotent:
// a second join is rejected, never duplicated.
type Membership struct {
	RoomID   RoomID
	UserID   UserID
	Role     Role
	JoinedAt time.Time
}
