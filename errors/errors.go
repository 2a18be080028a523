package errors

import "fmt"

// Validation failures are rejected locally and surfaced only to the originator.
var (
	ErrEmptyDisplayName = fmt.Errorf("display name is required")
	ErrEmptyRoomName    = fmt.Errorf("room name is required")
	ErrEmptyMessage     = fmt.Errorf("message content is empty")
	ErrInvalidPassword  = fmt.Errorf("password does not meet complexity rules")
)

// Conflicts leave no state change behind.
var (
	ErrNameTaken         = fmt.Errorf("display name already taken")
	ErrDuplicateRoomName = fmt.Errorf("room name already exists")
	ErrAlreadyMember     = fmt.Errorf("already a member of this room")
	ErrUserAlreadyExists = fmt.Errorf("user already exists")
)

var (
	ErrRoomNotFound = fmt.Errorf("room not found")
	ErrUserNotFound = fmt.Errorf("user not found")
)

// Authorization and default-room protection.
var (
	ErrNotCreator              = fmt.Errorf("only the room creator can delete the room")
	ErrCannotDeleteDefaultRoom = fmt.Errorf("cannot delete the default room")
	ErrCannotLeaveDefaultRoom  = fmt.Errorf("cannot leave the default room")
)

// Auth surface.
var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid token")
)

// Runtime.
var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrNotRegistered    = fmt.Errorf("connection has not joined yet")
	ErrCompletionFailed = fmt.Errorf("completion provider failed")
	ErrQueueFull        = fmt.Errorf("ai request queue is full")
)
