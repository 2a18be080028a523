// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// ConnectionID identifies one live transport session. Connections are
// ephemeral and never persisted; they may stay unauthenticated until
// they register an identity.
type ConnectionID string

// Identity is a resolved, registered chat participant, distinct from
// the connection that currently carries it.
type Identity struct {
	UserID   UserID
	Username string
}

type UserID uint64

// User is the durable account record behind an Identity.
type User struct {
	ID           UserID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}
