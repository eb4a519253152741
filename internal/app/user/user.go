/*
Package user contains the profile data the coordination core reads and writes.

Identity is owned elsewhere: a user arrives with an id and a username from a verified token.
The core only maintains the held item, the recorded room and liveness on top of that, and
derives the moderator flag on every connect.
*/
package user

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no profile is stored for a user id.
var ErrNotFound = errors.New("user: profile not found")

// User is the full profile, only ever sent to its owner.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	RoomID        string    `json:"roomId,omitempty"`
	Item          string    `json:"item,omitempty"`
	IsMod         bool      `json:"isMod"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

// MinimalUser is the part of a profile that is safe to broadcast.
type MinimalUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Item     string `json:"item,omitempty"`
}

// Minimize strips private fields from u.
func (u User) Minimize() MinimalUser {
	return MinimalUser{ID: u.ID, Username: u.Username, Item: u.Item}
}

// Directory stores profiles.
type Directory interface {
	// Get returns the stored profile of id, or ErrNotFound.
	Get(ctx context.Context, id string) (User, error)

	// Save creates or replaces the profile of u.ID.
	Save(ctx context.Context, u User) error

	// Minimal returns the broadcastable profiles of ids. Unknown ids are omitted.
	Minimal(ctx context.Context, ids []string) (map[string]MinimalUser, error)
}
