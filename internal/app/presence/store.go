/*
Package presence tracks which users occupy which room, and when each user was last seen.

A user id is in at most one room's occupant set at any time. Moving a user is a single atomic
swap: no reader of Occupants or AllOccupancy can observe the user in zero or two rooms because
of it. Requests for the same user are expected to be serialized by the caller; concurrent
swaps for one user resolve as last-write-wins.
*/
package presence

import (
	"context"
	"sort"
	"time"

	"hmspace/internal/app/kv"
)

// ErrStoreUnavailable is returned when the backing store cannot be reached.
// A mutation that returns it has not been applied.
var ErrStoreUnavailable = kv.ErrUnavailable

// Occupancy maps room id to the sorted ids of its occupants. Rooms without occupants are absent.
type Occupancy map[string][]string

// Occupants returns the occupants of roomID in the snapshot.
func (o Occupancy) Occupants(_ context.Context, roomID string) ([]string, error) {
	return o[roomID], nil
}

// Store is the presence store contract.
type Store interface {
	// SetCurrentRoom moves userID into roomID and returns the room it left ("" if none).
	SetCurrentRoom(ctx context.Context, userID, roomID string) (previous string, err error)

	// CurrentRoom returns the room userID occupies, or "" when unassigned.
	CurrentRoom(ctx context.Context, userID string) (string, error)

	// Remove takes userID out of its room and returns that room ("" if none).
	Remove(ctx context.Context, userID string) (previous string, err error)

	// Occupants returns the sorted ids of the users in roomID.
	Occupants(ctx context.Context, roomID string) ([]string, error)

	// AllOccupancy returns one consistent snapshot of every occupied room.
	AllOccupancy(ctx context.Context) (Occupancy, error)

	// RecordHeartbeat stores the liveness timestamp of userID.
	RecordHeartbeat(ctx context.Context, userID string, at time.Time) error

	// LastHeartbeat returns the last recorded liveness timestamp of userID.
	LastHeartbeat(ctx context.Context, userID string) (time.Time, bool, error)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
