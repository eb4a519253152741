package presence

import (
	"context"
	"fmt"

	"hmspace/internal/app/event"
)

// OccupantsReader reads the occupants of one room. Both Store and Occupancy implement it.
type OccupantsReader interface {
	Occupants(ctx context.Context, roomID string) ([]string, error)
}

// BroadcastMessage reads the occupancy of roomIDs and returns the broadcast "presenceData"
// message describing them. Empty or duplicate ids are ignored.
func BroadcastMessage(ctx context.Context, store OccupantsReader, roomIDs ...string) (event.Message, error) {
	seen := make(map[string]struct{}, len(roomIDs))
	rooms := make(Occupancy, len(roomIDs))

	for _, id := range roomIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		occupants, err := store.Occupants(ctx, id)
		if err != nil {
			return event.Message{}, fmt.Errorf("presence broadcast for %q: %w", id, err)
		}
		if occupants == nil {
			occupants = []string{}
		}
		rooms[id] = occupants
	}

	return event.ToAll(event.TargetPresenceData, rooms), nil
}
