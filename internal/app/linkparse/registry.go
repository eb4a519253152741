package linkparse

import "hmspace/internal/app/catalog"

// ActionRegistry reports which client-side actions a description may link to.
// The handlers themselves run on the client when the affordance is activated.
type ActionRegistry interface {
	Has(actionID string) bool
}

// Action ids understood by clients.
const (
	ActionShowNoteWall   = "showNoteWall"
	ActionJoinVideoChat  = "joinVideoChat"
	ActionLeaveVideoChat = "leaveVideoChat"
)

// Actions is an immutable set of action ids.
type Actions map[string]struct{}

// NewActions returns an Actions set holding ids.
func NewActions(ids ...string) Actions {
	a := make(Actions, len(ids))
	for _, id := range ids {
		a[id] = struct{}{}
	}
	return a
}

// DefaultActions returns the actions every client implements.
func DefaultActions() Actions {
	return NewActions(ActionShowNoteWall, ActionJoinVideoChat, ActionLeaveVideoChat)
}

func (a Actions) Has(actionID string) bool {
	_, ok := a[actionID]
	return ok
}

// LiveRooms joins the static catalog with an occupancy snapshot.
// Every catalog room is present; occupants of rooms outside the catalog are ignored.
func LiveRooms(c *catalog.Catalog, occupancy map[string][]string) RoomData {
	out := make(RoomData)
	for _, id := range c.IDs() {
		room, _ := c.Lookup(id)
		users := occupancy[id]
		if users == nil {
			users = []string{}
		}
		out[id] = LiveRoom{ID: id, DisplayName: room.DisplayName, Users: users}
	}
	return out
}
