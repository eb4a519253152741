/*
Package connect orchestrates room transitions: first connect and reconnect, explicit moves,
disconnects and profile item changes.

Every operation returns a Result: the response for the requesting client, the subscription
tasks and the outbound messages. The caller applies tasks before delivering messages so a
subscriber is attached to its new room group before anything addressed to that group arrives.
A failed operation returns no Result at all.
*/
package connect

import (
	"context"
	"errors"

	"hmspace/internal/app/catalog"
	"hmspace/internal/app/event"
	"hmspace/internal/app/groups"
	"hmspace/internal/app/notes"
	"hmspace/internal/app/presence"
	"hmspace/internal/app/user"
)

// ErrNotConnected is returned by room-scoped operations for users without presence.
var ErrNotConnected = errors.New("connect: user is not in a room")

// WarningRoomNotes is attached to a response whose note wall could not be loaded.
const WarningRoomNotes = "roomNotes unavailable"

// Snapshot is the state returned to the requesting client. Fields that an operation does not
// produce are omitted.
type Snapshot struct {
	RoomID       string                      `json:"roomId,omitempty"`
	PresenceData presence.Occupancy          `json:"presenceData,omitempty"`
	Users        map[string]user.MinimalUser `json:"users,omitempty"`
	RoomData     map[string]catalog.Room     `json:"roomData,omitempty"`
	Profile      *user.User                  `json:"profile,omitempty"`
	RoomNotes    *notes.Wall                 `json:"roomNotes,omitempty"`
	Warnings     []string                    `json:"warnings,omitempty"`
}

// Result is everything an operation produced.
type Result struct {
	Response Snapshot
	Tasks    []groups.Task
	Messages []event.Message
}

// Dispatcher is the outbound fan-out collaborator.
type Dispatcher interface {
	Apply(tasks []groups.Task)
	Deliver(messages []event.Message)
}

// Dispatch hands r to d, tasks first.
func Dispatch(d Dispatcher, r Result) {
	if len(r.Tasks) > 0 {
		d.Apply(r.Tasks)
	}
	if len(r.Messages) > 0 {
		d.Deliver(r.Messages)
	}
}

// NoteWall is the note-wall collaborator.
type NoteWall interface {
	GetNotes(ctx context.Context, roomID string) (notes.Wall, error)
}

// VideoChat is the video chat gate as seen by the orchestrator.
type VideoChat interface {
	Join(roomID, userID string) error
	Leave(roomID, userID string) (bool, error)
	PresenceMessage(roomID string) event.Message
}
