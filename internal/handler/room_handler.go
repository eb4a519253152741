/*
Package handler provides HTTP handler functions for room details and note walls.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hmspace/internal/app/catalog"
	"hmspace/internal/app/event"
	"hmspace/internal/app/linkparse"
	"hmspace/internal/app/notes"
	"hmspace/internal/pkg/logx"
	"hmspace/internal/pkg/req"
	"hmspace/internal/pkg/resp"
)

// RoomView is a room as shown to a client: the catalog entry, its rendered description and
// who is in it.
type RoomView struct {
	Room            catalog.Room `json:"room"`
	DescriptionHTML string       `json:"descriptionHtml"`
	Users           []string     `json:"users"`
}

// NoteInput is the body of POST /api/rooms/{roomId}/notes.
type NoteInput struct {
	Message string `json:"message"`
}

// HandleGetRoom returns one room with its description rendered against live occupancy.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomId")

		room, err := deps.Catalog.Get(roomID)
		if err != nil {
			resp.RespondError(w, r, deps.toCustomError(err))
			return
		}

		occupancy, err := deps.Presence.AllOccupancy(r.Context())
		if err != nil {
			resp.RespondError(w, r, deps.toCustomError(err))
			return
		}

		live := linkparse.LiveRooms(deps.Catalog, occupancy)

		resp.RespondSuccess(w, r, RoomView{
			Room:            room,
			DescriptionHTML: deps.Parser.Parse(room.Description, live),
			Users:           live[roomID].Users,
		})
	}
}

// HandleAddNote pins a note to a room's wall and announces it to the room.
func HandleAddNote(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := identityFrom(r)
		roomID := chi.URLParam(r, "roomId")

		var input NoteInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		note, err := deps.Notes.AddNote(r.Context(), roomID, identity.ID, input.Message)
		if err != nil {
			resp.RespondError(w, r, deps.toCustomError(err))
			return
		}

		logx.Info("Note added", "room_id", roomID, "user_id", identity.ID, "note_id", note.ID)

		deps.Hub.Deliver([]event.Message{notes.AddedMessage(roomID, note)})
		resp.RespondSuccess(w, r, note)
	}
}
