/*
Package handler provides the HTTP handlers and routing setup for the HM Space server.

This file holds the room transition endpoints: connect, move, held item and video chat.
Each one runs under the caller's user lock and dispatches its tasks and messages to the hub
before responding.
*/
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"hmspace/internal/app/connect"
	"hmspace/internal/app/fanout"
	"hmspace/internal/app/user"
	"hmspace/internal/pkg/auth/jwt"
	"hmspace/internal/pkg/errs"
	"hmspace/internal/pkg/logx"
	"hmspace/internal/pkg/req"
	"hmspace/internal/pkg/resp"
)

// disconnectTimeout bounds the cleanup run when a websocket goes away.
const disconnectTimeout = 5 * time.Second

// MoveInput is the body of POST /api/move.
type MoveInput struct {
	RoomID string `json:"roomId"`
}

// ItemInput is the body of POST /api/item.
type ItemInput struct {
	Item string `json:"item"`
}

// identityFrom returns the authenticated user. Routes using it sit behind jwt.RequireIdentity.
func identityFrom(r *http.Request) user.User {
	p := jwt.GetPayloadFromContext(r)
	return user.User{ID: p.ID, Username: p.Username}
}

// transition runs op under the user's lock, dispatches its result and responds with the snapshot.
func (d *AppDeps) transition(w http.ResponseWriter, r *http.Request, userID string, op func(ctx context.Context) (connect.Result, error)) {
	unlock := d.locks.lock(userID)
	res, err := op(r.Context())
	if err == nil {
		connect.Dispatch(d.Hub, res)
	}
	unlock()

	if err != nil {
		resp.RespondError(w, r, d.toCustomError(err))
		return
	}
	resp.RespondSuccess(w, r, res.Response)
}

// HandleConnect places the caller in its recorded room, or the entryway, and returns the full snapshot.
func HandleConnect(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := identityFrom(r)

		deps.transition(w, r, identity.ID, func(ctx context.Context) (connect.Result, error) {
			return deps.Orchestrator.Connect(ctx, identity)
		})
	}
}

// HandleMove moves the caller into the requested room.
func HandleMove(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := identityFrom(r)

		var input MoveInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		roomID := strings.TrimSpace(input.RoomID)
		if roomID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		deps.transition(w, r, identity.ID, func(ctx context.Context) (connect.Result, error) {
			return deps.Orchestrator.Move(ctx, identity, roomID)
		})
	}
}

// HandleSetItem stores the item the caller holds.
func HandleSetItem(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := identityFrom(r)

		var input ItemInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		item := strings.TrimSpace(input.Item)
		if item == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		deps.transition(w, r, identity.ID, func(ctx context.Context) (connect.Result, error) {
			return deps.Orchestrator.SetItem(ctx, identity, item)
		})
	}
}

// HandleClearItem drops the item the caller holds.
func HandleClearItem(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := identityFrom(r)

		deps.transition(w, r, identity.ID, func(ctx context.Context) (connect.Result, error) {
			return deps.Orchestrator.SetItem(ctx, identity, "")
		})
	}
}

// HandleJoinVideoChat adds the caller to the video chat of its room.
func HandleJoinVideoChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := identityFrom(r)

		deps.transition(w, r, identity.ID, func(ctx context.Context) (connect.Result, error) {
			return deps.Orchestrator.JoinVideoChat(ctx, identity.ID)
		})
	}
}

// HandleLeaveVideoChat removes the caller from the video chat of its room.
func HandleLeaveVideoChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := identityFrom(r)

		deps.transition(w, r, identity.ID, func(ctx context.Context) (connect.Result, error) {
			return deps.Orchestrator.LeaveVideoChat(ctx, identity.ID)
		})
	}
}

// SessionCallbacks ties websocket lifecycles to presence: heartbeat frames refresh the
// heartbeat and the end of a user's last connection removes the user from its room.
func SessionCallbacks(deps *AppDeps) fanout.Callbacks {
	return fanout.Callbacks{
		OnHeartbeat: func(userID string) {
			ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
			defer cancel()

			if err := deps.Orchestrator.Heartbeat(ctx, userID); err != nil {
				logx.Warn("Failed to record heartbeat", "user_id", userID, "error", err.Error())
			}
		},
		OnDisconnect: func(userID string) {
			unlock := deps.locks.lock(userID)
			defer unlock()

			// A new connection may have taken over while this one was shutting down.
			if deps.Hub.Connected(userID) {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
			defer cancel()

			res, err := deps.Orchestrator.Disconnect(ctx, userID)
			if err != nil {
				logx.Error(err, "Failed to remove disconnected user from presence", "user_id", userID)
				return
			}
			connect.Dispatch(deps.Hub, res)
		},
	}
}
