package handler

import (
	"errors"

	"hmspace/internal/app/catalog"
	"hmspace/internal/app/connect"
	"hmspace/internal/app/kv"
	"hmspace/internal/app/notes"
	"hmspace/internal/app/user"
	"hmspace/internal/app/videochat"
	"hmspace/internal/pkg/errs"
)

// toCustomError maps a core error onto the client-facing error code.
func (d *AppDeps) toCustomError(err error) *errs.CustomError {
	switch {
	case errors.Is(err, kv.ErrUnavailable):
		return errs.NewError(errs.ErrStoreUnavailable, err)
	case errors.Is(err, catalog.ErrRoomNotFound):
		return errs.NewError(errs.ErrRoomNotFound)
	case errors.Is(err, connect.ErrNotConnected):
		return errs.NewError(errs.ErrNotInRoom)
	case errors.Is(err, notes.ErrNotFound):
		return errs.NewError(errs.ErrNoteWallNotFound)
	case errors.Is(err, notes.ErrMessageTooLong):
		return errs.NewError(errs.ErrNoteTooLong, notes.MaxMessageLength)
	case errors.Is(err, notes.ErrEmptyMessage):
		return errs.NewError(errs.ErrInvalidParams)
	case errors.Is(err, videochat.ErrCapacityExceeded):
		return errs.NewError(errs.ErrVideoChatFull, d.videoCapacity())
	case errors.Is(err, videochat.ErrFeatureDisabled):
		return errs.NewError(errs.ErrVideoChatDisabled)
	case errors.Is(err, user.ErrNotFound):
		return errs.NewError(errs.ErrUserNotFound)
	default:
		return errs.NewError(errs.ErrUnknown, err)
	}
}

func (d *AppDeps) videoCapacity() int {
	if d.Config == nil || d.Config.VideoChatMaxSize <= 0 {
		return videochat.DefaultCapacity
	}
	return d.Config.VideoChatMaxSize
}
