package connect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"hmspace/internal/app/catalog"
	"hmspace/internal/app/event"
	"hmspace/internal/app/groups"
	"hmspace/internal/app/notes"
	"hmspace/internal/app/presence"
	"hmspace/internal/app/user"
	"hmspace/internal/pkg/logx"
)

// Deps are the collaborators of an Orchestrator. Notes may be nil. Video may be nil when the
// video chat operations are not used.
type Deps struct {
	Catalog  *catalog.Catalog
	Presence presence.Store
	Users    user.Directory
	Groups   *groups.Manager
	Notes    NoteWall
	Video    VideoChat
	Now      func() time.Time
}

// Orchestrator drives the presence store, group manager and catalog for each transition.
// It holds no per-user state; requests for one user must be serialized by the caller.
type Orchestrator struct {
	catalog  *catalog.Catalog
	presence presence.Store
	users    user.Directory
	groups   *groups.Manager
	notes    NoteWall
	video    VideoChat
	now      func() time.Time
	logger   zerolog.Logger
}

func NewOrchestrator(d Deps) *Orchestrator {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		catalog:  d.Catalog,
		presence: d.Presence,
		users:    d.Users,
		groups:   d.Groups,
		notes:    d.Notes,
		video:    d.Video,
		now:      now,
		logger:   logx.Component("connect"),
	}
}

// loadProfile returns the stored profile of identity, or identity itself on a first visit.
// The username always comes from identity.
func (o *Orchestrator) loadProfile(ctx context.Context, identity user.User) (user.User, error) {
	stored, err := o.users.Get(ctx, identity.ID)
	switch {
	case errors.Is(err, user.ErrNotFound):
		return identity, nil
	case err != nil:
		return user.User{}, fmt.Errorf("connect: load profile: %w", err)
	}

	stored.Username = identity.Username
	return stored, nil
}

// enter swaps userID into roomID and records a heartbeat, returning the previous room and the
// heartbeat time. A failed heartbeat reverts the swap. Once enter succeeds the caller owns the
// swap: every later failure must go through revert.
func (o *Orchestrator) enter(ctx context.Context, userID, roomID string) (string, time.Time, error) {
	prev, err := o.presence.SetCurrentRoom(ctx, userID, roomID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("connect: set current room: %w", err)
	}

	now := o.now()
	if err := o.presence.RecordHeartbeat(ctx, userID, now); err != nil {
		o.revert(ctx, userID, prev)
		return "", time.Time{}, fmt.Errorf("connect: record heartbeat: %w", err)
	}
	return prev, now, nil
}

// saveProfile stores profile. It is the last write of a transition, so nothing after it can
// fail and leave the stored room ahead of presence.
func (o *Orchestrator) saveProfile(ctx context.Context, profile user.User) error {
	if err := o.users.Save(ctx, profile); err != nil {
		return fmt.Errorf("connect: save profile: %w", err)
	}
	return nil
}

// revert puts userID back where it was before enter, on a best-effort basis. It runs even
// when ctx is already cancelled.
func (o *Orchestrator) revert(ctx context.Context, userID, prev string) {
	ctx = context.WithoutCancel(ctx)

	var err error
	if prev == "" {
		_, err = o.presence.Remove(ctx, userID)
	} else {
		_, err = o.presence.SetCurrentRoom(ctx, userID, prev)
	}
	if err != nil {
		o.logger.Error().Err(err).Str("user_id", userID).Str("room_id", prev).Msg("Failed to revert presence swap")
	}
}

// roomNotes loads the wall of room when it has one. A missing wall is omitted silently;
// any other failure is logged and reported as a warning instead of failing the request.
func (o *Orchestrator) roomNotes(ctx context.Context, room catalog.Room) (*notes.Wall, string) {
	if !room.HasNoteWall || o.notes == nil {
		return nil, ""
	}

	wall, err := o.notes.GetNotes(ctx, room.ID)
	switch {
	case err == nil:
		return &wall, ""
	case errors.Is(err, notes.ErrNotFound):
		return nil, ""
	default:
		o.logger.Warn().Err(err).Str("room_id", room.ID).Msg("Note wall unavailable, responding without it")
		return nil, WarningRoomNotes
	}
}

// leaveVideo takes userID out of roomID's video chat and returns the resulting videoPresence
// message, if any. Rooms without video chat are skipped.
func (o *Orchestrator) leaveVideo(roomID, userID string) []event.Message {
	if o.video == nil || roomID == "" {
		return nil
	}

	left, err := o.video.Leave(roomID, userID)
	if err != nil || !left {
		return nil
	}
	return []event.Message{o.video.PresenceMessage(roomID)}
}

// touched returns the rooms whose occupancy a transition from prev to next changed.
func touched(prev, next string) []string {
	if prev == "" || prev == next {
		return []string{next}
	}
	return []string{prev, next}
}

// snapshotReads runs the occupancy read and the note-wall fetch concurrently.
func (o *Orchestrator) snapshotReads(ctx context.Context, room catalog.Room) (presence.Occupancy, *notes.Wall, string, error) {
	var (
		occupancy presence.Occupancy
		wall      *notes.Wall
		warning   string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		occupancy, err = o.presence.AllOccupancy(gctx)
		if err != nil {
			return fmt.Errorf("connect: read occupancy: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		wall, warning = o.roomNotes(gctx, room)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, "", err
	}
	return occupancy, wall, warning, nil
}
