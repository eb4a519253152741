package connect

import (
	"context"
	"fmt"

	"hmspace/internal/app/catalog"
	"hmspace/internal/app/event"
	"hmspace/internal/app/groups"
	"hmspace/internal/app/notes"
	"hmspace/internal/app/presence"
	"hmspace/internal/app/user"
)

// Connect places a connecting user into its recorded room, or the default room when the
// recorded one is missing from the catalog, and returns the full world snapshot.
// A failure at any step after the presence swap reverts it and leaves the stored profile as it was.
func (o *Orchestrator) Connect(ctx context.Context, identity user.User) (Result, error) {
	profile, err := o.loadProfile(ctx, identity)
	if err != nil {
		return Result{}, err
	}

	recorded := profile.RoomID
	if recorded == "" {
		if recorded, err = o.presence.CurrentRoom(ctx, profile.ID); err != nil {
			return Result{}, fmt.Errorf("connect: read current room: %w", err)
		}
	}

	roomID, fellBack := o.catalog.Resolve(recorded)
	if fellBack && recorded != "" {
		o.logger.Warn().Str("user_id", profile.ID).Str("recorded_room", recorded).Msg("Recorded room not in catalog, using default room")
	}
	room, _ := o.catalog.Lookup(roomID)

	isMod, err := o.groups.IsModerator(ctx, profile.ID)
	if err != nil {
		return Result{}, err
	}
	profile.IsMod = isMod

	prev, at, err := o.enter(ctx, profile.ID, roomID)
	if err != nil {
		return Result{}, err
	}
	profile.RoomID = roomID
	profile.LastHeartbeat = at

	res, err := o.connected(ctx, profile, room, prev, isMod)
	if err == nil {
		err = o.saveProfile(ctx, profile)
	}
	if err != nil {
		o.revert(ctx, profile.ID, prev)
		return Result{}, err
	}

	if prev != roomID {
		res.Messages = append(res.Messages, o.leaveVideo(prev, profile.ID)...)
	}

	o.logger.Info().
		Str("user_id", profile.ID).
		Str("room_id", roomID).
		Str("previous_room", prev).
		Bool("fell_back", fellBack).
		Msg("User connected")

	return res, nil
}

// connected reads the snapshot and builds the Result of a Connect whose swap has been applied.
// It writes nothing.
func (o *Orchestrator) connected(ctx context.Context, profile user.User, room catalog.Room, prev string, isMod bool) (Result, error) {
	occupancy, wall, warning, err := o.snapshotReads(ctx, room)
	if err != nil {
		return Result{}, err
	}

	ids := []string{profile.ID}
	for _, occupants := range occupancy {
		ids = append(ids, occupants...)
	}
	users, err := o.users.Minimal(ctx, ids)
	if err != nil {
		return Result{}, fmt.Errorf("connect: read profiles: %w", err)
	}
	me := profile.Minimize()
	users[profile.ID] = me

	tasks, err := o.groups.Tasks(profile.ID, prev, room.ID, isMod)
	if err != nil {
		return Result{}, err
	}

	presenceMsg, err := presence.BroadcastMessage(ctx, occupancy, touched(prev, room.ID)...)
	if err != nil {
		return Result{}, err
	}

	resp := Snapshot{
		RoomID:       room.ID,
		PresenceData: occupancy,
		Users:        users,
		RoomData:     o.catalog.All(),
		Profile:      &profile,
		RoomNotes:    wall,
	}
	if warning != "" {
		resp.Warnings = []string{warning}
	}

	return Result{
		Response: resp,
		Tasks:    tasks,
		Messages: []event.Message{
			event.ToGroup(room.ID, event.TargetPlayerConnected, me),
			event.ToAll(event.TargetUsernameMap, map[string]user.MinimalUser{profile.ID: me}),
			presenceMsg,
		},
	}, nil
}

// Move transitions a connected user into roomID. Unlike Connect there is no fallback: an
// unknown room fails with catalog.ErrRoomNotFound before anything is written. Later failures
// revert the swap as in Connect.
func (o *Orchestrator) Move(ctx context.Context, identity user.User, roomID string) (Result, error) {
	room, err := o.catalog.Get(roomID)
	if err != nil {
		return Result{}, err
	}

	profile, err := o.loadProfile(ctx, identity)
	if err != nil {
		return Result{}, err
	}

	isMod, err := o.groups.IsModerator(ctx, profile.ID)
	if err != nil {
		return Result{}, err
	}
	profile.IsMod = isMod

	prev, at, err := o.enter(ctx, profile.ID, roomID)
	if err != nil {
		return Result{}, err
	}
	profile.RoomID = roomID
	profile.LastHeartbeat = at

	occupancy, wall, warning, tasks, presenceMsg, err := o.moved(ctx, profile.ID, room, prev, isMod)
	if err == nil {
		err = o.saveProfile(ctx, profile)
	}
	if err != nil {
		o.revert(ctx, profile.ID, prev)
		return Result{}, err
	}

	var messages []event.Message
	if prev != "" && prev != roomID {
		messages = append(messages, event.ToGroup(prev, event.TargetPlayerLeft, profile.ID))
		messages = append(messages, o.leaveVideo(prev, profile.ID)...)
	}
	messages = append(messages,
		event.ToGroup(roomID, event.TargetPlayerEntered, profile.Minimize()),
		presenceMsg,
	)

	resp := Snapshot{RoomID: roomID, PresenceData: occupancy, RoomNotes: wall}
	if warning != "" {
		resp.Warnings = []string{warning}
	}

	o.logger.Info().Str("user_id", profile.ID).Str("room_id", roomID).Str("previous_room", prev).Msg("User moved")

	return Result{Response: resp, Tasks: tasks, Messages: messages}, nil
}

// moved runs the reads of a Move whose swap has been applied. It writes nothing.
func (o *Orchestrator) moved(ctx context.Context, userID string, room catalog.Room, prev string, isMod bool) (presence.Occupancy, *notes.Wall, string, []groups.Task, event.Message, error) {
	occupancy, wall, warning, err := o.snapshotReads(ctx, room)
	if err != nil {
		return nil, nil, "", nil, event.Message{}, err
	}

	tasks, err := o.groups.Tasks(userID, prev, room.ID, isMod)
	if err != nil {
		return nil, nil, "", nil, event.Message{}, err
	}

	presenceMsg, err := presence.BroadcastMessage(ctx, occupancy, touched(prev, room.ID)...)
	if err != nil {
		return nil, nil, "", nil, event.Message{}, err
	}
	return occupancy, wall, warning, tasks, presenceMsg, nil
}

// Disconnect removes userID from presence. Its profile keeps the room, so the next Connect
// returns the user there. Disconnecting a user without presence yields an empty Result.
func (o *Orchestrator) Disconnect(ctx context.Context, userID string) (Result, error) {
	prev, err := o.presence.Remove(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("connect: remove presence: %w", err)
	}
	if prev == "" {
		return Result{}, nil
	}

	messages := []event.Message{event.ToGroup(prev, event.TargetPlayerLeft, userID)}
	messages = append(messages, o.leaveVideo(prev, userID)...)

	// The removal is already applied, so a failed read only costs the presence broadcast.
	if presenceMsg, err := presence.BroadcastMessage(ctx, o.presence, prev); err != nil {
		o.logger.Warn().Err(err).Str("room_id", prev).Msg("Skipping presence broadcast after disconnect")
	} else {
		messages = append(messages, presenceMsg)
	}

	o.logger.Info().Str("user_id", userID).Str("room_id", prev).Msg("User disconnected")

	return Result{Tasks: o.groups.LeaveTasks(userID, prev), Messages: messages}, nil
}

// SetItem stores item as the user's held item; an empty item drops it. Every client is told
// through a usernameMap broadcast.
func (o *Orchestrator) SetItem(ctx context.Context, identity user.User, item string) (Result, error) {
	profile, err := o.loadProfile(ctx, identity)
	if err != nil {
		return Result{}, err
	}

	profile.Item = item
	if err := o.users.Save(ctx, profile); err != nil {
		return Result{}, fmt.Errorf("connect: save profile: %w", err)
	}

	me := profile.Minimize()
	return Result{
		Response: Snapshot{Profile: &profile},
		Messages: []event.Message{event.ToAll(event.TargetUsernameMap, map[string]user.MinimalUser{profile.ID: me})},
	}, nil
}

// Heartbeat records that userID is alive.
func (o *Orchestrator) Heartbeat(ctx context.Context, userID string) error {
	if err := o.presence.RecordHeartbeat(ctx, userID, o.now()); err != nil {
		return fmt.Errorf("connect: record heartbeat: %w", err)
	}
	return nil
}

// JoinVideoChat adds userID to the video chat of the room it occupies.
func (o *Orchestrator) JoinVideoChat(ctx context.Context, userID string) (Result, error) {
	roomID, err := o.currentRoom(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	if err := o.video.Join(roomID, userID); err != nil {
		return Result{}, err
	}

	return Result{
		Response: Snapshot{RoomID: roomID},
		Messages: []event.Message{o.video.PresenceMessage(roomID)},
	}, nil
}

// LeaveVideoChat removes userID from the video chat of the room it occupies. Leaving a chat
// one never joined succeeds without messages.
func (o *Orchestrator) LeaveVideoChat(ctx context.Context, userID string) (Result, error) {
	roomID, err := o.currentRoom(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	left, err := o.video.Leave(roomID, userID)
	if err != nil {
		return Result{}, err
	}

	res := Result{Response: Snapshot{RoomID: roomID}}
	if left {
		res.Messages = []event.Message{o.video.PresenceMessage(roomID)}
	}
	return res, nil
}

func (o *Orchestrator) currentRoom(ctx context.Context, userID string) (string, error) {
	roomID, err := o.presence.CurrentRoom(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("connect: read current room: %w", err)
	}
	if roomID == "" {
		return "", ErrNotConnected
	}
	return roomID, nil
}
