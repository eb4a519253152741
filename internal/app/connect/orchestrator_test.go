package connect

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hmspace/internal/app/catalog"
	"hmspace/internal/app/event"
	"hmspace/internal/app/groups"
	"hmspace/internal/app/notes"
	"hmspace/internal/app/presence"
	"hmspace/internal/app/user"
	"hmspace/internal/app/videochat"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// flakyStore fails selected presence operations.
type flakyStore struct {
	*presence.MemoryStore
	failSwap      bool
	failHeartbeat bool
	failSnapshot  bool
}

func unavailable(op string) error { return fmt.Errorf("%s: %w", op, presence.ErrStoreUnavailable) }

func (s *flakyStore) SetCurrentRoom(ctx context.Context, userID, roomID string) (string, error) {
	if s.failSwap {
		return "", unavailable("swap")
	}
	return s.MemoryStore.SetCurrentRoom(ctx, userID, roomID)
}

func (s *flakyStore) RecordHeartbeat(ctx context.Context, userID string, at time.Time) error {
	if s.failHeartbeat {
		return unavailable("heartbeat")
	}
	return s.MemoryStore.RecordHeartbeat(ctx, userID, at)
}

func (s *flakyStore) AllOccupancy(ctx context.Context) (presence.Occupancy, error) {
	if s.failSnapshot {
		return nil, unavailable("snapshot")
	}
	return s.MemoryStore.AllOccupancy(ctx)
}

// flakyUsers fails the bulk profile read on demand.
type flakyUsers struct {
	*user.MemoryDirectory
	failMinimal bool
}

func (d *flakyUsers) Minimal(ctx context.Context, ids []string) (map[string]user.MinimalUser, error) {
	if d.failMinimal {
		return nil, errors.New("directory unavailable")
	}
	return d.MemoryDirectory.Minimal(ctx, ids)
}

type stubPrivileges map[string]bool

func (p stubPrivileges) IsModerator(_ context.Context, userID string) (bool, error) {
	return p[userID], nil
}

type stubNotes struct {
	wall notes.Wall
	err  error
}

func (n stubNotes) GetNotes(_ context.Context, roomID string) (notes.Wall, error) {
	if n.err != nil {
		return notes.Wall{}, n.err
	}
	w := n.wall
	w.RoomID = roomID
	return w, nil
}

type fixture struct {
	orch    *Orchestrator
	store   *flakyStore
	users   *flakyUsers
	video   *videochat.Gate
	catalog *catalog.Catalog
}

func newFixture(t *testing.T, wall NoteWall) *fixture {
	t.Helper()

	c, err := catalog.New([]catalog.Room{
		{ID: catalog.DefaultRoomID, DisplayName: "Entryway", SpecialFeatures: []catalog.SpecialFeature{catalog.FullRoomIndex}},
		{ID: "foyer", DisplayName: "Foyer", HasNoteWall: true},
		{ID: "bar", DisplayName: "Bar", SpecialFeatures: []catalog.SpecialFeature{catalog.RainbowDoor}},
		{ID: "theater", DisplayName: "Theater", NoMediaChat: true},
	})
	require.NoError(t, err)

	f := &fixture{
		store:   &flakyStore{MemoryStore: presence.NewMemoryStore()},
		users:   &flakyUsers{MemoryDirectory: user.NewMemoryDirectory()},
		video:   videochat.NewGate(c, 2),
		catalog: c,
	}
	f.orch = NewOrchestrator(Deps{
		Catalog:  c,
		Presence: f.store,
		Users:    f.users,
		Groups:   groups.NewManager(c, stubPrivileges{"mod": true}),
		Notes:    wall,
		Video:    f.video,
		Now:      func() time.Time { return fixedNow },
	})
	return f
}

func ada() user.User { return user.User{ID: "ada", Username: "Ada"} }

func targets(msgs []event.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Target)
	}
	return out
}

func TestConnect_FirstVisitFallsBackToEntryway(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.orch.Connect(ctx, ada())
	require.NoError(t, err)

	assert.Equal(t, catalog.DefaultRoomID, res.Response.RoomID)
	assert.Equal(t, presence.Occupancy{catalog.DefaultRoomID: {"ada"}}, res.Response.PresenceData)
	assert.Equal(t, map[string]user.MinimalUser{"ada": {ID: "ada", Username: "Ada"}}, res.Response.Users)
	assert.Equal(t, f.catalog.All(), res.Response.RoomData)
	require.NotNil(t, res.Response.Profile)
	assert.Equal(t, catalog.DefaultRoomID, res.Response.Profile.RoomID)
	assert.Nil(t, res.Response.RoomNotes)

	assert.Equal(t, []groups.Task{{UserID: "ada", GroupID: catalog.DefaultRoomID, Action: groups.ActionAdd}}, res.Tasks)

	require.Len(t, res.Messages, 3)
	assert.Equal(t, event.ToGroup(catalog.DefaultRoomID, event.TargetPlayerConnected, user.MinimalUser{ID: "ada", Username: "Ada"}), res.Messages[0])
	assert.Equal(t, event.ToAll(event.TargetUsernameMap, map[string]user.MinimalUser{"ada": {ID: "ada", Username: "Ada"}}), res.Messages[1])
	assert.Equal(t, event.ToAll(event.TargetPresenceData, presence.Occupancy{catalog.DefaultRoomID: {"ada"}}), res.Messages[2])

	at, ok, err := f.store.LastHeartbeat(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, fixedNow.Equal(at))

	stored, err := f.users.Get(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultRoomID, stored.RoomID)
}

func TestConnect_UnknownRecordedRoomFallsBack(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.users.Save(ctx, user.User{ID: "ada", Username: "old name", RoomID: "demolished", Item: "lantern"}))

	res, err := f.orch.Connect(ctx, ada())
	require.NoError(t, err)

	assert.Equal(t, catalog.DefaultRoomID, res.Response.RoomID)
	assert.Equal(t, "Ada", res.Response.Profile.Username)
	assert.Equal(t, "lantern", res.Response.Profile.Item)
}

func TestConnect_ReturnsToRecordedRoom(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.users.Save(ctx, user.User{ID: "ada", Username: "Ada", RoomID: "bar"}))
	_, err := f.store.SetCurrentRoom(ctx, "bob", "bar")
	require.NoError(t, err)
	require.NoError(t, f.users.Save(ctx, user.User{ID: "bob", Username: "Bob", Item: "key"}))

	res, err := f.orch.Connect(ctx, ada())
	require.NoError(t, err)

	assert.Equal(t, "bar", res.Response.RoomID)
	assert.Equal(t, presence.Occupancy{"bar": {"ada", "bob"}}, res.Response.PresenceData)
	assert.Equal(t, user.MinimalUser{ID: "bob", Username: "Bob", Item: "key"}, res.Response.Users["bob"])
	assert.Equal(t, []groups.Task{
		{UserID: "ada", GroupID: "feature:rainbowDoor", Action: groups.ActionAdd},
		{UserID: "ada", GroupID: "bar", Action: groups.ActionAdd},
	}, res.Tasks)
}

func TestConnect_ModeratorJoinsModsGroup(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.orch.Connect(context.Background(), user.User{ID: "mod", Username: "Mod"})
	require.NoError(t, err)

	assert.True(t, res.Response.Profile.IsMod)
	assert.Contains(t, res.Tasks, groups.Task{UserID: "mod", GroupID: groups.ModeratorGroup, Action: groups.ActionAdd})
}

func TestConnect_ReconnectIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.orch.Connect(ctx, ada())
	require.NoError(t, err)
	res, err := f.orch.Connect(ctx, ada())
	require.NoError(t, err)

	assert.Equal(t, []groups.Task{{UserID: "ada", GroupID: catalog.DefaultRoomID, Action: groups.ActionAdd}}, res.Tasks)
	assert.Equal(t, presence.Occupancy{catalog.DefaultRoomID: {"ada"}}, res.Response.PresenceData)
}

func TestConnect_SwapFailureLeavesNoResidue(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.store.failSwap = true

	res, err := f.orch.Connect(ctx, ada())
	assert.True(t, errors.Is(err, presence.ErrStoreUnavailable))
	assert.Equal(t, Result{}, res)

	_, err = f.users.Get(ctx, "ada")
	assert.True(t, errors.Is(err, user.ErrNotFound))

	all, err := f.store.MemoryStore.AllOccupancy(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestConnect_HeartbeatFailureRevertsSwap(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.store.SetCurrentRoom(ctx, "ada", "bar")
	require.NoError(t, err)
	require.NoError(t, f.users.Save(ctx, user.User{ID: "ada", Username: "Ada", RoomID: "foyer"}))
	f.store.failHeartbeat = true

	_, err = f.orch.Connect(ctx, ada())
	assert.True(t, errors.Is(err, presence.ErrStoreUnavailable))

	room, err := f.store.CurrentRoom(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "bar", room)
}

// assertPlacement checks where ada sits in presence and in the stored profile. An empty
// storedRoom means no profile may exist.
func assertPlacement(t *testing.T, f *fixture, currentRoom, storedRoom string) {
	t.Helper()
	ctx := context.Background()

	room, err := f.store.CurrentRoom(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, currentRoom, room)

	stored, err := f.users.Get(ctx, "ada")
	if storedRoom == "" {
		assert.True(t, errors.Is(err, user.ErrNotFound))
		return
	}
	require.NoError(t, err)
	assert.Equal(t, storedRoom, stored.RoomID)
}

func TestConnect_FailureAfterSwapLeavesNoResidue(t *testing.T) {
	tests := []struct {
		name string
		fail func(f *fixture)
	}{
		{name: "snapshot", fail: func(f *fixture) { f.store.failSnapshot = true }},
		{name: "profiles", fail: func(f *fixture) { f.users.failMinimal = true }},
	}

	for _, tc := range tests {
		t.Run(tc.name+" first visit", func(t *testing.T) {
			f := newFixture(t, nil)
			tc.fail(f)

			res, err := f.orch.Connect(context.Background(), ada())
			require.Error(t, err)
			assert.Equal(t, Result{}, res)

			assertPlacement(t, f, "", "")
			all, err := f.store.MemoryStore.AllOccupancy(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})

		t.Run(tc.name+" reconnect", func(t *testing.T) {
			f := newFixture(t, nil)
			ctx := context.Background()
			_, err := f.store.SetCurrentRoom(ctx, "ada", "bar")
			require.NoError(t, err)
			require.NoError(t, f.users.Save(ctx, user.User{ID: "ada", Username: "Ada", RoomID: "foyer"}))
			require.NoError(t, f.video.Join("bar", "ada"))
			tc.fail(f)

			_, err = f.orch.Connect(ctx, ada())
			require.Error(t, err)

			assertPlacement(t, f, "bar", "foyer")
			assert.Equal(t, []string{"ada"}, f.video.Participants("bar"))
		})
	}
}

func TestConnect_SnapshotFailureFails(t *testing.T) {
	f := newFixture(t, nil)
	f.store.failSnapshot = true

	_, err := f.orch.Connect(context.Background(), ada())
	assert.True(t, errors.Is(err, presence.ErrStoreUnavailable))
}

func TestConnect_NoteWall(t *testing.T) {
	ctx := context.Background()
	wall := notes.Wall{Notes: []notes.Note{{ID: "n1", AuthorID: "bob", Message: "hi"}}}

	tests := []struct {
		name         string
		notes        NoteWall
		wantNotes    bool
		wantWarnings []string
	}{
		{name: "attached", notes: stubNotes{wall: wall}, wantNotes: true},
		{name: "missing wall omitted", notes: stubNotes{err: notes.ErrNotFound}},
		{name: "failure degrades", notes: stubNotes{err: errors.New("db down")}, wantWarnings: []string{WarningRoomNotes}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.notes)
			require.NoError(t, f.users.Save(ctx, user.User{ID: "ada", Username: "Ada", RoomID: "foyer"}))

			res, err := f.orch.Connect(ctx, ada())
			require.NoError(t, err)

			assert.Equal(t, "foyer", res.Response.RoomID)
			assert.Equal(t, tc.wantWarnings, res.Response.Warnings)
			if tc.wantNotes {
				require.NotNil(t, res.Response.RoomNotes)
				assert.Equal(t, "foyer", res.Response.RoomNotes.RoomID)
				assert.Len(t, res.Response.RoomNotes.Notes, 1)
			} else {
				assert.Nil(t, res.Response.RoomNotes)
			}
		})
	}
}

func TestConnect_RoomWithoutWallSkipsNotes(t *testing.T) {
	f := newFixture(t, stubNotes{err: errors.New("must not be called")})

	res, err := f.orch.Connect(context.Background(), ada())
	require.NoError(t, err)
	assert.Empty(t, res.Response.Warnings)
}

func TestMove(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.orch.Connect(ctx, ada())
	require.NoError(t, err)
	require.NoError(t, f.video.Join(catalog.DefaultRoomID, "ada"))

	res, err := f.orch.Move(ctx, ada(), "bar")
	require.NoError(t, err)

	assert.Equal(t, "bar", res.Response.RoomID)
	assert.Equal(t, presence.Occupancy{"bar": {"ada"}}, res.Response.PresenceData)
	assert.Nil(t, res.Response.Profile)

	assert.Equal(t, []groups.Task{
		{UserID: "ada", GroupID: catalog.DefaultRoomID, Action: groups.ActionRemove},
		{UserID: "ada", GroupID: "feature:rainbowDoor", Action: groups.ActionAdd},
		{UserID: "ada", GroupID: "bar", Action: groups.ActionAdd},
	}, res.Tasks)

	assert.Equal(t, []string{
		event.TargetPlayerLeft,
		event.TargetVideoPresence,
		event.TargetPlayerEntered,
		event.TargetPresenceData,
	}, targets(res.Messages))
	assert.Equal(t, catalog.DefaultRoomID, res.Messages[0].GroupID)
	assert.Equal(t, "bar", res.Messages[2].GroupID)
	assert.Equal(t, []any{presence.Occupancy{catalog.DefaultRoomID: {}, "bar": {"ada"}}}, res.Messages[3].Arguments)

	assert.Empty(t, f.video.Participants(catalog.DefaultRoomID))

	stored, err := f.users.Get(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "bar", stored.RoomID)
}

func TestMove_SnapshotFailureLeavesNoResidue(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.orch.Connect(ctx, ada())
	require.NoError(t, err)
	require.NoError(t, f.video.Join(catalog.DefaultRoomID, "ada"))
	f.store.failSnapshot = true

	res, err := f.orch.Move(ctx, ada(), "bar")
	assert.True(t, errors.Is(err, presence.ErrStoreUnavailable))
	assert.Equal(t, Result{}, res)

	assertPlacement(t, f, catalog.DefaultRoomID, catalog.DefaultRoomID)
	assert.Equal(t, []string{"ada"}, f.video.Participants(catalog.DefaultRoomID))

	f.store.failSnapshot = false
	res, err = f.orch.Move(ctx, ada(), "bar")
	require.NoError(t, err)
	assert.Equal(t, presence.Occupancy{"bar": {"ada"}}, res.Response.PresenceData)
}

func TestMove_UnknownRoom(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.orch.Connect(ctx, ada())
	require.NoError(t, err)

	_, err = f.orch.Move(ctx, ada(), "nowhere")
	assert.True(t, errors.Is(err, catalog.ErrRoomNotFound))

	room, err := f.store.CurrentRoom(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultRoomID, room)
}

func TestDisconnect(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.orch.Disconnect(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	_, err = f.orch.Connect(ctx, ada())
	require.NoError(t, err)
	_, err = f.orch.Move(ctx, ada(), "bar")
	require.NoError(t, err)

	res, err = f.orch.Disconnect(ctx, "ada")
	require.NoError(t, err)

	assert.Equal(t, []groups.Task{
		{UserID: "ada", GroupID: "feature:rainbowDoor", Action: groups.ActionRemove},
		{UserID: "ada", GroupID: "bar", Action: groups.ActionRemove},
	}, res.Tasks)
	assert.Equal(t, []string{event.TargetPlayerLeft, event.TargetPresenceData}, targets(res.Messages))

	all, err := f.store.AllOccupancy(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// The profile keeps the room for the next connect.
	res, err = f.orch.Connect(ctx, ada())
	require.NoError(t, err)
	assert.Equal(t, "bar", res.Response.RoomID)
}

func TestSetItem(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.orch.SetItem(ctx, ada(), "lantern")
	require.NoError(t, err)

	assert.Equal(t, "lantern", res.Response.Profile.Item)
	assert.Equal(t, []event.Message{
		event.ToAll(event.TargetUsernameMap, map[string]user.MinimalUser{"ada": {ID: "ada", Username: "Ada", Item: "lantern"}}),
	}, res.Messages)

	res, err = f.orch.SetItem(ctx, ada(), "")
	require.NoError(t, err)
	assert.Empty(t, res.Response.Profile.Item)

	stored, err := f.users.Get(ctx, "ada")
	require.NoError(t, err)
	assert.Empty(t, stored.Item)
}

func TestVideoChat(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.orch.JoinVideoChat(ctx, "ada")
	assert.True(t, errors.Is(err, ErrNotConnected))

	_, err = f.orch.Connect(ctx, ada())
	require.NoError(t, err)

	res, err := f.orch.JoinVideoChat(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, []event.Message{f.video.PresenceMessage(catalog.DefaultRoomID)}, res.Messages)

	res, err = f.orch.LeaveVideoChat(ctx, "ada")
	require.NoError(t, err)
	assert.Len(t, res.Messages, 1)

	res, err = f.orch.LeaveVideoChat(ctx, "ada")
	require.NoError(t, err)
	assert.Empty(t, res.Messages)

	_, err = f.orch.Move(ctx, ada(), "theater")
	require.NoError(t, err)
	_, err = f.orch.JoinVideoChat(ctx, "ada")
	assert.True(t, errors.Is(err, videochat.ErrFeatureDisabled))
}

type recordingDispatcher struct {
	calls []string
}

func (d *recordingDispatcher) Apply(tasks []groups.Task)        { d.calls = append(d.calls, "apply") }
func (d *recordingDispatcher) Deliver(messages []event.Message) { d.calls = append(d.calls, "deliver") }

func TestDispatch_TasksBeforeMessages(t *testing.T) {
	d := &recordingDispatcher{}
	Dispatch(d, Result{Tasks: []groups.Task{{}}, Messages: []event.Message{{}}})
	assert.Equal(t, []string{"apply", "deliver"}, d.calls)

	d = &recordingDispatcher{}
	Dispatch(d, Result{})
	assert.Empty(t, d.calls)
}
