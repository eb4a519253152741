package user

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinimize_DropsPrivateFields(t *testing.T) {
	u := User{ID: "u1", Username: "ada", RoomID: "bar", Item: "lantern", IsMod: true, LastHeartbeat: time.Now()}

	raw, err := json.Marshal(u.Minimize())
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":"u1","username":"ada","item":"lantern"}`, string(raw))
}

func directories(t *testing.T) map[string]Directory {
	out := map[string]Directory{"memory": NewMemoryDirectory()}

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 14})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return out
	}
	require.NoError(t, client.Del(ctx, profilesKey).Err())
	t.Cleanup(func() {
		_ = client.Del(context.Background(), profilesKey).Err()
		_ = client.Close()
	})
	out["redis"] = NewRedisDirectory(client)
	return out
}

func TestDirectory(t *testing.T) {
	for name, d := range directories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := d.Get(ctx, "u1")
			assert.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, d.Save(ctx, User{ID: "u1", Username: "ada", Item: "lantern"}))
			require.NoError(t, d.Save(ctx, User{ID: "u2", Username: "bob"}))

			got, err := d.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "lantern", got.Item)

			minimal, err := d.Minimal(ctx, []string{"u1", "u2", "ghost"})
			require.NoError(t, err)
			assert.Equal(t, map[string]MinimalUser{
				"u1": {ID: "u1", Username: "ada", Item: "lantern"},
				"u2": {ID: "u2", Username: "bob"},
			}, minimal)

			empty, err := d.Minimal(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}
