package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"hmspace/internal/app/kv"
	"hmspace/internal/pkg/logx"
)

// profilesKey is the hash holding one JSON profile per user id.
const profilesKey = "users"

// RedisDirectory is a Directory backed by a Redis hash.
type RedisDirectory struct {
	client *redis.Client
}

var _ Directory = (*RedisDirectory)(nil)

// NewRedisDirectory returns a Directory stored in client.
func NewRedisDirectory(client *redis.Client) *RedisDirectory {
	return &RedisDirectory{client: client}
}

func (d *RedisDirectory) Get(ctx context.Context, id string) (User, error) {
	raw, err := d.client.HGet(ctx, profilesKey, id).Bytes()
	if err != nil {
		err = kv.Wrap("user: get", err)
		if errors.Is(err, kv.ErrMiss) {
			return User{}, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return User{}, err
	}

	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return User{}, fmt.Errorf("user: decode profile %q: %w", id, err)
	}
	return u, nil
}

func (d *RedisDirectory) Save(ctx context.Context, u User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("user: encode profile %q: %w", u.ID, err)
	}
	return kv.Wrap("user: save", d.client.HSet(ctx, profilesKey, u.ID, raw).Err())
}

func (d *RedisDirectory) Minimal(ctx context.Context, ids []string) (map[string]MinimalUser, error) {
	out := make(map[string]MinimalUser, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	values, err := d.client.HMGet(ctx, profilesKey, ids...).Result()
	if err != nil {
		return nil, kv.Wrap("user: minimal", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var u User
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			logx.Warn("Skipping undecodable profile", "user_id", ids[i], "error", err.Error())
			continue
		}
		out[u.ID] = u.Minimize()
	}
	return out, nil
}
