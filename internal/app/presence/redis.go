package presence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"hmspace/internal/app/kv"
	"hmspace/internal/pkg/logx"
)

const (
	roomKeyPrefix = "presence:room:"
	roomsIndexKey = "presence:rooms"
)

func userRoomKey(userID string) string      { return "presence:user:" + userID + ":room" }
func userHeartbeatKey(userID string) string { return "presence:user:" + userID + ":heartbeat" }

// KEYS: user pointer, target room set, rooms index. ARGV: user id, room id, room key prefix.
var swapScript = redis.NewScript(`
local prev = redis.call('GET', KEYS[1])
if prev and prev ~= ARGV[2] then
  local prevKey = ARGV[3] .. prev
  redis.call('SREM', prevKey, ARGV[1])
  if redis.call('SCARD', prevKey) == 0 then
    redis.call('SREM', KEYS[3], prev)
  end
end
redis.call('SADD', KEYS[2], ARGV[1])
redis.call('SADD', KEYS[3], ARGV[2])
redis.call('SET', KEYS[1], ARGV[2])
if prev then
  return prev
end
return ''
`)

// KEYS: user pointer, rooms index. ARGV: user id, room key prefix.
var removeScript = redis.NewScript(`
local prev = redis.call('GET', KEYS[1])
if not prev then
  return ''
end
local prevKey = ARGV[2] .. prev
redis.call('SREM', prevKey, ARGV[1])
if redis.call('SCARD', prevKey) == 0 then
  redis.call('SREM', KEYS[2], prev)
end
redis.call('DEL', KEYS[1])
return prev
`)

// KEYS: rooms index. ARGV: room key prefix. Returns room id, members, room id, members, ...
var snapshotScript = redis.NewScript(`
local out = {}
for _, room in ipairs(redis.call('SMEMBERS', KEYS[1])) do
  local members = redis.call('SMEMBERS', ARGV[1] .. room)
  if #members > 0 then
    table.insert(out, room)
    table.insert(out, members)
  end
end
return out
`)

// RedisStore keeps presence in Redis. Room swaps, removals and snapshots run as Lua scripts,
// so each executes atomically on the server. The scripts derive room keys from ARGV, which
// requires a single-node (or single-slot) deployment.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logx.Component("presence"),
	}
}

func (s *RedisStore) SetCurrentRoom(ctx context.Context, userID, roomID string) (string, error) {
	keys := []string{userRoomKey(userID), roomKeyPrefix + roomID, roomsIndexKey}

	previous, err := swapScript.Run(ctx, s.client, keys, userID, roomID, roomKeyPrefix).Text()
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("room_id", roomID).Msg("Presence swap failed")
		return "", kv.Wrap("presence: set current room", err)
	}

	return previous, nil
}

func (s *RedisStore) CurrentRoom(ctx context.Context, userID string) (string, error) {
	roomID, err := s.client.Get(ctx, userRoomKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", kv.Wrap("presence: current room", err)
	}
	return roomID, nil
}

func (s *RedisStore) Remove(ctx context.Context, userID string) (string, error) {
	keys := []string{userRoomKey(userID), roomsIndexKey}

	previous, err := removeScript.Run(ctx, s.client, keys, userID, roomKeyPrefix).Text()
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Presence removal failed")
		return "", kv.Wrap("presence: remove", err)
	}

	return previous, nil
}

func (s *RedisStore) Occupants(ctx context.Context, roomID string) ([]string, error) {
	members, err := s.client.SMembers(ctx, roomKeyPrefix+roomID).Result()
	if err != nil {
		return nil, kv.Wrap("presence: occupants", err)
	}
	sort.Strings(members)
	return members, nil
}

func (s *RedisStore) AllOccupancy(ctx context.Context) (Occupancy, error) {
	raw, err := snapshotScript.Run(ctx, s.client, []string{roomsIndexKey}, roomKeyPrefix).Slice()
	if err != nil {
		return nil, kv.Wrap("presence: all occupancy", err)
	}

	return decodeSnapshot(raw)
}

func decodeSnapshot(raw []any) (Occupancy, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("presence: malformed snapshot of length %d", len(raw))
	}

	out := make(Occupancy, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		roomID, ok := raw[i].(string)
		if !ok {
			return nil, fmt.Errorf("presence: snapshot room id has type %T", raw[i])
		}
		rawMembers, ok := raw[i+1].([]any)
		if !ok {
			return nil, fmt.Errorf("presence: snapshot members of %q have type %T", roomID, raw[i+1])
		}

		members := make([]string, 0, len(rawMembers))
		for _, m := range rawMembers {
			if id, ok := m.(string); ok {
				members = append(members, id)
			}
		}
		sort.Strings(members)
		out[roomID] = members
	}

	return out, nil
}

func (s *RedisStore) RecordHeartbeat(ctx context.Context, userID string, at time.Time) error {
	err := s.client.Set(ctx, userHeartbeatKey(userID), at.UnixMilli(), 0).Err()
	return kv.Wrap("presence: record heartbeat", err)
}

func (s *RedisStore) LastHeartbeat(ctx context.Context, userID string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, userHeartbeatKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, kv.Wrap("presence: last heartbeat", err)
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("presence: heartbeat of %q is not a timestamp: %w", userID, err)
	}
	return time.UnixMilli(ms), true, nil
}
