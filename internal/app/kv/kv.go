/*
Package kv is the adapter for the key-value store backing presence and user profiles.

It owns the Redis client construction and the translation of transport failures into
ErrUnavailable, so callers can distinguish "the store is down" from "the key is absent".
*/
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable signals that the store could not be reached or failed the command.
// Nothing was written when a mutation returns it.
var ErrUnavailable = errors.New("kv: store unavailable")

// ErrMiss signals that a key does not exist.
var ErrMiss = errors.New("kv: miss")

const pingTimeout = 3 * time.Second

// NewClient parses a redis:// URL, connects, and verifies the connection with PING.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("kv: parse url: %w", err)
	}

	opt.ReadTimeout = 500 * time.Millisecond
	opt.WriteTimeout = 500 * time.Millisecond
	opt.DialTimeout = time.Second

	c := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("kv: ping: %w", err)
	}

	return c, nil
}

// Wrap classifies a go-redis error. redis.Nil becomes ErrMiss, any other error is wrapped
// with ErrUnavailable, nil stays nil.
func Wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return fmt.Errorf("%s: %w", op, ErrMiss)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
}
