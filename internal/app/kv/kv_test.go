package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("get", nil))

	miss := Wrap("get", redis.Nil)
	assert.True(t, errors.Is(miss, ErrMiss))
	assert.False(t, errors.Is(miss, ErrUnavailable))

	down := Wrap("get", errors.New("connection refused"))
	assert.True(t, errors.Is(down, ErrUnavailable))
	assert.Contains(t, down.Error(), "connection refused")
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not a url")
	assert.Error(t, err)
}
