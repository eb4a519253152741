package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	objects map[string][]byte
}

func (f fakeFetcher) Download(_ context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func TestFromObject(t *testing.T) {
	f := fakeFetcher{objects: map[string][]byte{
		"rooms.json": []byte(`{"entryway": {"displayName": "Hall"}}`),
	}}

	c, err := FromObject(context.Background(), f, "rooms.json")
	require.NoError(t, err)

	r, ok := c.Lookup("entryway")
	require.True(t, ok)
	assert.Equal(t, "Hall", r.DisplayName)

	_, err = FromObject(context.Background(), f, "missing.json")
	assert.Error(t, err)
}
