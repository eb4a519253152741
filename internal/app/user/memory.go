package user

import (
	"context"
	"fmt"
	"sync"
)

// MemoryDirectory is an in-process Directory for development and tests.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]User
}

var _ Directory = (*MemoryDirectory)(nil)

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]User)}
}

func (d *MemoryDirectory) Get(_ context.Context, id string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return u, nil
}

func (d *MemoryDirectory) Save(_ context.Context, u User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users[u.ID] = u
	return nil
}

func (d *MemoryDirectory) Minimal(_ context.Context, ids []string) (map[string]MinimalUser, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]MinimalUser, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u.Minimize()
		}
	}
	return out, nil
}
