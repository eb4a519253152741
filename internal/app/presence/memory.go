package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. All operations take one lock, so every swap is atomic
// with respect to every read.
type MemoryStore struct {
	mu         sync.RWMutex
	rooms      map[string]map[string]struct{}
	userRoom   map[string]string
	heartbeats map[string]time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:      make(map[string]map[string]struct{}),
		userRoom:   make(map[string]string),
		heartbeats: make(map[string]time.Time),
	}
}

func (s *MemoryStore) SetCurrentRoom(_ context.Context, userID, roomID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.userRoom[userID]
	if previous != "" && previous != roomID {
		s.leaveLocked(previous, userID)
	}

	occupants := s.rooms[roomID]
	if occupants == nil {
		occupants = make(map[string]struct{})
		s.rooms[roomID] = occupants
	}
	occupants[userID] = struct{}{}
	s.userRoom[userID] = roomID

	return previous, nil
}

func (s *MemoryStore) CurrentRoom(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userRoom[userID], nil
}

func (s *MemoryStore) Remove(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.userRoom[userID]
	if !ok {
		return "", nil
	}
	s.leaveLocked(previous, userID)
	delete(s.userRoom, userID)

	return previous, nil
}

func (s *MemoryStore) leaveLocked(roomID, userID string) {
	occupants := s.rooms[roomID]
	delete(occupants, userID)
	if len(occupants) == 0 {
		delete(s.rooms, roomID)
	}
}

func (s *MemoryStore) Occupants(_ context.Context, roomID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedKeys(s.rooms[roomID]), nil
}

func (s *MemoryStore) AllOccupancy(_ context.Context) (Occupancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(Occupancy, len(s.rooms))
	for roomID, occupants := range s.rooms {
		out[roomID] = sortedKeys(occupants)
	}
	return out, nil
}

func (s *MemoryStore) RecordHeartbeat(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.heartbeats[userID] = at
	return nil
}

func (s *MemoryStore) LastHeartbeat(_ context.Context, userID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at, ok := s.heartbeats[userID]
	return at, ok, nil
}
