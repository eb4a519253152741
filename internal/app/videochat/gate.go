/*
Package videochat gates who may join the video chat of a room.

Each room has at most one session, created on the first join and dropped once the last
participant leaves. A session moves between Empty, Open and Full as participants come and go;
joins at capacity are rejected. Sessions are in memory only. Each session has its own mutex,
so traffic in one room never waits on another room.
*/
package videochat

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"hmspace/internal/app/catalog"
	"hmspace/internal/app/event"
)

// DefaultCapacity is the participant limit used when none is configured.
const DefaultCapacity = 8

var (
	// ErrCapacityExceeded is returned by Join when the session is full.
	ErrCapacityExceeded = errors.New("videochat: capacity exceeded")

	// ErrFeatureDisabled is returned for rooms flagged noMediaChat.
	ErrFeatureDisabled = errors.New("videochat: disabled in this room")
)

// Status is the state of a room's session.
type Status string

const (
	StatusEmpty Status = "empty"
	StatusOpen  Status = "open"
	StatusFull  Status = "full"
)

type session struct {
	mu           sync.Mutex
	participants map[string]struct{}
	// closed is set under mu when the session is removed from the registry.
	closed bool
}

// Gate tracks the video chat sessions of every room.
type Gate struct {
	catalog  *catalog.Catalog
	capacity int

	// mu guards the sessions map only, never the participants inside a session.
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewGate returns a Gate for the rooms of c. A non-positive capacity selects DefaultCapacity.
func NewGate(c *catalog.Catalog, capacity int) *Gate {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Gate{
		catalog:  c,
		capacity: capacity,
		sessions: make(map[string]*session),
	}
}

// Capacity returns the participant limit of every session.
func (g *Gate) Capacity() int {
	return g.capacity
}

func (g *Gate) checkRoom(roomID string) error {
	room, err := g.catalog.Get(roomID)
	if err != nil {
		return err
	}
	if room.NoMediaChat {
		return fmt.Errorf("%w: %q", ErrFeatureDisabled, roomID)
	}
	return nil
}

// Join adds userID to the session of roomID. Joining twice is not an error.
func (g *Gate) Join(roomID, userID string) error {
	if err := g.checkRoom(roomID); err != nil {
		return err
	}

	for {
		s := g.session(roomID)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			continue
		}

		if _, ok := s.participants[userID]; ok {
			s.mu.Unlock()
			return nil
		}
		if len(s.participants) >= g.capacity {
			s.mu.Unlock()
			return fmt.Errorf("%w: room %q holds %d", ErrCapacityExceeded, roomID, g.capacity)
		}
		s.participants[userID] = struct{}{}
		s.mu.Unlock()
		return nil
	}
}

// Leave removes userID from the session of roomID and reports whether it was a participant.
// Leaving a session one never joined is not an error.
func (g *Gate) Leave(roomID, userID string) (bool, error) {
	if err := g.checkRoom(roomID); err != nil {
		return false, err
	}

	g.mu.RLock()
	s := g.sessions[roomID]
	g.mu.RUnlock()
	if s == nil {
		return false, nil
	}

	s.mu.Lock()
	_, ok := s.participants[userID]
	delete(s.participants, userID)
	empty := len(s.participants) == 0
	s.mu.Unlock()

	if empty {
		g.dropIfEmpty(roomID, s)
	}
	return ok, nil
}

// Participants returns the sorted participants of roomID.
func (g *Gate) Participants(roomID string) []string {
	g.mu.RLock()
	s := g.sessions[roomID]
	g.mu.RUnlock()

	out := []string{}
	if s == nil {
		return out
	}

	s.mu.Lock()
	for id := range s.participants {
		out = append(out, id)
	}
	s.mu.Unlock()

	sort.Strings(out)
	return out
}

// Status returns the state of roomID's session.
func (g *Gate) Status(roomID string) Status {
	switch n := len(g.Participants(roomID)); {
	case n == 0:
		return StatusEmpty
	case n >= g.capacity:
		return StatusFull
	default:
		return StatusOpen
	}
}

// PresenceMessage returns the room-scoped "videoPresence" message listing roomID's participants.
func (g *Gate) PresenceMessage(roomID string) event.Message {
	return event.ToGroup(roomID, event.TargetVideoPresence, roomID, g.Participants(roomID))
}

// session returns the live session of roomID, creating it if needed.
func (g *Gate) session(roomID string) *session {
	g.mu.RLock()
	s := g.sessions[roomID]
	g.mu.RUnlock()
	if s != nil {
		return s
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if s = g.sessions[roomID]; s == nil {
		s = &session{participants: make(map[string]struct{})}
		g.sessions[roomID] = s
	}
	return s
}

func (g *Gate) dropIfEmpty(roomID string, s *session) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.participants) == 0 && g.sessions[roomID] == s {
		s.closed = true
		delete(g.sessions, roomID)
	}
}
