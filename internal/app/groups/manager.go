package groups

import (
	"context"
	"fmt"

	"hmspace/internal/app/catalog"
)

// PrivilegeChecker resolves moderator standing.
type PrivilegeChecker interface {
	IsModerator(ctx context.Context, userID string) (bool, error)
}

// Manager builds subscription plans for room transitions.
type Manager struct {
	catalog    *catalog.Catalog
	privileges PrivilegeChecker
}

// NewManager returns a Manager that reads room features from c and moderator standing from p.
func NewManager(c *catalog.Catalog, p PrivilegeChecker) *Manager {
	return &Manager{catalog: c, privileges: p}
}

// IsModerator asks the privilege collaborator about userID. Callers resolve standing before
// mutating presence, so a failed check leaves nothing applied.
func (m *Manager) IsModerator(ctx context.Context, userID string) (bool, error) {
	ok, err := m.privileges.IsModerator(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("groups: moderator check for %q: %w", userID, err)
	}
	return ok, nil
}

// Tasks returns the tasks for userID moving from prevRoom ("" on first connect) into
// nextRoom. nextRoom must be a catalog room; the caller resolves it beforehand.
func (m *Manager) Tasks(userID, prevRoom, nextRoom string, isMod bool) ([]Task, error) {
	next, err := m.catalog.Get(nextRoom)
	if err != nil {
		return nil, err
	}

	return Plan(
		m.state(userID, prevRoom, isMod),
		State{UserID: userID, RoomID: next.ID, FeatureGroups: next.FeatureGroups(), Moderator: isMod},
	), nil
}

// LeaveTasks returns the tasks that drop userID's room and feature groups when it leaves prevRoom.
func (m *Manager) LeaveTasks(userID, prevRoom string) []Task {
	return Plan(m.state(userID, prevRoom, false), State{UserID: userID})
}

// state describes a user in roomID. A room missing from the catalog contributes only its own group.
func (m *Manager) state(userID, roomID string, isMod bool) State {
	s := State{UserID: userID, RoomID: roomID, Moderator: isMod}
	if r, ok := m.catalog.Lookup(roomID); ok {
		s.FeatureGroups = r.FeatureGroups()
	}
	return s
}
