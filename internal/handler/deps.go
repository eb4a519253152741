package handler

import (
	"sync"

	"hmspace/internal/app/catalog"
	"hmspace/internal/app/connect"
	"hmspace/internal/app/fanout"
	"hmspace/internal/app/linkparse"
	"hmspace/internal/app/notes"
	"hmspace/internal/app/presence"
	"hmspace/internal/configs"
)

// AppDeps are the collaborators shared by every handler.
type AppDeps struct {
	Config       *configs.AppConfig
	Catalog      *catalog.Catalog
	Presence     presence.Store
	Orchestrator *connect.Orchestrator
	Notes        *notes.Service
	Parser       *linkparse.Parser
	Hub          *fanout.Hub

	locks userLocks
}

// userLocks serializes the room transitions of one user without blocking any other user.
// Entries live only while someone holds or waits on them. The zero value is ready to use.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (l *userLocks) lock(userID string) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*userLock)
	}
	e, ok := l.m[userID]
	if !ok {
		e = &userLock{}
		l.m[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, userID)
		}
		l.mu.Unlock()
	}
}
