/*
Package notes serves the note walls of rooms that have one.
*/
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"hmspace/internal/app/catalog"
	"hmspace/internal/app/db"
	"hmspace/internal/app/event"
)

const (
	// MaxMessageLength is the longest note accepted, in characters.
	MaxMessageLength = 500

	// wallLimit caps how many notes a wall returns.
	wallLimit = 200
)

var (
	// ErrNotFound is returned for rooms without a note wall.
	ErrNotFound = errors.New("notes: room has no note wall")

	ErrEmptyMessage   = errors.New("notes: message is empty")
	ErrMessageTooLong = errors.New("notes: message too long")
)

// Note is one entry on a wall.
type Note struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Wall is the content of one room's note wall.
type Wall struct {
	RoomID string `json:"roomId"`
	Notes  []Note `json:"notes"`
}

// Store is the persistence the service needs. *db.Queries implements it.
type Store interface {
	ListRoomNotes(ctx context.Context, roomID string, limit int32) ([]db.RoomNote, error)
	InsertRoomNote(ctx context.Context, arg db.InsertRoomNoteParams) (db.RoomNote, error)
}

// Service reads and writes note walls.
type Service struct {
	catalog *catalog.Catalog
	store   Store
}

func NewService(c *catalog.Catalog, s Store) *Service {
	return &Service{catalog: c, store: s}
}

func (s *Service) checkWall(roomID string) error {
	room, ok := s.catalog.Lookup(roomID)
	if !ok || !room.HasNoteWall {
		return fmt.Errorf("%w: %q", ErrNotFound, roomID)
	}
	return nil
}

// GetNotes returns the wall of roomID, or ErrNotFound when the room has none.
func (s *Service) GetNotes(ctx context.Context, roomID string) (Wall, error) {
	if err := s.checkWall(roomID); err != nil {
		return Wall{}, err
	}

	rows, err := s.store.ListRoomNotes(ctx, roomID, wallLimit)
	if err != nil {
		return Wall{}, fmt.Errorf("notes: list %q: %w", roomID, err)
	}

	wall := Wall{RoomID: roomID, Notes: make([]Note, 0, len(rows))}
	for _, r := range rows {
		wall.Notes = append(wall.Notes, toNote(r))
	}
	return wall, nil
}

// AddNote pins message to the wall of roomID on behalf of authorID.
func (s *Service) AddNote(ctx context.Context, roomID, authorID, message string) (Note, error) {
	if err := s.checkWall(roomID); err != nil {
		return Note{}, err
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return Note{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return Note{}, fmt.Errorf("%w: limit is %d", ErrMessageTooLong, MaxMessageLength)
	}

	row, err := s.store.InsertRoomNote(ctx, db.InsertRoomNoteParams{
		ID:       uuid.New(),
		RoomID:   roomID,
		AuthorID: authorID,
		Message:  message,
	})
	if err != nil {
		return Note{}, fmt.Errorf("notes: insert into %q: %w", roomID, err)
	}
	return toNote(row), nil
}

// AddedMessage announces n to the occupants of roomID.
func AddedMessage(roomID string, n Note) event.Message {
	return event.ToGroup(roomID, event.TargetNoteAdded, roomID, n)
}

func toNote(r db.RoomNote) Note {
	return Note{ID: r.ID.String(), AuthorID: r.AuthorID, Message: r.Message, CreatedAt: r.CreatedAt}
}
