package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the application's statements against a DBTX.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// RoomNote is a row of room_notes.
type RoomNote struct {
	ID        uuid.UUID
	RoomID    string
	AuthorID  string
	Message   string
	CreatedAt time.Time
}

const isModerator = `SELECT EXISTS (SELECT 1 FROM moderators WHERE user_id = $1)`

// IsModerator reports whether userID holds moderator standing.
func (q *Queries) IsModerator(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := q.db.QueryRow(ctx, isModerator, userID).Scan(&ok)
	return ok, err
}

const grantModerator = `INSERT INTO moderators (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

// GrantModerator gives userID moderator standing. Granting twice is a no-op.
func (q *Queries) GrantModerator(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, grantModerator, userID)
	return err
}

const listRoomNotes = `
SELECT id, room_id, author_id, message, created_at
FROM room_notes
WHERE room_id = $1
ORDER BY created_at, id
LIMIT $2`

// ListRoomNotes returns up to limit notes of roomID, oldest first.
func (q *Queries) ListRoomNotes(ctx context.Context, roomID string, limit int32) ([]RoomNote, error) {
	rows, err := q.db.Query(ctx, listRoomNotes, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RoomNote
	for rows.Next() {
		var i RoomNote
		if err := rows.Scan(&i.ID, &i.RoomID, &i.AuthorID, &i.Message, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertRoomNote = `
INSERT INTO room_notes (id, room_id, author_id, message)
VALUES ($1, $2, $3, $4)
RETURNING id, room_id, author_id, message, created_at`

// InsertRoomNoteParams are the values of a new note.
type InsertRoomNoteParams struct {
	ID       uuid.UUID
	RoomID   string
	AuthorID string
	Message  string
}

// InsertRoomNote stores a note and returns the stored row.
func (q *Queries) InsertRoomNote(ctx context.Context, arg InsertRoomNoteParams) (RoomNote, error) {
	var i RoomNote
	err := q.db.QueryRow(ctx, insertRoomNote, arg.ID, arg.RoomID, arg.AuthorID, arg.Message).
		Scan(&i.ID, &i.RoomID, &i.AuthorID, &i.Message, &i.CreatedAt)
	return i, err
}
