package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wirecollab-server/internal/store"
)

// Schema creates the tables used by SQLiteStore. It is safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id               TEXT PRIMARY KEY,
	document_id      TEXT NOT NULL,
	document_type    TEXT NOT NULL,
	title            TEXT NOT NULL,
	creator_id       TEXT NOT NULL DEFAULT '',
	max_participants INTEGER NOT NULL,
	created_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	room_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	user_name  TEXT NOT NULL,
	body       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_room ON messages (room_id, seq);

CREATE TABLE IF NOT EXISTS changes (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	room_id     TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	change_type TEXT NOT NULL,
	position    INTEGER NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	length      INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_changes_room ON changes (room_id, seq);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New creates a new SQLite store and applies Schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies Schema to db.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== RoomStore implementation ====

// SaveRoom inserts or replaces room metadata.
func (s *SQLiteStore) SaveRoom(ctx context.Context, room *store.Room) error {
	query := `
		INSERT INTO rooms (id, document_id, document_type, title, creator_id, max_participants, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			document_type = excluded.document_type,
			title = excluded.title,
			creator_id = excluded.creator_id,
			max_participants = excluded.max_participants
	`
	_, err := s.db.ExecContext(ctx, query,
		room.ID, room.DocumentID, room.DocumentType, room.Title, room.CreatorID, room.MaxParticipants, room.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save room: %w", err)
	}
	return nil
}

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	query := `
		SELECT id, document_id, document_type, title, creator_id, max_participants, created_at
		FROM rooms
		WHERE id = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID,
		&room.DocumentID,
		&room.DocumentType,
		&room.Title,
		&room.CreatorID,
		&room.MaxParticipants,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &room, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a chat message. A message with a known ID is ignored.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT OR IGNORE INTO messages (id, room_id, user_id, user_name, body, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.RoomID, msg.UserID, msg.UserName, msg.Body, msg.Kind, msg.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns up to limit most recent messages of a room, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID string, limit int) ([]*store.Message, error) {
	query := `
		SELECT id, room_id, user_id, user_name, body, kind, created_at
		FROM messages
		WHERE room_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.UserID, &msg.UserName, &msg.Body, &msg.Kind, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	slices.Reverse(messages)
	return messages, nil
}

// ==== ChangeStore implementation ====

// SaveChange persists a document change. A change with a known ID is ignored.
func (s *SQLiteStore) SaveChange(ctx context.Context, change *store.Change) error {
	query := `
		INSERT OR IGNORE INTO changes (id, room_id, user_id, change_type, position, content, length, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		change.ID, change.RoomID, change.UserID, change.ChangeType, change.Position, change.Content, change.Length, change.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert change: %w", err)
	}
	return nil
}

// ListChanges returns up to limit most recent changes of a room, oldest first.
func (s *SQLiteStore) ListChanges(ctx context.Context, roomID string, limit int) ([]*store.Change, error) {
	query := `
		SELECT id, room_id, user_id, change_type, position, content, length, created_at
		FROM changes
		WHERE room_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var changes []*store.Change
	for rows.Next() {
		var c store.Change
		if err := rows.Scan(&c.ID, &c.RoomID, &c.UserID, &c.ChangeType, &c.Position, &c.Content, &c.Length, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		changes = append(changes, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}

	slices.Reverse(changes)
	return changes, nil
}

// sqlLimit maps a non-positive limit to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
