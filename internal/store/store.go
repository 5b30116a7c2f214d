package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Room represents persisted room metadata.
type Room struct {
	ID              string
	DocumentID      string
	DocumentType    string
	Title           string
	CreatorID       string
	MaxParticipants int
	CreatedAt       time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ID        string
	RoomID    string
	UserID    string
	UserName  string
	Body      string
	Kind      string
	CreatedAt time.Time
}

// Change represents a persisted document change.
type Change struct {
	ID         string
	RoomID     string
	UserID     string
	ChangeType string
	Position   int
	Content    string
	Length     int
	CreatedAt  time.Time
}

// RoomStore handles room persistence.
type RoomStore interface {
	// SaveRoom inserts or replaces room metadata.
	SaveRoom(ctx context.Context, room *Room) error

	// GetRoom retrieves a room by ID. Returns ErrNotFound if missing.
	GetRoom(ctx context.Context, id string) (*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message. Saving the same ID twice is a no-op.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns up to limit most recent messages of a room, oldest first.
	ListMessages(ctx context.Context, roomID string, limit int) ([]*Message, error)
}

// ChangeStore handles document change persistence.
type ChangeStore interface {
	// SaveChange persists a change. Saving the same ID twice is a no-op.
	SaveChange(ctx context.Context, change *Change) error

	// ListChanges returns up to limit most recent changes of a room, oldest first.
	ListChanges(ctx context.Context, roomID string, limit int) ([]*Change, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	MessageStore
	ChangeStore

	// Close releases the underlying connection.
	Close() error
}
