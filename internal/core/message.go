package core

import (
	"encoding/json"
	"time"
)

// MessageKind classifies chat log entries.
type MessageKind string

const (
	MessageKindMessage  MessageKind = "message"
	MessageKindActivity MessageKind = "activity"
	MessageKindSystem   MessageKind = "system"
)

// ChatMessage is an immutable entry of a room's chat log.
type ChatMessage struct {
	ID        string
	UserID    string
	UserName  string
	Body      string
	Kind      MessageKind
	Timestamp time.Time
}

// ChangeType describes a document edit operation.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeDelete ChangeType = "delete"
	ChangeFormat ChangeType = "format"
)

// Valid reports whether t is a known change type.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeInsert, ChangeDelete, ChangeFormat:
		return true
	}
	return false
}

// DocumentChange is an immutable entry of a room's change log.
// Changes are relayed in arrival order; no merge is attempted.
type DocumentChange struct {
	ID        string
	UserID    string
	Type      ChangeType
	Position  int
	Content   string
	Length    int
	Timestamp time.Time
}

// PresenceStatus is the activity state of a participant.
type PresenceStatus string

const (
	StatusActive PresenceStatus = "active"
	StatusIdle   PresenceStatus = "idle"
	StatusTyping PresenceStatus = "typing"
)

// Presence is the live, ephemeral state of a connected participant.
// Cursor and Selection are opaque to the server.
type Presence struct {
	UserID      string
	DisplayName string
	Avatar      string
	Color       string
	Cursor      json.RawMessage
	Selection   json.RawMessage
	Status      PresenceStatus
	LastSeen    time.Time
}

// Identity is a verified user supplied by the identity provider before a connection is admitted.
type Identity struct {
	UserID      string
	DisplayName string
	Avatar      string
	Color       string
}
