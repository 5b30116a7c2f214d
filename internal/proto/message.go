package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client. UserID and RoomID are
// accepted for symmetry but the server always uses the session's identity.
type Inbound struct {
	Type      string          `json:"type"`
	UserID    string          `json:"userId,omitempty"`
	RoomID    string          `json:"roomId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId,omitempty"`
	RoomID    string    `json:"roomId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	TypeChatMessage     = "CHAT_MESSAGE"
	TypeCursorMove      = "CURSOR_MOVE"
	TypeTextChange      = "TEXT_CHANGE"
	TypeUserTyping      = "USER_TYPING"
	TypeSelectionChange = "SELECTION_CHANGE"
	TypePing            = "PING"

	TypeRoomState = "ROOM_STATE"
	TypeUserJoin  = "USER_JOIN"
	TypeUserLeave = "USER_LEAVE"
	TypeError     = "ERROR"
	TypePong      = "PONG"
)

// ==== client payloads ====

// ChatMessagePayload carries a chat line. ID is an optional client id used to drop retries.
type ChatMessagePayload struct {
	ID      string `json:"id,omitempty" validate:"omitempty,max=128"`
	Message string `json:"message" validate:"required,max=4000"`
	Kind    string `json:"kind,omitempty" validate:"omitempty,oneof=message activity system"`
}

// CursorMovePayload carries an opaque cursor position.
type CursorMovePayload struct {
	Position json.RawMessage `json:"position" validate:"required"`
}

// TextChangePayload describes one edit. ID is an optional client id used to drop retries.
type TextChangePayload struct {
	ID         string `json:"id,omitempty" validate:"omitempty,max=128"`
	ChangeType string `json:"change_type" validate:"required,oneof=insert delete format"`
	Position   int    `json:"position" validate:"min=0"`
	Content    string `json:"content,omitempty" validate:"max=65536"`
	Length     int    `json:"length,omitempty" validate:"min=0"`
}

// UserTypingPayload toggles the typing indicator.
type UserTypingPayload struct {
	IsTyping bool `json:"is_typing"`
}

// SelectionChangePayload carries an opaque selection range.
type SelectionChangePayload struct {
	Selection json.RawMessage `json:"selection" validate:"required"`
}

// ==== server payloads ====

// Room is the public view of room metadata.
type Room struct {
	ID              string    `json:"id"`
	DocumentID      string    `json:"document_id"`
	DocumentType    string    `json:"document_type"`
	Title           string    `json:"title"`
	CreatorID       string    `json:"creator_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	MaxParticipants int       `json:"max_participants"`
	IsActive        bool      `json:"is_active"`
}

// User is the public view of a participant's presence.
type User struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	Avatar      string          `json:"avatar,omitempty"`
	Color       string          `json:"color"`
	Cursor      json.RawMessage `json:"cursor,omitempty"`
	Selection   json.RawMessage `json:"selection,omitempty"`
	Status      string          `json:"status"`
	LastSeen    time.Time       `json:"last_seen"`
}

// ChatMessage is a chat message as broadcast and replayed.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// TextChange is a document change as broadcast and replayed.
type TextChange struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ChangeType string    `json:"change_type"`
	Position   int       `json:"position"`
	Content    string    `json:"content,omitempty"`
	Length     int       `json:"length,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// CursorMove relays another participant's cursor.
type CursorMove struct {
	Position json.RawMessage `json:"position"`
}

// UserTyping relays another participant's status.
type UserTyping struct {
	IsTyping bool   `json:"is_typing"`
	Status   string `json:"status"`
}

// SelectionChange relays another participant's selection.
type SelectionChange struct {
	Selection json.RawMessage `json:"selection"`
}

// RoomState is the snapshot sent to a joining client.
type RoomState struct {
	Room      Room          `json:"room"`
	Users     []User        `json:"users"`
	Messages  []ChatMessage `json:"messages"`
	Changes   []TextChange  `json:"changes"`
	RoomUsers int           `json:"room_users"`
}

// UserJoin announces a new participant.
type UserJoin struct {
	User      User `json:"user"`
	RoomUsers int  `json:"room_users"`
}

// UserLeave announces a departed participant.
type UserLeave struct {
	UserID    string `json:"user_id"`
	RoomUsers int    `json:"room_users"`
}

// RoomStats is the dashboard view of a room.
type RoomStats struct {
	Room             Room      `json:"room"`
	ActiveUsers      int       `json:"active_users"`
	TotalMessages    int       `json:"total_messages"`
	TotalChanges     int       `json:"total_changes"`
	RetainedMessages int       `json:"retained_messages"`
	RetainedChanges  int       `json:"retained_changes"`
	Users            []User    `json:"users"`
	LastActivity     time.Time `json:"last_activity"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"message"`
}
