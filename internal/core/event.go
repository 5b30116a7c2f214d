package core

import (
	"encoding/json"
	"time"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventChatMessage carries a new chat log entry.
	EventChatMessage EventKind = iota
	// EventCursorMove carries another participant's cursor.
	EventCursorMove
	// EventTextChange carries a new change log entry.
	EventTextChange
	// EventUserTyping carries another participant's typing status.
	EventUserTyping
	// EventSelectionChange carries another participant's selection.
	EventSelectionChange
	// EventRoomState delivers the initial snapshot to a joining client.
	EventRoomState
	// EventUserJoin notifies clients about a user joining a room.
	EventUserJoin
	// EventUserLeave notifies clients about a user leaving a room.
	EventUserLeave
	// EventError notifies a single client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in a room.
type Event struct {
	Kind      EventKind
	Room      string
	User      string
	Timestamp time.Time

	Message     *ChatMessage    // EventChatMessage
	Change      *DocumentChange // EventTextChange
	Cursor      json.RawMessage // EventCursorMove
	Selection   json.RawMessage // EventSelectionChange
	Status      PresenceStatus  // EventUserTyping
	Participant *Presence       // EventUserJoin
	Count       int             // EventUserJoin, EventUserLeave
	Snapshot    *Snapshot       // EventRoomState
	Error       *CoreError      // EventError
}

// Snapshot is the bounded initial state sent on join.
type Snapshot struct {
	Room         RoomInfo
	Participants []Presence
	Messages     []ChatMessage
	Changes      []DocumentChange
}
