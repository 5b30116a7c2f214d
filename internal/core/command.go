package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandChatMessage appends to the chat log and is delivered to everyone, sender included.
	CommandChatMessage CommandKind = iota
	// CommandCursorMove updates the sender's cursor.
	CommandCursorMove
	// CommandTextChange appends to the change log.
	CommandTextChange
	// CommandUserTyping toggles the sender's typing status.
	CommandUserTyping
	// CommandSelectionChange updates the sender's selection.
	CommandSelectionChange
)

func (k CommandKind) String() string {
	switch k {
	case CommandChatMessage:
		return "chat_message"
	case CommandCursorMove:
		return "cursor_move"
	case CommandTextChange:
		return "text_change"
	case CommandUserTyping:
		return "user_typing"
	case CommandSelectionChange:
		return "selection_change"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
// ClientID, when set, is used to drop redelivered chat messages and changes.
type Command struct {
	Kind      CommandKind
	ClientID  string
	Text      string
	MsgKind   MessageKind
	Cursor    json.RawMessage
	Selection json.RawMessage
	Typing    bool
	Change    ChangeInput
}

// ChangeInput is the client-supplied part of a DocumentChange.
type ChangeInput struct {
	Type     ChangeType
	Position int
	Content  string
	Length   int
}
