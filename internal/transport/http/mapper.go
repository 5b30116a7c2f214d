package http

import (
	"github.com/samber/lo"

	"github.com/vovakirdan/wirecollab-server/internal/core"
	"github.com/vovakirdan/wirecollab-server/internal/proto"
)

func malformed(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeMalformedEvent, Msg: msg}
}

// inboundToCommand decodes and validates a client envelope. Anything that fails becomes a
// malformed_event error for the sender; the connection stays open.
func inboundToCommand(inbound proto.Inbound) (core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.TypeChatMessage:
		p, err := proto.Decode[proto.ChatMessagePayload](inbound.Payload)
		if err != nil {
			return core.Command{}, malformed(err.Error())
		}
		return core.Command{
			Kind:     core.CommandChatMessage,
			ClientID: p.ID,
			Text:     p.Message,
			MsgKind:  core.MessageKind(p.Kind),
		}, nil
	case proto.TypeCursorMove:
		p, err := proto.Decode[proto.CursorMovePayload](inbound.Payload)
		if err != nil {
			return core.Command{}, malformed(err.Error())
		}
		return core.Command{Kind: core.CommandCursorMove, Cursor: p.Position}, nil
	case proto.TypeTextChange:
		p, err := proto.Decode[proto.TextChangePayload](inbound.Payload)
		if err != nil {
			return core.Command{}, malformed(err.Error())
		}
		return core.Command{
			Kind:     core.CommandTextChange,
			ClientID: p.ID,
			Change: core.ChangeInput{
				Type:     core.ChangeType(p.ChangeType),
				Position: p.Position,
				Content:  p.Content,
				Length:   p.Length,
			},
		}, nil
	case proto.TypeUserTyping:
		p, err := proto.Decode[proto.UserTypingPayload](inbound.Payload)
		if err != nil {
			return core.Command{}, malformed(err.Error())
		}
		return core.Command{Kind: core.CommandUserTyping, Typing: p.IsTyping}, nil
	case proto.TypeSelectionChange:
		p, err := proto.Decode[proto.SelectionChangePayload](inbound.Payload)
		if err != nil {
			return core.Command{}, malformed(err.Error())
		}
		return core.Command{Kind: core.CommandSelectionChange, Selection: p.Selection}, nil
	default:
		return core.Command{}, malformed("unknown message type " + inbound.Type)
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	out := proto.Outbound{
		RoomID:    event.Room,
		UserID:    event.User,
		Timestamp: event.Timestamp,
	}
	switch event.Kind {
	case core.EventChatMessage:
		out.Type = proto.TypeChatMessage
		out.Payload = chatMessageDTO(*event.Message)
	case core.EventCursorMove:
		out.Type = proto.TypeCursorMove
		out.Payload = proto.CursorMove{Position: event.Cursor}
	case core.EventTextChange:
		out.Type = proto.TypeTextChange
		out.Payload = textChangeDTO(*event.Change)
	case core.EventUserTyping:
		out.Type = proto.TypeUserTyping
		out.Payload = proto.UserTyping{IsTyping: event.Status == core.StatusTyping, Status: string(event.Status)}
	case core.EventSelectionChange:
		out.Type = proto.TypeSelectionChange
		out.Payload = proto.SelectionChange{Selection: event.Selection}
	case core.EventRoomState:
		snap := event.Snapshot
		out.Type = proto.TypeRoomState
		out.Payload = proto.RoomState{
			Room:      roomDTO(snap.Room),
			Users:     lo.Map(snap.Participants, func(p core.Presence, _ int) proto.User { return userDTO(p) }),
			Messages:  lo.Map(snap.Messages, func(m core.ChatMessage, _ int) proto.ChatMessage { return chatMessageDTO(m) }),
			Changes:   lo.Map(snap.Changes, func(c core.DocumentChange, _ int) proto.TextChange { return textChangeDTO(c) }),
			RoomUsers: len(snap.Participants),
		}
	case core.EventUserJoin:
		out.Type = proto.TypeUserJoin
		out.Payload = proto.UserJoin{User: userDTO(*event.Participant), RoomUsers: event.Count}
	case core.EventUserLeave:
		out.Type = proto.TypeUserLeave
		out.Payload = proto.UserLeave{UserID: event.User, RoomUsers: event.Count}
	case core.EventError:
		out.Type = proto.TypeError
		if event.Error == nil {
			out.Payload = proto.Error{Code: "unknown", Msg: "unknown error"}
		} else {
			out.Payload = proto.Error{Code: event.Error.Code, Msg: event.Error.Message}
		}
	default:
		out.Type = proto.TypeError
		out.Payload = proto.Error{Code: "unknown", Msg: "unknown event"}
	}
	return out
}

func roomDTO(info core.RoomInfo) proto.Room {
	return proto.Room{
		ID:              info.ID,
		DocumentID:      info.DocumentID,
		DocumentType:    string(info.DocumentType),
		Title:           info.Title,
		CreatorID:       info.CreatorID,
		CreatedAt:       info.CreatedAt,
		MaxParticipants: info.MaxParticipants,
		IsActive:        info.IsActive,
	}
}

func userDTO(p core.Presence) proto.User {
	return proto.User{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Avatar:      p.Avatar,
		Color:       p.Color,
		Cursor:      p.Cursor,
		Selection:   p.Selection,
		Status:      string(p.Status),
		LastSeen:    p.LastSeen,
	}
}

func chatMessageDTO(m core.ChatMessage) proto.ChatMessage {
	return proto.ChatMessage{
		ID:        m.ID,
		UserID:    m.UserID,
		UserName:  m.UserName,
		Message:   m.Body,
		Kind:      string(m.Kind),
		Timestamp: m.Timestamp,
	}
}

func textChangeDTO(c core.DocumentChange) proto.TextChange {
	return proto.TextChange{
		ID:         c.ID,
		UserID:     c.UserID,
		ChangeType: string(c.Type),
		Position:   c.Position,
		Content:    c.Content,
		Length:     c.Length,
		Timestamp:  c.Timestamp,
	}
}

func statsDTO(st core.RoomStats) proto.RoomStats {
	return proto.RoomStats{
		Room:             roomDTO(st.Room),
		ActiveUsers:      st.ActiveUsers,
		TotalMessages:    st.TotalMessages,
		TotalChanges:     st.TotalChanges,
		RetainedMessages: st.RetainedMessages,
		RetainedChanges:  st.RetainedChanges,
		Users:            lo.Map(st.Users, func(p core.Presence, _ int) proto.User { return userDTO(p) }),
		LastActivity:     st.LastActivity,
	}
}
