package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Session binds one live connection to one room membership.
type Session struct {
	ID       string
	RoomID   string
	UserID   string
	JoinedAt time.Time

	lastActivity atomic.Int64
	client       *Client
	room         *Room
}

// Client returns the connection bound to the session.
func (s *Session) Client() *Client { return s.client }

// LastActivity returns when the session last sent a command.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Session) touch(t time.Time) {
	s.lastActivity.Store(t.UnixNano())
}

// Dispatch hands a command to the room actor. Commands from one session are processed in the
// order they are dispatched.
func (s *Session) Dispatch(ctx context.Context, cmd Command) error {
	return s.room.post(ctx, func() { s.room.handle(s, cmd) })
}

// Close ends the session. It is safe to call more than once and concurrently with a
// disconnect triggered by a failed write; only the first one is observed by the room.
func (s *Session) Close() {
	err := s.room.do(context.Background(), func() {
		s.room.disconnect(s.UserID, s.client, CloseReasonLeft)
	})
	if err != nil && !errors.Is(err, ErrRoomClosed) {
		s.room.log.Warn().Err(err).Str("session_id", s.ID).Msg("close session")
	}
	s.client.Close(CloseReasonLeft)
}
