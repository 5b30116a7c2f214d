package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound     = "room_not_found"
	ErrCodeCapacityExceeded = "capacity_exceeded"
	ErrCodeMalformedEvent   = "malformed_event"
	ErrCodeRoomClosed       = "room_closed"
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeRoomExists       = "room_exists"
	ErrCodeConnectionClosed = "connection_closed"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrCapacityExceeded = errors.New("room is full")
	ErrMalformedEvent   = errors.New("malformed event")
	ErrRoomClosed       = errors.New("room closed")
	ErrBadRequest       = errors.New("bad request")
	ErrRoomExists       = errors.New("room already exists")
	ErrConnectionClosed = errors.New("connection closed before join completed")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// ErrorCode maps a domain error to its wire code.
func ErrorCode(err error) string {
	var ce *CoreError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ce):
		return ce.Code
	case errors.Is(err, ErrRoomNotFound):
		return ErrCodeRoomNotFound
	case errors.Is(err, ErrCapacityExceeded):
		return ErrCodeCapacityExceeded
	case errors.Is(err, ErrMalformedEvent):
		return ErrCodeMalformedEvent
	case errors.Is(err, ErrRoomClosed):
		return ErrCodeRoomClosed
	case errors.Is(err, ErrRoomExists):
		return ErrCodeRoomExists
	case errors.Is(err, ErrConnectionClosed):
		return ErrCodeConnectionClosed
	default:
		return ErrCodeBadRequest
	}
}
