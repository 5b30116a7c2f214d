package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirecollab-server/internal/core"
	"github.com/vovakirdan/wirecollab-server/internal/proto"
)

const defaultHistoryLimit = 50

// RoomHandlers provides HTTP handlers for room management endpoints.
type RoomHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	ID              string `json:"id" binding:"omitempty,max=128"`
	DocumentID      string `json:"document_id" binding:"omitempty,max=128"`
	DocumentType    string `json:"document_type" binding:"omitempty,oneof=text whiteboard presentation spreadsheet code"`
	Title           string `json:"title" binding:"omitempty,max=256"`
	MaxParticipants int    `json:"max_participants" binding:"omitempty,min=1,max=1000"`
}

// CreateRoom handles room creation.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	spec := core.RoomSpec{
		ID:              req.ID,
		DocumentID:      req.DocumentID,
		DocumentType:    core.DocumentType(req.DocumentType),
		Title:           req.Title,
		MaxParticipants: req.MaxParticipants,
	}
	if ident, ok := identityFrom(c); ok {
		spec.CreatorID = ident.UserID
	}

	info, err := h.hub.CreateRoom(c.Request.Context(), spec)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, roomDTO(info))
}

// ListRooms returns stats for every live room.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.hub.Rooms(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(rooms, func(st core.RoomStats, _ int) proto.RoomStats { return statsDTO(st) }))
}

// GetRoom returns the stats of one room.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	st, err := h.hub.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsDTO(st))
}

// ListMessages returns the newest retained chat messages.
// GET /api/rooms/:id/messages?limit=N
func (h *RoomHandlers) ListMessages(c *gin.Context) {
	limit, ok := h.limit(c)
	if !ok {
		return
	}
	msgs, err := h.hub.RecentMessages(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(msgs, func(m core.ChatMessage, _ int) proto.ChatMessage { return chatMessageDTO(m) }))
}

// ListChanges returns the newest retained document changes.
// GET /api/rooms/:id/changes?limit=N
func (h *RoomHandlers) ListChanges(c *gin.Context) {
	limit, ok := h.limit(c)
	if !ok {
		return
	}
	changes, err := h.hub.RecentChanges(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(changes, func(ch core.DocumentChange, _ int) proto.TextChange { return textChangeDTO(ch) }))
}

// DeleteRoom stops a room and disconnects its participants.
// DELETE /api/rooms/:id
func (h *RoomHandlers) DeleteRoom(c *gin.Context) {
	if err := h.hub.Remove(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoomHandlers) limit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultHistoryLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer", Code: core.ErrCodeBadRequest})
		return 0, false
	}
	return n, true
}

func (h *RoomHandlers) writeError(c *gin.Context, err error) {
	code := core.ErrorCode(err)
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found", Code: code})
	case errors.Is(err, core.ErrRoomExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "room already exists", Code: code})
	case errors.Is(err, core.ErrBadRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: code})
	case errors.Is(err, core.ErrRoomClosed):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "server shutting down", Code: code})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("room request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
