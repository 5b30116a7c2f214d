package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecollab-server/internal/auth"
	"github.com/vovakirdan/wirecollab-server/internal/config"
	"github.com/vovakirdan/wirecollab-server/internal/core"
	"github.com/vovakirdan/wirecollab-server/internal/proto"
	"github.com/vovakirdan/wirecollab-server/internal/utils"
)

const wsPrefix = "/ws/"

// closedByRoom is returned by the write loop when the room disconnected the client.
type closedByRoom struct{ reason string }

func (e closedByRoom) Error() string { return e.reason }

// WSHandler upgrades HTTP connections and bridges them to a core.Session.
type WSHandler struct {
	hub      *core.Hub
	verifier auth.Verifier
	cfg      *config.Config
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, verifier auth.Verifier, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, verifier: verifier, cfg: cfg, log: logger}
}

// ServeHTTP serves /ws/{room}.
func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	roomID, ok := roomFromPath(r.URL.Path)
	if !ok {
		writeJSON(w, stdhttp.StatusNotFound, ErrorResponse{Error: "room not found", Code: core.ErrCodeRoomNotFound})
		return
	}
	ident, err := h.identify(r)
	if err != nil {
		h.log.Debug().Err(err).Str("room_id", roomID).Msg("ws identity rejected")
		writeJSON(w, stdhttp.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: core.ErrCodeUnauthorized})
		return
	}
	h.serve(w, r, roomID, ident)
}

// roomFromPath extracts the single segment after wsPrefix.
func roomFromPath(path string) (string, bool) {
	roomID := strings.TrimPrefix(path, wsPrefix)
	if roomID == path || roomID == "" || strings.Contains(roomID, "/") {
		return "", false
	}
	return roomID, true
}

func writeJSON(w stdhttp.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// identify resolves who is connecting. A presented token must verify; without one a guest
// identity is built from query parameters unless tokens are required.
func (h *WSHandler) identify(r *stdhttp.Request) (core.Identity, error) {
	token, err := bearerToken(r)
	switch {
	case err == nil:
		if h.verifier == nil {
			return core.Identity{}, errors.New("token authentication disabled")
		}
		ident, err := h.verifier.Verify(r.Context(), token)
		if err != nil {
			return core.Identity{}, errors.New("invalid token")
		}
		return ident, nil
	case !errors.Is(err, errMissingToken):
		return core.Identity{}, err
	case h.cfg.JWTRequired:
		return core.Identity{}, err
	}

	q := r.URL.Query()
	ident := core.Identity{
		UserID:      q.Get("user"),
		DisplayName: q.Get("name"),
		Avatar:      q.Get("avatar"),
	}
	if ident.UserID == "" {
		ident.UserID = "guest-" + utils.NewID()
	}
	return ident, nil
}

func (h *WSHandler) serve(w stdhttp.ResponseWriter, r *stdhttp.Request, roomID string, ident core.Identity) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	logger := h.log.With().Str("room_id", roomID).Str("user_id", ident.UserID).Logger()
	client := core.NewClient(utils.NewID(), ident.UserID, ident.DisplayName, h.cfg.ClientBufferSize)
	logger = logger.With().Str("session_id", client.ID).Logger()

	sess, err := h.hub.Open(ctx, roomID, ident, client)
	if err != nil {
		code := core.ErrorCode(err)
		logger.Info().Err(err).Str("code", code).Msg("ws join rejected")
		_ = h.write(ctx, conn, proto.Outbound{
			Type:      proto.TypeError,
			RoomID:    roomID,
			UserID:    ident.UserID,
			Payload:   proto.Error{Code: code, Msg: err.Error()},
			Timestamp: time.Now(),
		})
		status := websocket.StatusPolicyViolation
		if errors.Is(err, core.ErrCapacityExceeded) {
			status = websocket.StatusTryAgainLater
		}
		conn.Close(status, code)
		return
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess, logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	var byRoom closedByRoom
	switch {
	case errors.As(err, &byRoom):
		status, reason = closeStatusFor(byRoom.reason), byRoom.reason
		logger.Info().Str("reason", reason).Msg("ws closed by room")
	case err != nil && !errors.Is(err, context.Canceled):
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func closeStatusFor(reason string) websocket.StatusCode {
	switch reason {
	case core.CloseReasonSlow:
		return websocket.StatusPolicyViolation
	case core.CloseReasonRoomClosed:
		return websocket.StatusGoingAway
	default:
		return websocket.StatusNormalClosure
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session, logger zerolog.Logger) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("read ws inbound")
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			logger.Warn().Err(err).Msg("malformed ws frame")
			if err := h.writeError(ctx, conn, sess, &proto.Error{Code: core.ErrCodeMalformedEvent, Msg: "invalid json"}); err != nil {
				return err
			}
			continue
		}

		if inbound.Type == proto.TypePing {
			pong := proto.Outbound{Type: proto.TypePong, RoomID: sess.RoomID, UserID: sess.UserID, Timestamp: time.Now()}
			if err := h.write(ctx, conn, pong); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			logger.Warn().Str("type", inbound.Type).Str("error", protoErr.Msg).Msg("malformed event dropped")
			if err := h.writeError(ctx, conn, sess, protoErr); err != nil {
				return err
			}
			continue
		}
		if err := sess.Dispatch(ctx, cmd); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger zerolog.Logger) error {
	for {
		select {
		case event := <-client.Events:
			if err := h.write(ctx, conn, outboundFromEvent(event)); err != nil {
				logger.Warn().Err(err).Msg("write ws event")
				return err
			}
		case <-client.Done():
			// deliver what the room queued before letting go
			for {
				select {
				case event := <-client.Events:
					if err := h.write(ctx, conn, outboundFromEvent(event)); err != nil {
						return err
					}
				default:
					return closedByRoom{reason: client.CloseReason()}
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, sess *core.Session, e *proto.Error) error {
	return h.write(ctx, conn, proto.Outbound{
		Type:      proto.TypeError,
		RoomID:    sess.RoomID,
		UserID:    sess.UserID,
		Payload:   e,
		Timestamp: time.Now(),
	})
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, out proto.Outbound) error {
	if h.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.WriteTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, conn, out)
}
