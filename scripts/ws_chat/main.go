package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirecollab-server/internal/proto"
)

// frame mirrors proto.Outbound with the payload left undecoded.
type frame struct {
	Type      string          `json:"type"`
	UserID    string          `json:"userId"`
	RoomID    string          `json:"roomId"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket base address")
	user := flag.String("user", "cli-user", "user id (guest mode)")
	name := flag.String("name", "", "display name (guest mode)")
	room := flag.String("room", "general", "room to join")
	token := flag.String("token", "", "JWT access token")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	query := url.Values{}
	if *token != "" {
		query.Set("token", *token)
	} else {
		query.Set("user", *user)
		if *name != "" {
			query.Set("name", *name)
		}
	}
	target := strings.TrimRight(*addr, "/") + "/" + url.PathEscape(*room) + "?" + query.Encode()

	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *user, *room)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch f.Type {
		case proto.TypeRoomState:
			var evt proto.RoomState
			if !decode(f, &evt) {
				continue
			}
			fmt.Printf("[room %s] %d online, %d messages in history\n", evt.Room.ID, evt.RoomUsers, len(evt.Messages))
			for _, msg := range evt.Messages {
				fmt.Printf("  %s: %s\n", msg.UserName, msg.Message)
			}
		case proto.TypeChatMessage:
			var evt proto.ChatMessage
			if !decode(f, &evt) {
				continue
			}
			fmt.Printf("[%s] %s: %s\n", f.RoomID, evt.UserName, evt.Message)
		case proto.TypeUserJoin:
			var evt proto.UserJoin
			if !decode(f, &evt) {
				continue
			}
			fmt.Printf("[room %s] %s joined (%d online)\n", f.RoomID, evt.User.DisplayName, evt.RoomUsers)
		case proto.TypeUserLeave:
			var evt proto.UserLeave
			if !decode(f, &evt) {
				continue
			}
			fmt.Printf("[room %s] %s left (%d online)\n", f.RoomID, evt.UserID, evt.RoomUsers)
		case proto.TypeError:
			var evt proto.Error
			if !decode(f, &evt) {
				continue
			}
			fmt.Printf("error %s: %s\n", evt.Code, evt.Msg)
		case proto.TypeCursorMove, proto.TypeUserTyping, proto.TypeSelectionChange, proto.TypePong:
			// presence noise
		default:
			fmt.Printf("event=%s from=%s payload=%s\n", f.Type, f.UserID, f.Payload)
		}
	}
}

func decode(f frame, v any) bool {
	if err := json.Unmarshal(f.Payload, v); err != nil {
		log.Printf("unmarshal %s: %v", f.Type, err)
		return false
	}
	return true
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			payload, err := json.Marshal(proto.ChatMessagePayload{Message: text})
			if err != nil {
				log.Printf("marshal msg: %v", err)
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.TypeChatMessage, Payload: payload}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
