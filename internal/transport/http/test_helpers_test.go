package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecollab-server/internal/auth"
	"github.com/vovakirdan/wirecollab-server/internal/config"
	"github.com/vovakirdan/wirecollab-server/internal/core"
)

const testSecret = "test-secret"

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.MaxMessageBytes = 1 << 20
	cfg.JWTSecret = testSecret
	cfg.JWTIssuer = "test"
	cfg.JWTAudience = "test"
	return cfg
}

func testJWTConfig() *auth.JWTConfig {
	return &auth.JWTConfig{Secret: []byte(testSecret), Issuer: "test", Audience: "test", TTL: time.Hour}
}

func startTestServer(t *testing.T, cfg config.Config) (*httptest.Server, *core.Hub) {
	t.Helper()

	hub := core.NewHub(core.Options{DefaultMaxParticipants: cfg.DefaultMaxParticipants}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	disabledLogger := zerolog.New(nil)
	server := NewServer(hub, auth.NewJWTVerifier(testJWTConfig()), &cfg, &disabledLogger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})

	return ts, hub
}

func wsURL(ts *httptest.Server, path string) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + path
}

// frame is the decoded form of an outbound envelope.
type frame struct {
	Type      string          `json:"type"`
	UserID    string          `json:"userId"`
	RoomID    string          `json:"roomId"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// mustFrame reads frames until one of the given type arrives.
func mustFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) frame {
	t.Helper()

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if f.Type == typ {
			return f
		}
	}
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	msg := map[string]any{"type": typ, "payload": json.RawMessage(raw)}
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode payload: %v (%s)", err, raw)
	}
	return v
}
