package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestHubJoinCapacityScenario(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	if _, err := hub.CreateRoom(ctx, RoomSpec{ID: "doc-1", DocumentType: DocumentText, Title: "Doc", MaxParticipants: 2}); err != nil {
		t.Fatalf("create room: %v", err)
	}

	alice, _ := join(t, hub, "doc-1", "a")
	state := mustEvent(t, alice.Events, EventRoomState)
	if n := len(state.Snapshot.Participants); n != 1 || state.Snapshot.Participants[0].UserID != "a" {
		t.Fatalf("alice should only see herself, got %+v", state.Snapshot.Participants)
	}

	bob, _ := join(t, hub, "doc-1", "b")
	joinEv := mustEvent(t, alice.Events, EventUserJoin)
	if joinEv.User != "b" || joinEv.Count != 2 || joinEv.Participant == nil || joinEv.Participant.DisplayName != "b" {
		t.Fatalf("unexpected join event: %+v", joinEv)
	}
	bobState := mustEvent(t, bob.Events, EventRoomState)
	if len(bobState.Snapshot.Participants) != 2 || bobState.Snapshot.Participants[0].UserID != "a" {
		t.Fatalf("bob should see alice, got %+v", bobState.Snapshot.Participants)
	}

	carol := NewClient("s-c", "c", "carol", 8)
	if _, err := hub.Open(ctx, "doc-1", Identity{UserID: "c"}, carol); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	stats, err := hub.Stats(ctx, "doc-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveUsers != 2 || len(stats.Users) != 2 {
		t.Fatalf("expected 2 participants, got %d (%d presence)", stats.ActiveUsers, len(stats.Users))
	}
	if stats.Room.CreatorID != "a" {
		t.Fatalf("expected first joiner as creator, got %q", stats.Room.CreatorID)
	}
}

func TestHubChatDeliveredToEveryoneIncludingSender(t *testing.T) {
	hub := startHub(t, Options{})

	alice, aliceSess := join(t, hub, "doc-1", "a")
	bob, _ := join(t, hub, "doc-1", "b")
	joined := mustEvent(t, alice.Events, EventUserJoin)

	dispatch(t, aliceSess, Command{Kind: CommandChatMessage, Text: "hello"})

	fromA := mustEvent(t, alice.Events, EventChatMessage)
	fromB := mustEvent(t, bob.Events, EventChatMessage)
	if fromA.Message.ID == "" || fromA.Message.ID != fromB.Message.ID {
		t.Fatalf("message ids differ: %q vs %q", fromA.Message.ID, fromB.Message.ID)
	}
	if fromB.Message.Body != "hello" || fromB.Message.UserID != "a" || fromB.Message.Kind != MessageKindMessage {
		t.Fatalf("unexpected message: %+v", fromB.Message)
	}
	if fromB.Timestamp.Before(joined.Timestamp) {
		t.Fatalf("chat timestamp %v earlier than join %v", fromB.Timestamp, joined.Timestamp)
	}
}

func TestHubSelfExclusion(t *testing.T) {
	hub := startHub(t, Options{})

	alice, aliceSess := join(t, hub, "doc-1", "a")
	bob, _ := join(t, hub, "doc-1", "b")
	mustEvent(t, alice.Events, EventUserJoin)
	mustEvent(t, bob.Events, EventRoomState)

	cmds := []Command{
		{Kind: CommandCursorMove, Cursor: json.RawMessage(`{"line":1,"ch":4}`)},
		{Kind: CommandTextChange, Change: ChangeInput{Type: ChangeInsert, Position: 4, Content: "x", Length: 1}},
		{Kind: CommandUserTyping, Typing: true},
		{Kind: CommandSelectionChange, Selection: json.RawMessage(`{"from":1,"to":3}`)},
	}
	wantKinds := []EventKind{EventCursorMove, EventTextChange, EventUserTyping, EventSelectionChange}
	for _, cmd := range cmds {
		dispatch(t, aliceSess, cmd)
	}
	for _, kind := range wantKinds {
		ev := mustNextEvent(t, bob.Events)
		if ev.Kind != kind || ev.User != "a" {
			t.Fatalf("bob expected %v from a, got %+v", kind, ev)
		}
	}

	// A chat message is the first thing alice sees again: nothing of her own was echoed.
	dispatch(t, aliceSess, Command{Kind: CommandChatMessage, Text: "sentinel"})
	if ev := mustNextEvent(t, alice.Events); ev.Kind != EventChatMessage {
		t.Fatalf("alice received her own event %v", ev.Kind)
	}

	stats, err := hub.Stats(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, p := range stats.Users {
		if p.UserID != "a" {
			continue
		}
		if p.Status != StatusTyping || string(p.Cursor) != `{"line":1,"ch":4}` || string(p.Selection) != `{"from":1,"to":3}` {
			t.Fatalf("presence not updated: %+v", p)
		}
	}
}

func TestHubAbruptDisconnectHealsOnNextBroadcast(t *testing.T) {
	hub := startHub(t, Options{})

	alice, _ := join(t, hub, "doc-1", "a")
	bob, bobSess := join(t, hub, "doc-1", "b")
	mustEvent(t, bob.Events, EventRoomState)

	// The transport went away without telling the room.
	alice.Close("connection reset")

	dispatch(t, bobSess, Command{Kind: CommandCursorMove, Cursor: json.RawMessage(`1`)})

	leave := mustEvent(t, bob.Events, EventUserLeave)
	if leave.User != "a" || leave.Count != 1 {
		t.Fatalf("unexpected leave event: %+v", leave)
	}
	stats, err := hub.Stats(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveUsers != 1 || len(stats.Users) != 1 {
		t.Fatalf("expected 1 active user, got %d", stats.ActiveUsers)
	}
}

func TestHubPartialFailureIsolation(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	sender, senderSess := join(t, hub, "doc-1", "sender")
	others := make([]*Client, 0, 3)
	for i := range 3 {
		c, _ := join(t, hub, "doc-1", fmt.Sprintf("u%d", i))
		others = append(others, c)
	}

	// One slot, immediately filled by ROOM_STATE and never drained.
	slow := NewClient("s-slow", "slow", "slow", 1)
	slowSess, err := hub.Open(ctx, "doc-1", Identity{UserID: "slow"}, slow)
	if err != nil {
		t.Fatalf("open slow: %v", err)
	}

	dispatch(t, senderSess, Command{Kind: CommandChatMessage, Text: "ping"})

	for _, c := range append([]*Client{sender}, others...) {
		ev := mustEvent(t, c.Events, EventChatMessage)
		if ev.Message.Body != "ping" {
			t.Fatalf("unexpected message for %s: %+v", c.UserID, ev.Message)
		}
		leave := mustEvent(t, c.Events, EventUserLeave)
		if leave.User != "slow" || leave.Count != 4 {
			t.Fatalf("unexpected leave for %s: %+v", c.UserID, leave)
		}
	}

	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatalf("slow client was not closed")
	}
	if slow.CloseReason() != CloseReasonSlow {
		t.Fatalf("unexpected close reason %q", slow.CloseReason())
	}

	// Concurrent explicit closes after the implicit one must not emit another departure.
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slowSess.Close()
			_ = hub.Close(ctx, "doc-1", "slow")
		}()
	}
	wg.Wait()

	dispatch(t, senderSess, Command{Kind: CommandChatMessage, Text: "after"})
	watcher := others[0]
	for {
		ev := mustNextEvent(t, watcher.Events)
		if ev.Kind == EventUserLeave {
			t.Fatalf("duplicate leave event: %+v", ev)
		}
		if ev.Kind == EventChatMessage && ev.Message.Body == "after" {
			break
		}
	}

	stats, err := hub.Stats(ctx, "doc-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveUsers != 4 || len(stats.Users) != stats.ActiveUsers {
		t.Fatalf("connections/presence mismatch: %d vs %d", stats.ActiveUsers, len(stats.Users))
	}
}

func TestHubCloseIsIdempotent(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	_, aliceSess := join(t, hub, "doc-1", "a")
	bob, bobSess := join(t, hub, "doc-1", "b")
	mustEvent(t, bob.Events, EventRoomState)

	aliceSess.Close()
	aliceSess.Close()
	if err := hub.Close(ctx, "doc-1", "a"); err != nil {
		t.Fatalf("close absent session: %v", err)
	}
	if err := hub.Close(ctx, "ghost-room", "a"); err != nil {
		t.Fatalf("close in unknown room: %v", err)
	}

	leave := mustEvent(t, bob.Events, EventUserLeave)
	if leave.User != "a" || leave.Count != 1 {
		t.Fatalf("unexpected leave: %+v", leave)
	}

	dispatch(t, bobSess, Command{Kind: CommandChatMessage, Text: "still here"})
	if ev := mustNextEvent(t, bob.Events); ev.Kind != EventChatMessage {
		t.Fatalf("expected chat after single leave, got %v", ev.Kind)
	}
}

func TestHubRejoinSupersedesOldConnection(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	if _, err := hub.CreateRoom(ctx, RoomSpec{ID: "doc-1", MaxParticipants: 1}); err != nil {
		t.Fatalf("create room: %v", err)
	}
	first, firstSess := join(t, hub, "doc-1", "a")

	second := NewClient("s-a2", "a", "a", 8)
	if _, err := hub.Open(ctx, "doc-1", Identity{UserID: "a"}, second); err != nil {
		t.Fatalf("rejoin should not hit capacity: %v", err)
	}
	<-first.Done()
	if first.CloseReason() != CloseReasonSuperseded {
		t.Fatalf("unexpected close reason %q", first.CloseReason())
	}

	// The stale session closing late must not evict the new connection.
	firstSess.Close()

	stats, err := hub.Stats(ctx, "doc-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveUsers != 1 {
		t.Fatalf("expected the new connection to stay, got %d users", stats.ActiveUsers)
	}
}

func TestHubDuplicateDeliveryIsDropped(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	alice, sess := join(t, hub, "doc-1", "a")
	for range 3 {
		dispatch(t, sess, Command{Kind: CommandChatMessage, ClientID: "m-1", Text: "once"})
		dispatch(t, sess, Command{Kind: CommandTextChange, ClientID: "c-1", Change: ChangeInput{Type: ChangeDelete, Position: 0, Length: 2}})
	}
	dispatch(t, sess, Command{Kind: CommandChatMessage, ClientID: "m-2", Text: "twice"})
	mustEvent(t, alice.Events, EventChatMessage)

	msgs, err := hub.RecentMessages(ctx, "doc-1", 10)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Body != "once" || msgs[1].Body != "twice" {
		t.Fatalf("unexpected chat log: %+v", msgs)
	}
	changes, err := hub.RecentChanges(ctx, "doc-1", 10)
	if err != nil {
		t.Fatalf("recent changes: %v", err)
	}
	if len(changes) != 1 || changes[0].Type != ChangeDelete {
		t.Fatalf("unexpected change log: %+v", changes)
	}
}

func TestHubChatLogIsBounded(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	client := NewClient("s-a", "a", "a", 4096)
	sess, err := hub.Open(ctx, "doc-1", Identity{UserID: "a"}, client)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := range chatLogCap + 5 {
		dispatch(t, sess, Command{Kind: CommandChatMessage, Text: fmt.Sprintf("msg-%d", i)})
	}

	msgs, err := hub.RecentMessages(ctx, "doc-1", 0)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(msgs) != chatLogCap {
		t.Fatalf("expected %d messages, got %d", chatLogCap, len(msgs))
	}
	if msgs[0].Body != "msg-5" || msgs[len(msgs)-1].Body != fmt.Sprintf("msg-%d", chatLogCap+4) {
		t.Fatalf("unexpected window: first=%q last=%q", msgs[0].Body, msgs[len(msgs)-1].Body)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			t.Fatalf("timestamps out of order at %d", i)
		}
	}

	stats, err := hub.Stats(ctx, "doc-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalMessages != chatLogCap+5 || stats.RetainedMessages != chatLogCap {
		t.Fatalf("unexpected counters: %+v", stats)
	}
}

func TestHubSnapshotIsWindowed(t *testing.T) {
	hub := startHub(t, Options{})

	writer := NewClient("s-w", "w", "w", 4096)
	sess, err := hub.Open(context.Background(), "doc-1", Identity{UserID: "w"}, writer)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := range 120 {
		dispatch(t, sess, Command{Kind: CommandChatMessage, Text: fmt.Sprintf("m%d", i)})
		dispatch(t, sess, Command{Kind: CommandTextChange, Change: ChangeInput{Type: ChangeInsert, Position: i, Content: "x", Length: 1}})
	}

	reader, _ := join(t, hub, "doc-1", "r")
	state := mustEvent(t, reader.Events, EventRoomState)
	if len(state.Snapshot.Messages) != snapshotMessages || len(state.Snapshot.Changes) != snapshotChanges {
		t.Fatalf("unexpected snapshot sizes: %d messages, %d changes", len(state.Snapshot.Messages), len(state.Snapshot.Changes))
	}
	if last := state.Snapshot.Messages[snapshotMessages-1].Body; last != "m119" {
		t.Fatalf("snapshot should end with newest message, got %q", last)
	}
}

func TestHubUnknownCommandKeepsSession(t *testing.T) {
	hub := startHub(t, Options{})

	alice, sess := join(t, hub, "doc-1", "a")
	dispatch(t, sess, Command{Kind: CommandKind(99)})

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeMalformedEvent {
		t.Fatalf("expected malformed_event error, got %+v", ev)
	}

	dispatch(t, sess, Command{Kind: CommandChatMessage, Text: "still open"})
	mustEvent(t, alice.Events, EventChatMessage)
}

func TestHubStatsUnknownRoom(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	if _, err := hub.Stats(ctx, "ghost"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := hub.RecentMessages(ctx, "ghost", 5); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if err := hub.Remove("ghost"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestHubCreateRoomValidation(t *testing.T) {
	hub := startHub(t, Options{DefaultMaxParticipants: 3})
	ctx := context.Background()

	if _, err := hub.CreateRoom(ctx, RoomSpec{DocumentType: "video"}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	info, err := hub.CreateRoom(ctx, RoomSpec{DocumentID: "d-9", DocumentType: DocumentCode})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if info.ID == "" || info.MaxParticipants != 3 || info.Title != info.ID || !info.IsActive {
		t.Fatalf("unexpected defaults: %+v", info)
	}
	if _, err := hub.CreateRoom(ctx, RoomSpec{ID: info.ID}); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists, got %v", err)
	}
}

func TestHubRemoveAndPruneIdle(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	alice, _ := join(t, hub, "busy", "a")
	if _, err := hub.CreateRoom(ctx, RoomSpec{ID: "empty"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	removed := hub.PruneIdle(ctx, 0)
	if len(removed) != 1 || removed[0] != "empty" {
		t.Fatalf("expected only the empty room pruned, got %v", removed)
	}

	if err := hub.Remove("busy"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	<-alice.Done()
	if alice.CloseReason() != CloseReasonRoomClosed {
		t.Fatalf("unexpected close reason %q", alice.CloseReason())
	}
	rooms, err := hub.Rooms(ctx)
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	if len(rooms) != 0 {
		t.Fatalf("expected no rooms, got %d", len(rooms))
	}
}

func TestHubRoomsAreIndependent(t *testing.T) {
	hub := startHub(t, Options{})

	a, aSess := join(t, hub, "room-1", "a")
	b, _ := join(t, hub, "room-2", "b")
	mustEvent(t, b.Events, EventRoomState)

	dispatch(t, aSess, Command{Kind: CommandChatMessage, Text: "only room-1"})
	mustEvent(t, a.Events, EventChatMessage)

	select {
	case ev := <-b.Events:
		t.Fatalf("room-2 received %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubOpenWithClosedClientIsNotAnnounced(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	bob, bobSess := join(t, hub, "doc-1", "b")
	mustEvent(t, bob.Events, EventRoomState)

	dead := NewClient("s-dead", "dead", "dead", 8)
	dead.Close("connection reset")
	sess, err := hub.Open(ctx, "doc-1", Identity{UserID: "dead"}, dead)
	if !errors.Is(err, ErrConnectionClosed) || sess != nil {
		t.Fatalf("expected ErrConnectionClosed and no session, got %v / %v", err, sess)
	}

	// Bob hears nothing about the dead connection: his next event is his own chat.
	dispatch(t, bobSess, Command{Kind: CommandChatMessage, Text: "anyone?"})
	if ev := mustNextEvent(t, bob.Events); ev.Kind != EventChatMessage {
		t.Fatalf("expected chat, got kind %v for %q", ev.Kind, ev.User)
	}

	stats, err := hub.Stats(ctx, "doc-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveUsers != 1 || stats.Room.CreatorID != "b" {
		t.Fatalf("unexpected stats: %d users, creator %q", stats.ActiveUsers, stats.Room.CreatorID)
	}
}

func TestHubOpenAbortsWhenRoomStateCannotBeDelivered(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	bob, bobSess := join(t, hub, "doc-1", "b")
	mustEvent(t, bob.Events, EventRoomState)

	full := NewClient("s-full", "c", "c", 1)
	full.events <- &Event{Kind: EventChatMessage}
	if _, err := hub.Open(ctx, "doc-1", Identity{UserID: "c"}, full); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
	<-full.Done()

	dispatch(t, bobSess, Command{Kind: CommandChatMessage, Text: "still here"})
	if ev := mustNextEvent(t, bob.Events); ev.Kind != EventChatMessage {
		t.Fatalf("expected chat, got kind %v for %q", ev.Kind, ev.User)
	}

	// A failed rejoin leaves the user gone, and the others are told once.
	alice, _ := join(t, hub, "doc-1", "a")
	mustEvent(t, bob.Events, EventUserJoin)

	stuck := NewClient("s-a2", "a", "a", 1)
	stuck.events <- &Event{Kind: EventChatMessage}
	if _, err := hub.Open(ctx, "doc-1", Identity{UserID: "a"}, stuck); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
	<-alice.Done()

	leave := mustNextEvent(t, bob.Events)
	if leave.Kind != EventUserLeave || leave.User != "a" || leave.Count != 1 {
		t.Fatalf("unexpected event after failed rejoin: %+v", leave)
	}
	stats, err := hub.Stats(ctx, "doc-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveUsers != 1 || len(stats.Users) != 1 {
		t.Fatalf("expected only bob, got %d", stats.ActiveUsers)
	}
}

func TestHubCursorMoveResetsTypingStatus(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	_, aliceSess := join(t, hub, "doc-1", "a")

	dispatch(t, aliceSess, Command{Kind: CommandUserTyping, Typing: true})
	stats, err := hub.Stats(ctx, "doc-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got := stats.Users[0].Status; got != StatusTyping {
		t.Fatalf("expected typing, got %q", got)
	}

	dispatch(t, aliceSess, Command{Kind: CommandCursorMove, Cursor: json.RawMessage(`{"line":2}`)})
	stats, err = hub.Stats(ctx, "doc-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got := stats.Users[0].Status; got != StatusActive {
		t.Fatalf("expected active after cursor move, got %q", got)
	}
}

func TestHubQueriesOnStoppedRoomReportNotFound(t *testing.T) {
	hub := startHub(t, Options{})
	ctx := context.Background()

	// Stopped but not yet unregistered, as during a concurrent Remove.
	r := hub.GetOrCreate("closing")
	r.close()

	if _, err := hub.Stats(ctx, "closing"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("stats: expected ErrRoomNotFound, got %v", err)
	}
	if _, err := hub.RecentMessages(ctx, "closing", 5); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("messages: expected ErrRoomNotFound, got %v", err)
	}
	if _, err := hub.RecentChanges(ctx, "closing", 5); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("changes: expected ErrRoomNotFound, got %v", err)
	}
	rooms, err := hub.Rooms(ctx)
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	if len(rooms) != 0 {
		t.Fatalf("expected stopped room to be skipped, got %d", len(rooms))
	}
}

func TestHubRefusesRoomsAfterStop(t *testing.T) {
	hub := NewHub(Options{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	if r := hub.GetOrCreate("late"); r == nil || r.ID() != "late" {
		t.Fatalf("expected a detached room, got %v", r)
	}
	if _, err := hub.Get("late"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("late room must not be registered, got %v", err)
	}
	client := NewClient("s-a", "a", "a", 8)
	if _, err := hub.Open(context.Background(), "late", Identity{UserID: "a"}, client); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("expected ErrRoomClosed, got %v", err)
	}
	if _, err := hub.CreateRoom(context.Background(), RoomSpec{ID: "later"}); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("expected ErrRoomClosed, got %v", err)
	}
}
