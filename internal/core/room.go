package core

import (
	"context"
	"fmt"
	"hash/fnv"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirecollab-server/internal/utils"
)

const (
	chatLogCap       = 200
	changeLogCap     = 1000
	snapshotMessages = 50
	snapshotChanges  = 100
	dedupeWindow     = 2048
	restoreTimeout   = 5 * time.Second
)

var palette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231", "#911eb4",
	"#42d4f4", "#f032e6", "#469990", "#9a6324", "#800000",
}

// DocumentType is the kind of document a room edits.
type DocumentType string

const (
	DocumentText         DocumentType = "text"
	DocumentWhiteboard   DocumentType = "whiteboard"
	DocumentPresentation DocumentType = "presentation"
	DocumentSpreadsheet  DocumentType = "spreadsheet"
	DocumentCode         DocumentType = "code"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentText, DocumentWhiteboard, DocumentPresentation, DocumentSpreadsheet, DocumentCode:
		return true
	}
	return false
}

// RoomInfo is the metadata of a room.
type RoomInfo struct {
	ID              string
	DocumentID      string
	DocumentType    DocumentType
	Title           string
	CreatorID       string
	CreatedAt       time.Time
	MaxParticipants int
	IsActive        bool
}

// RoomStats is the dashboard view of a room.
type RoomStats struct {
	Room             RoomInfo
	ActiveUsers      int
	TotalMessages    int
	TotalChanges     int
	RetainedMessages int
	RetainedChanges  int
	Users            []Presence
	LastActivity     time.Time
}

// Room owns the state of one collaboration room. All state below the channel fields is
// touched only by the goroutine running Room.run.
type Room struct {
	id          string
	inbox       chan func()
	stop        chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
	log         zerolog.Logger
	sendTimeout time.Duration
	persist     *persister
	explicit    bool

	info         RoomInfo
	conns        map[string]*Client
	sessions     map[string]*Session
	presence     map[string]*Presence
	chat         *Ring[ChatMessage]
	changes      *Ring[DocumentChange]
	seen         *recentIDs
	totalChats   int
	totalChanges int
	lastStamp    time.Time
	lastActivity time.Time
}

type roomConfig struct {
	info        RoomInfo
	explicit    bool
	inboxSize   int
	sendTimeout time.Duration
	persist     *persister
	log         *zerolog.Logger
}

func newRoom(cfg roomConfig) *Room {
	if cfg.inboxSize <= 0 {
		cfg.inboxSize = 256
	}
	now := time.Now()
	if cfg.info.CreatedAt.IsZero() {
		cfg.info.CreatedAt = now
	}
	cfg.info.IsActive = true
	return &Room{
		id:           cfg.info.ID,
		inbox:        make(chan func(), cfg.inboxSize),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		log:          cfg.log.With().Str("room_id", cfg.info.ID).Logger(),
		sendTimeout:  cfg.sendTimeout,
		persist:      cfg.persist,
		explicit:     cfg.explicit,
		info:         cfg.info,
		conns:        make(map[string]*Client),
		sessions:     make(map[string]*Session),
		presence:     make(map[string]*Presence),
		chat:         NewRing[ChatMessage](chatLogCap),
		changes:      NewRing[DocumentChange](changeLogCap),
		seen:         newRecentIDs(dedupeWindow),
		lastActivity: now,
	}
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

func (r *Room) run(ctx context.Context) {
	defer close(r.done)

	r.restore(ctx)

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case <-r.stop:
			r.shutdown()
			return
		case op := <-r.inbox:
			r.exec(op)
		}
	}
}

func (r *Room) exec(op func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Msg("room operation panicked")
		}
	}()
	op()
}

func (r *Room) close() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *Room) shutdown() {
	r.info.IsActive = false
	for uid, c := range r.conns {
		c.Close(CloseReasonRoomClosed)
		delete(r.conns, uid)
		delete(r.presence, uid)
		delete(r.sessions, uid)
	}
	r.log.Debug().Msg("room actor stopped")
}

// do runs fn on the room actor and waits for it to finish.
func (r *Room) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}
	select {
	case r.inbox <- op:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

// post queues fn on the room actor without waiting for it.
func (r *Room) post(ctx context.Context, fn func()) error {
	select {
	case r.inbox <- fn:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stamp returns a timestamp that never goes backwards within the room.
func (r *Room) stamp() time.Time {
	now := time.Now()
	if now.Before(r.lastStamp) {
		now = r.lastStamp
	}
	r.lastStamp = now
	r.lastActivity = now
	return now
}

// ==== Session Gateway ====

func (r *Room) join(ident Identity, c *Client) (*Session, error) {
	uid := ident.UserID
	if existing, ok := r.sessions[uid]; ok && existing.client == c {
		return existing, nil
	}

	if c.closed() {
		return nil, ErrConnectionClosed
	}

	old, rejoin := r.conns[uid]
	if !rejoin && len(r.conns) >= r.info.MaxParticipants {
		r.log.Info().Str("user_id", uid).Int("max_participants", r.info.MaxParticipants).Msg("join rejected: room full")
		return nil, ErrCapacityExceeded
	}
	if rejoin {
		old.Close(CloseReasonSuperseded)
		r.log.Info().Str("user_id", uid).Str("session_id", old.ID).Msg("connection superseded")
	}

	now := r.stamp()
	claimCreator := r.info.CreatorID == ""
	if claimCreator {
		r.info.CreatorID = uid
	}

	p := &Presence{
		UserID:      uid,
		DisplayName: lo.Ternary(ident.DisplayName != "", ident.DisplayName, uid),
		Avatar:      ident.Avatar,
		Color:       lo.Ternary(ident.Color != "", ident.Color, colorFor(uid)),
		Status:      StatusActive,
		LastSeen:    now,
	}
	sess := &Session{
		ID:       c.ID,
		RoomID:   r.id,
		UserID:   uid,
		JoinedAt: now,
		client:   c,
		room:     r,
	}
	sess.touch(now)

	r.conns[uid] = c
	r.presence[uid] = p
	r.sessions[uid] = sess

	state := &Event{
		Kind:      EventRoomState,
		Room:      r.id,
		User:      uid,
		Timestamp: now,
		Snapshot:  r.snapshot(),
	}
	// The joiner is not announced until it holds its ROOM_STATE.
	if !c.send(state, r.sendTimeout) {
		delete(r.conns, uid)
		delete(r.presence, uid)
		delete(r.sessions, uid)
		if claimCreator {
			r.info.CreatorID = ""
		}
		c.Close(CloseReasonSlow)
		r.log.Warn().Str("user_id", uid).Str("session_id", c.ID).Msg("join aborted: room state not delivered")
		if rejoin {
			// the superseded connection is already gone
			r.broadcast(&Event{Kind: EventUserLeave, Room: r.id, User: uid, Timestamp: r.stamp(), Count: len(r.conns)}, "")
		}
		return nil, ErrConnectionClosed
	}
	if claimCreator {
		r.persist.saveRoom(r.info)
	}

	joined := *p
	r.broadcast(&Event{
		Kind:        EventUserJoin,
		Room:        r.id,
		User:        uid,
		Timestamp:   now,
		Participant: &joined,
		Count:       len(r.conns),
	}, uid)

	r.log.Info().Str("user_id", uid).Str("session_id", c.ID).Int("room_users", len(r.conns)).Msg("user joined")
	return sess, nil
}

// disconnect removes a participant if c is still its registered connection (nil matches any)
// and tells the others. Reports false for an already-removed session.
func (r *Room) disconnect(uid string, c *Client, reason string) bool {
	leave := r.remove(uid, c, reason)
	if leave == nil {
		return false
	}
	r.broadcast(leave, "")
	return true
}

func (r *Room) remove(uid string, c *Client, reason string) *Event {
	cur, ok := r.conns[uid]
	if !ok || (c != nil && cur != c) {
		return nil
	}
	delete(r.conns, uid)
	delete(r.presence, uid)
	delete(r.sessions, uid)
	cur.Close(reason)

	r.log.Info().Str("user_id", uid).Str("reason", reason).Int("room_users", len(r.conns)).Msg("user left")
	return &Event{
		Kind:      EventUserLeave,
		Room:      r.id,
		User:      uid,
		Timestamp: r.stamp(),
		Count:     len(r.conns),
	}
}

func (r *Room) snapshot() *Snapshot {
	return &Snapshot{
		Room:         r.info,
		Participants: r.participants(),
		Messages:     r.chat.Last(snapshotMessages),
		Changes:      r.changes.Last(snapshotChanges),
	}
}

func (r *Room) participants() []Presence {
	list := lo.MapToSlice(r.presence, func(_ string, p *Presence) Presence { return *p })
	slices.SortFunc(list, func(a, b Presence) int { return strings.Compare(a.UserID, b.UserID) })
	return list
}

func (r *Room) stats() RoomStats {
	return RoomStats{
		Room:             r.info,
		ActiveUsers:      len(r.conns),
		TotalMessages:    r.totalChats,
		TotalChanges:     r.totalChanges,
		RetainedMessages: r.chat.Len(),
		RetainedChanges:  r.changes.Len(),
		Users:            r.participants(),
		LastActivity:     r.lastActivity,
	}
}

// ==== Event Router ====

func (r *Room) handle(s *Session, cmd Command) {
	uid := s.UserID
	if r.sessions[uid] != s {
		r.log.Debug().Str("user_id", uid).Str("session_id", s.ID).Msg("command from stale session dropped")
		return
	}
	p := r.presence[uid]
	now := r.stamp()
	p.LastSeen = now
	s.touch(now)

	switch cmd.Kind {
	case CommandChatMessage:
		if r.seen.check(uid, cmd.ClientID) {
			r.log.Debug().Str("user_id", uid).Str("client_id", cmd.ClientID).Msg("duplicate chat message dropped")
			return
		}
		msg := ChatMessage{
			ID:        utils.NewID(),
			UserID:    uid,
			UserName:  p.DisplayName,
			Body:      cmd.Text,
			Kind:      lo.Ternary(cmd.MsgKind != "", cmd.MsgKind, MessageKindMessage),
			Timestamp: now,
		}
		r.chat.Append(msg)
		r.totalChats++
		r.persist.saveMessage(r.id, msg)
		r.broadcast(&Event{Kind: EventChatMessage, Room: r.id, User: uid, Timestamp: now, Message: &msg}, "")

	case CommandCursorMove:
		p.Cursor = cmd.Cursor
		p.Status = StatusActive
		r.broadcast(&Event{Kind: EventCursorMove, Room: r.id, User: uid, Timestamp: now, Cursor: cmd.Cursor}, uid)

	case CommandTextChange:
		if r.seen.check(uid, cmd.ClientID) {
			r.log.Debug().Str("user_id", uid).Str("client_id", cmd.ClientID).Msg("duplicate change dropped")
			return
		}
		change := DocumentChange{
			ID:        utils.NewID(),
			UserID:    uid,
			Type:      cmd.Change.Type,
			Position:  cmd.Change.Position,
			Content:   cmd.Change.Content,
			Length:    cmd.Change.Length,
			Timestamp: now,
		}
		r.changes.Append(change)
		r.totalChanges++
		r.persist.saveChange(r.id, change)
		r.broadcast(&Event{Kind: EventTextChange, Room: r.id, User: uid, Timestamp: now, Change: &change}, uid)

	case CommandUserTyping:
		p.Status = lo.Ternary(cmd.Typing, StatusTyping, StatusActive)
		r.broadcast(&Event{Kind: EventUserTyping, Room: r.id, User: uid, Timestamp: now, Status: p.Status}, uid)

	case CommandSelectionChange:
		p.Selection = cmd.Selection
		r.broadcast(&Event{Kind: EventSelectionChange, Room: r.id, User: uid, Timestamp: now, Selection: cmd.Selection}, uid)

	default:
		r.log.Warn().Str("user_id", uid).Int("kind", int(cmd.Kind)).Msg("unknown command kind")
		r.unicast(uid, &Event{
			Kind:      EventError,
			Room:      r.id,
			User:      uid,
			Timestamp: now,
			Error:     coreError(ErrCodeMalformedEvent, fmt.Sprintf("unsupported command %d", cmd.Kind)),
		})
	}
}

// ==== Broadcast Engine ====

type delivery struct {
	ev      *Event
	exclude string
	only    string
}

// broadcast delivers ev to every connection except exclude.
func (r *Room) broadcast(ev *Event, exclude string) {
	r.deliver(delivery{ev: ev, exclude: exclude})
}

// unicast delivers ev to a single participant.
func (r *Room) unicast(uid string, ev *Event) {
	r.deliver(delivery{ev: ev, only: uid})
}

// deliver writes queued events in order. Recipients that cannot take an event are collected
// during the pass and removed after it; their departures are queued behind.
func (r *Room) deliver(first delivery) {
	queue := []delivery{first}
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]

		var failed []string
		for uid, c := range r.conns {
			if uid == d.exclude || (d.only != "" && uid != d.only) {
				continue
			}
			if !c.send(d.ev, r.sendTimeout) {
				failed = append(failed, uid)
			}
		}

		for _, uid := range failed {
			r.log.Warn().Str("user_id", uid).Msg("write to participant failed, disconnecting")
			if leave := r.remove(uid, nil, CloseReasonSlow); leave != nil {
				queue = append(queue, delivery{ev: leave})
			}
		}
	}
}

// ==== helpers ====

func colorFor(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return palette[h.Sum32()%uint32(len(palette))]
}

// recentIDs remembers the last n client-supplied ids.
type recentIDs struct {
	set  map[string]struct{}
	ring []string
	next int
}

func newRecentIDs(n int) *recentIDs {
	return &recentIDs{set: make(map[string]struct{}, n), ring: make([]string, n)}
}

// check records the id and reports whether it was already seen. Empty ids are never duplicates.
func (d *recentIDs) check(userID, clientID string) bool {
	if clientID == "" {
		return false
	}
	key := userID + "\x00" + clientID
	if _, ok := d.set[key]; ok {
		return true
	}
	if old := d.ring[d.next]; old != "" {
		delete(d.set, old)
	}
	d.ring[d.next] = key
	d.set[key] = struct{}{}
	d.next = (d.next + 1) % len(d.ring)
	return false
}
