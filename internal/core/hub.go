package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecollab-server/internal/store"
	"github.com/vovakirdan/wirecollab-server/internal/utils"
)

const defaultMaxParticipants = 10

// Options configures a Hub.
type Options struct {
	// DefaultMaxParticipants applies to rooms created lazily on first connect.
	DefaultMaxParticipants int
	// SendTimeout bounds how long a broadcast waits on one full client buffer; 0 never waits.
	SendTimeout time.Duration
	// InboxSize is the per-room operation queue length.
	InboxSize int
	// Store, when set, receives room history and restores it when a room starts.
	Store store.Store
	// PersistQueue is the length of the asynchronous persistence queue.
	PersistQueue int
}

// RoomSpec describes an explicitly created room.
type RoomSpec struct {
	ID              string
	DocumentID      string
	DocumentType    DocumentType
	Title           string
	CreatorID       string
	MaxParticipants int
}

// Hub is the process-wide room registry. Its mutex guards only the room map; everything
// inside a room is handled by that room's actor.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Room

	opts    Options
	log     *zerolog.Logger
	persist *persister

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a new collaboration hub.
func NewHub(opts Options, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.DefaultMaxParticipants <= 0 {
		opts.DefaultMaxParticipants = defaultMaxParticipants
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		rooms:   make(map[string]*Room),
		opts:    opts,
		log:     logger,
		persist: newPersister(opts.Store, opts.PersistQueue, logger),
		ctx:     ctx,
		cancel:  cancel,
	}
	if h.persist != nil {
		go h.persist.run(ctx)
	}
	return h
}

// Run blocks until ctx is cancelled, then stops every room actor.
func (h *Hub) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-h.ctx.Done():
	}
	h.mu.Lock()
	h.cancel()
	h.mu.Unlock()
	h.wg.Wait()
	h.persist.wait()
	h.log.Info().Msg("hub stopped")
}

// ==== Room Registry ====

// GetOrCreate returns the room with the given ID, starting it with default metadata if needed.
// Once the hub has stopped it returns a detached room that answers every call with ErrRoomClosed.
func (h *Hub) GetOrCreate(roomID string) *Room {
	r, _, err := h.getOrCreate(RoomInfo{
		ID:              roomID,
		DocumentID:      roomID,
		DocumentType:    DocumentText,
		Title:           roomID,
		MaxParticipants: h.opts.DefaultMaxParticipants,
	}, false)
	if err != nil {
		return h.stoppedRoom(roomID)
	}
	return r
}

func (h *Hub) getOrCreate(info RoomInfo, explicit bool) (*Room, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return nil, false, ErrRoomClosed
	}
	if r, ok := h.rooms[info.ID]; ok {
		return r, false, nil
	}
	r := newRoom(roomConfig{
		info:        info,
		explicit:    explicit,
		inboxSize:   h.opts.InboxSize,
		sendTimeout: h.opts.SendTimeout,
		persist:     h.persist,
		log:         h.log,
	})
	h.rooms[info.ID] = r
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		r.run(h.ctx)
	}()
	h.log.Debug().Str("room_id", info.ID).Bool("explicit", explicit).Msg("room started")
	return r, true, nil
}

func (h *Hub) stoppedRoom(roomID string) *Room {
	r := newRoom(roomConfig{info: RoomInfo{ID: roomID}, log: h.log})
	r.stopOnce.Do(func() { close(r.stop) })
	close(r.done)
	return r
}

// Get returns an existing room.
func (h *Hub) Get(roomID string) (*Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Remove stops a room and disconnects its participants. History already handed to the
// store is kept.
func (h *Hub) Remove(roomID string) error {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if ok {
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	if !ok {
		return ErrRoomNotFound
	}
	r.close()
	h.log.Info().Str("room_id", roomID).Msg("room removed")
	return nil
}

// CreateRoom starts a room with explicit metadata.
func (h *Hub) CreateRoom(_ context.Context, spec RoomSpec) (RoomInfo, error) {
	if spec.DocumentType == "" {
		spec.DocumentType = DocumentText
	}
	if !spec.DocumentType.Valid() {
		return RoomInfo{}, fmt.Errorf("%w: unknown document type %q", ErrBadRequest, spec.DocumentType)
	}
	if spec.MaxParticipants < 0 {
		return RoomInfo{}, fmt.Errorf("%w: max participants must be positive", ErrBadRequest)
	}
	if spec.MaxParticipants == 0 {
		spec.MaxParticipants = h.opts.DefaultMaxParticipants
	}
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		id = utils.NewID()
	}
	info := RoomInfo{
		ID:              id,
		DocumentID:      spec.DocumentID,
		DocumentType:    spec.DocumentType,
		Title:           spec.Title,
		CreatorID:       spec.CreatorID,
		CreatedAt:       time.Now(),
		MaxParticipants: spec.MaxParticipants,
		IsActive:        true,
	}
	if info.DocumentID == "" {
		info.DocumentID = id
	}
	if info.Title == "" {
		info.Title = id
	}

	_, created, err := h.getOrCreate(info, true)
	if err != nil {
		return RoomInfo{}, err
	}
	if !created {
		return RoomInfo{}, ErrRoomExists
	}
	h.log.Info().Str("room_id", id).Str("document_type", string(info.DocumentType)).Int("max_participants", info.MaxParticipants).Msg("room created")
	return info, nil
}

func (h *Hub) snapshotRooms() []*Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Rooms returns stats for every live room, ordered by ID.
func (h *Hub) Rooms(ctx context.Context) ([]RoomStats, error) {
	rooms := h.snapshotRooms()
	out := make([]RoomStats, 0, len(rooms))
	for _, r := range rooms {
		st, err := r.Stats(ctx)
		if errors.Is(err, ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b RoomStats) int { return strings.Compare(a.Room.ID, b.Room.ID) })
	return out, nil
}

// PruneIdle removes rooms without participants that have been quiet for at least idleFor.
// It is meant to be driven by an external scheduler.
func (h *Hub) PruneIdle(ctx context.Context, idleFor time.Duration) []string {
	var removed []string
	now := time.Now()
	for _, r := range h.snapshotRooms() {
		st, err := r.Stats(ctx)
		if err != nil {
			continue
		}
		if st.ActiveUsers > 0 || now.Sub(st.LastActivity) < idleFor {
			continue
		}
		if err := h.Remove(r.id); err == nil {
			removed = append(removed, r.id)
		}
	}
	if len(removed) > 0 {
		h.log.Info().Strs("rooms", removed).Msg("idle rooms pruned")
	}
	return removed
}

// ==== Session Gateway ====

// Open admits a connection into a room. The room is created on first use. On success the
// client has been sent ROOM_STATE and the other participants USER_JOIN.
func (h *Hub) Open(ctx context.Context, roomID string, ident Identity, client *Client) (*Session, error) {
	if roomID == "" || ident.UserID == "" || client == nil {
		return nil, fmt.Errorf("%w: room, user and client are required", ErrBadRequest)
	}
	r := h.GetOrCreate(roomID)

	var (
		sess *Session
		err  error
	)
	if doErr := r.do(ctx, func() { sess, err = r.join(ident, client) }); doErr != nil {
		return nil, doErr
	}
	return sess, err
}

// Close disconnects whatever connection userID currently holds in the room. Closing an
// absent session is a no-op.
func (h *Hub) Close(ctx context.Context, roomID, userID string) error {
	r, err := h.Get(roomID)
	if err != nil {
		return nil
	}
	err = r.do(ctx, func() { r.disconnect(userID, nil, CloseReasonLeft) })
	if errors.Is(err, ErrRoomClosed) {
		return nil
	}
	return err
}

// ==== Stats surface ====

// Stats returns the dashboard view of a room.
func (h *Hub) Stats(ctx context.Context, roomID string) (RoomStats, error) {
	var st RoomStats
	if err := h.query(ctx, roomID, func(r *Room) { st = r.stats() }); err != nil {
		return RoomStats{}, err
	}
	return st, nil
}

// RecentMessages returns up to limit of the newest retained chat messages, oldest first.
func (h *Hub) RecentMessages(ctx context.Context, roomID string, limit int) ([]ChatMessage, error) {
	var out []ChatMessage
	if err := h.query(ctx, roomID, func(r *Room) { out = r.chat.Last(limit) }); err != nil {
		return nil, err
	}
	return out, nil
}

// RecentChanges returns up to limit of the newest retained changes, oldest first.
func (h *Hub) RecentChanges(ctx context.Context, roomID string, limit int) ([]DocumentChange, error) {
	var out []DocumentChange
	if err := h.query(ctx, roomID, func(r *Room) { out = r.changes.Last(limit) }); err != nil {
		return nil, err
	}
	return out, nil
}

// query runs fn on the room's actor. A room stopped after lookup reads as missing.
func (h *Hub) query(ctx context.Context, roomID string, fn func(r *Room)) error {
	r, err := h.Get(roomID)
	if err != nil {
		return err
	}
	err = r.do(ctx, func() { fn(r) })
	if errors.Is(err, ErrRoomClosed) {
		return ErrRoomNotFound
	}
	return err
}

// Stats returns the dashboard view of the room.
func (r *Room) Stats(ctx context.Context) (RoomStats, error) {
	var st RoomStats
	if err := r.do(ctx, func() { st = r.stats() }); err != nil {
		return RoomStats{}, err
	}
	return st, nil
}
