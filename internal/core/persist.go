package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecollab-server/internal/store"
)

const persistJobTimeout = 5 * time.Second

type persistJob struct {
	name   string
	roomID string
	fn     func(ctx context.Context) error
}

// persister writes room history to the optional store off the room actors, so a slow
// database never stalls event processing. A nil persister discards everything.
type persister struct {
	store store.Store
	jobs  chan persistJob
	done  chan struct{}
	log   zerolog.Logger
}

func newPersister(st store.Store, size int, logger *zerolog.Logger) *persister {
	if st == nil {
		return nil
	}
	if size <= 0 {
		size = 1024
	}
	return &persister{
		store: st,
		jobs:  make(chan persistJob, size),
		done:  make(chan struct{}),
		log:   logger.With().Str("component", "persister").Logger(),
	}
}

func (p *persister) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case job := <-p.jobs:
			p.exec(job)
		case <-ctx.Done():
			// flush what is already queued
			for {
				select {
				case job := <-p.jobs:
					p.exec(job)
				default:
					return
				}
			}
		}
	}
}

func (p *persister) wait() {
	if p != nil {
		<-p.done
	}
}

func (p *persister) exec(job persistJob) {
	ctx, cancel := context.WithTimeout(context.Background(), persistJobTimeout)
	defer cancel()
	if err := job.fn(ctx); err != nil {
		p.log.Warn().Err(err).Str("job", job.name).Str("room_id", job.roomID).Msg("persist failed")
	}
}

func (p *persister) enqueue(job persistJob) {
	if p == nil {
		return
	}
	select {
	case p.jobs <- job:
	default:
		p.log.Warn().Str("job", job.name).Str("room_id", job.roomID).Msg("persist queue full, dropping")
	}
}

func (p *persister) saveRoom(info RoomInfo) {
	if p == nil {
		return
	}
	rec := roomRecord(info)
	p.enqueue(persistJob{name: "save_room", roomID: info.ID, fn: func(ctx context.Context) error {
		return p.store.SaveRoom(ctx, rec)
	}})
}

func (p *persister) saveMessage(roomID string, msg ChatMessage) {
	if p == nil {
		return
	}
	rec := messageRecord(roomID, msg)
	p.enqueue(persistJob{name: "save_message", roomID: roomID, fn: func(ctx context.Context) error {
		return p.store.SaveMessage(ctx, rec)
	}})
}

func (p *persister) saveChange(roomID string, change DocumentChange) {
	if p == nil {
		return
	}
	rec := changeRecord(roomID, change)
	p.enqueue(persistJob{name: "save_change", roomID: roomID, fn: func(ctx context.Context) error {
		return p.store.SaveChange(ctx, rec)
	}})
}

// restore loads metadata and the most recent history window before the actor serves events.
func (r *Room) restore(parent context.Context) {
	if r.persist == nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, restoreTimeout)
	defer cancel()
	st := r.persist.store

	if r.explicit {
		r.persist.saveRoom(r.info)
	} else {
		rec, err := st.GetRoom(ctx, r.id)
		switch {
		case err == nil:
			r.info = roomInfoFromRecord(rec, r.info)
		case errors.Is(err, store.ErrNotFound):
			r.persist.saveRoom(r.info)
		default:
			r.log.Warn().Err(err).Msg("restore room metadata")
		}
	}

	msgs, err := st.ListMessages(ctx, r.id, chatLogCap)
	if err != nil {
		r.log.Warn().Err(err).Msg("restore chat history")
	}
	for _, m := range msgs {
		r.chat.Append(messageFromRecord(m))
	}

	changes, err := st.ListChanges(ctx, r.id, changeLogCap)
	if err != nil {
		r.log.Warn().Err(err).Msg("restore change history")
	}
	for _, c := range changes {
		r.changes.Append(changeFromRecord(c))
	}

	r.totalChats = r.chat.Len()
	r.totalChanges = r.changes.Len()
	if n := r.chat.Len(); n > 0 {
		r.lastStamp = r.chat.Last(1)[0].Timestamp
	}
	if n := r.changes.Len(); n > 0 {
		if ts := r.changes.Last(1)[0].Timestamp; ts.After(r.lastStamp) {
			r.lastStamp = ts
		}
	}
	r.log.Debug().Int("messages", len(msgs)).Int("changes", len(changes)).Msg("room history restored")
}

func roomRecord(info RoomInfo) *store.Room {
	return &store.Room{
		ID:              info.ID,
		DocumentID:      info.DocumentID,
		DocumentType:    string(info.DocumentType),
		Title:           info.Title,
		CreatorID:       info.CreatorID,
		MaxParticipants: info.MaxParticipants,
		CreatedAt:       info.CreatedAt,
	}
}

func roomInfoFromRecord(rec *store.Room, fallback RoomInfo) RoomInfo {
	info := fallback
	info.DocumentID = rec.DocumentID
	info.Title = rec.Title
	info.CreatorID = rec.CreatorID
	if t := DocumentType(rec.DocumentType); t.Valid() {
		info.DocumentType = t
	}
	if rec.MaxParticipants > 0 {
		info.MaxParticipants = rec.MaxParticipants
	}
	if !rec.CreatedAt.IsZero() {
		info.CreatedAt = rec.CreatedAt
	}
	return info
}

func messageRecord(roomID string, m ChatMessage) *store.Message {
	return &store.Message{
		ID:        m.ID,
		RoomID:    roomID,
		UserID:    m.UserID,
		UserName:  m.UserName,
		Body:      m.Body,
		Kind:      string(m.Kind),
		CreatedAt: m.Timestamp,
	}
}

func messageFromRecord(rec *store.Message) ChatMessage {
	return ChatMessage{
		ID:        rec.ID,
		UserID:    rec.UserID,
		UserName:  rec.UserName,
		Body:      rec.Body,
		Kind:      MessageKind(rec.Kind),
		Timestamp: rec.CreatedAt,
	}
}

func changeRecord(roomID string, c DocumentChange) *store.Change {
	return &store.Change{
		ID:         c.ID,
		RoomID:     roomID,
		UserID:     c.UserID,
		ChangeType: string(c.Type),
		Position:   c.Position,
		Content:    c.Content,
		Length:     c.Length,
		CreatedAt:  c.Timestamp,
	}
}

func changeFromRecord(rec *store.Change) DocumentChange {
	return DocumentChange{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Type:      ChangeType(rec.ChangeType),
		Position:  rec.Position,
		Content:   rec.Content,
		Length:    rec.Length,
		Timestamp: rec.CreatedAt,
	}
}
