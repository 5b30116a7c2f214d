// Package redis stores room history in Redis capped lists.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/wirecollab-server/internal/store"
)

const (
	defaultPrefix    = "wirecollab:"
	defaultRetention = 5000
	seenTTL          = 24 * time.Hour
)

// Config holds the Redis store configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key.
	Prefix string
	// Retention caps each room's message and change lists.
	Retention int
}

// RedisStore implements store.Store on top of Redis.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	retention int64
}

var _ store.Store = (*RedisStore)(nil)

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, cfg.Prefix, cfg.Retention), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, retention int) *RedisStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &RedisStore{client: client, prefix: prefix, retention: int64(retention)}
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) roomKey(id string) string     { return s.prefix + "room:" + id }
func (s *RedisStore) messagesKey(id string) string { return s.prefix + "room:" + id + ":messages" }
func (s *RedisStore) changesKey(id string) string  { return s.prefix + "room:" + id + ":changes" }
func (s *RedisStore) seenKey(kind, id string) string {
	return s.prefix + "seen:" + kind + ":" + id
}

// SaveRoom inserts or replaces room metadata. The original creation time is kept.
func (s *RedisStore) SaveRoom(ctx context.Context, room *store.Room) error {
	rec := *room
	if prev, err := s.GetRoom(ctx, room.ID); err == nil && !prev.CreatedAt.IsZero() {
		rec.CreatedAt = prev.CreatedAt
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	if err := s.client.Set(ctx, s.roomKey(room.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("save room: %w", err)
	}
	return nil
}

// GetRoom retrieves a room by ID.
func (s *RedisStore) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	data, err := s.client.Get(ctx, s.roomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	var room store.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("unmarshal room: %w", err)
	}
	return &room, nil
}

// SaveMessage appends a message to the room list. A message with a known ID is ignored.
func (s *RedisStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	return s.push(ctx, "message", msg.ID, s.messagesKey(msg.RoomID), msg)
}

// ListMessages returns up to limit most recent messages of a room, oldest first.
func (s *RedisStore) ListMessages(ctx context.Context, roomID string, limit int) ([]*store.Message, error) {
	return list[store.Message](ctx, s.client, s.messagesKey(roomID), limit)
}

// SaveChange appends a change to the room list. A change with a known ID is ignored.
func (s *RedisStore) SaveChange(ctx context.Context, change *store.Change) error {
	return s.push(ctx, "change", change.ID, s.changesKey(change.RoomID), change)
}

// ListChanges returns up to limit most recent changes of a room, oldest first.
func (s *RedisStore) ListChanges(ctx context.Context, roomID string, limit int) ([]*store.Change, error) {
	return list[store.Change](ctx, s.client, s.changesKey(roomID), limit)
}

func (s *RedisStore) push(ctx context.Context, kind, id, key string, v any) error {
	fresh, err := s.client.SetNX(ctx, s.seenKey(kind, id), 1, seenTTL).Result()
	if err != nil {
		return fmt.Errorf("mark %s: %w", kind, err)
	}
	if !fresh {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -s.retention, -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append %s: %w", kind, err)
	}
	return nil
}

func list[T any](ctx context.Context, client *redis.Client, key string, limit int) ([]*T, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raw, err := client.LRange(ctx, key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", key, err)
	}
	out := make([]*T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", key, err)
		}
		out = append(out, &v)
	}
	return out, nil
}
