package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/redis/go-redis/v9"
)

const historyKeyPrefix = "relay:history:"

// Redis persists one record per room holding the ordered entry array.
// The owning room actor is the only writer for its key, so the
// read-modify-write on Append needs no transaction.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	max    int
}

func NewRedis(client *redis.Client, ttl time.Duration, max int) *Redis {
	return &Redis{client: client, ttl: ttl, max: max}
}

func (s *Redis) key(room domain.RoomID) string {
	return historyKeyPrefix + string(room)
}

func (s *Redis) load(ctx context.Context, room domain.RoomID) ([]domain.Entry, error) {
	val, err := s.client.Get(ctx, s.key(room)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history get %s: %w", room, err)
	}
	var entries []domain.Entry
	if err := json.Unmarshal([]byte(val), &entries); err != nil {
		return nil, fmt.Errorf("history decode %s: %w", room, err)
	}
	return entries, nil
}

func (s *Redis) Append(ctx context.Context, room domain.RoomID, e domain.Entry) error {
	entries, err := s.load(ctx, room)
	if err != nil {
		return err
	}
	entries = Prune(append(entries, e), time.Now(), s.ttl, s.max)
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("history encode %s: %w", room, err)
	}
	// Key TTL matches the entry TTL: a room idle past the window has
	// nothing visible left anyway.
	if err := s.client.Set(ctx, s.key(room), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("history set %s: %w", room, err)
	}
	return nil
}

func (s *Redis) Read(ctx context.Context, room domain.RoomID) ([]domain.Entry, error) {
	entries, err := s.load(ctx, room)
	if err != nil {
		return nil, err
	}
	return Prune(entries, time.Now(), s.ttl, s.max), nil
}
