package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/redis/go-redis/v9"
)

const credKeyPrefix = "relay:cred:"

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func credKey(room domain.RoomID) string {
	return credKeyPrefix + string(room)
}

func (s *Redis) Lookup(ctx context.Context, room domain.RoomID) (domain.Record, bool, error) {
	val, err := s.client.Get(ctx, credKey(room)).Result()
	if err == redis.Nil {
		return domain.Record{}, false, nil
	}
	if err != nil {
		return domain.Record{}, false, fmt.Errorf("credential get %s: %w", room, err)
	}
	var rec domain.Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return domain.Record{}, false, fmt.Errorf("credential decode %s: %w", room, err)
	}
	return rec, true, nil
}

func (s *Redis) Put(ctx context.Context, room domain.RoomID, rec domain.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("credential encode %s: %w", room, err)
	}
	if err := s.client.Set(ctx, credKey(room), data, 0).Err(); err != nil {
		return fmt.Errorf("credential set %s: %w", room, err)
	}
	return nil
}

func (s *Redis) Delete(ctx context.Context, room domain.RoomID) error {
	if err := s.client.Del(ctx, credKey(room)).Err(); err != nil {
		return fmt.Errorf("credential delete %s: %w", room, err)
	}
	return nil
}

func (s *Redis) List(ctx context.Context) ([]Credential, error) {
	var out []Credential
	iter := s.client.Scan(ctx, 0, credKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			// Deleted between scan and get.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("credential get %s: %w", key, err)
		}
		var rec domain.Record
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			continue
		}
		id := domain.RoomID(strings.TrimPrefix(key, credKeyPrefix))
		out = append(out, Credential{RoomID: id, Record: rec})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("credential scan: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
