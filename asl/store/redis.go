package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/asl-engine/asl"
)

// RedisStore is an asl.CheckpointStore backed by Redis, so stored
// checkpoints are readable from every process sharing the Redis instance.
// Runner.Resume does not read a CheckpointStore; it resumes only
// suspensions recorded by the same Runner. Unlike SQLiteStore/MySQLStore, TTL
// expiry is delegated to Redis's own key expiry rather than a periodic
// Expire() sweep, since Redis already tracks it per key.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing *redis.Client. keyPrefix namespaces every
// checkpoint key (e.g. "asl:checkpoint:") so a store can share a Redis
// instance with unrelated data.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, prefix: keyPrefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Put(id string, cp asl.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("asl/store: marshal checkpoint %q: %w", id, err)
	}

	ctx := context.Background()
	ttl := cp.TTL
	if ttl <= 0 {
		ttl = 0 // redis.Set treats 0 as "no expiry"
	}
	if err := s.client.Set(ctx, s.key(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("asl/store: put checkpoint %q: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Get(id string) (asl.Checkpoint, bool, error) {
	ctx := context.Background()
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return asl.Checkpoint{}, false, nil
	}
	if err != nil {
		return asl.Checkpoint{}, false, fmt.Errorf("asl/store: get checkpoint %q: %w", id, err)
	}

	var cp asl.Checkpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		return asl.Checkpoint{}, false, fmt.Errorf("asl/store: decode checkpoint %q: %w", id, err)
	}
	return cp, true, nil
}

func (s *RedisStore) Delete(id string) error {
	ctx := context.Background()
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("asl/store: delete checkpoint %q: %w", id, err)
	}
	return nil
}

// Expire is a no-op: Redis already evicts keys whose TTL elapsed.
func (s *RedisStore) Expire() error { return nil }
