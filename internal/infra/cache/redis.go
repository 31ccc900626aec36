// Package cache provides a Redis-backed snapshot store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/LodgingDesk/server/internal/infra/storage"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by RedisClient.Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

// RedisClient is an interface for Redis operations.
// This allows for easy mocking in tests.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// MSet sets every key in one atomic command. Keys set this way never expire.
	MSet(ctx context.Context, values map[string]string) error
	Del(ctx context.Context, keys ...string) error
}

// goRedisClient adapts *redis.Client to RedisClient.
type goRedisClient struct {
	rdb *redis.Client
}

// NewGoRedisClient wraps a go-redis client.
func NewGoRedisClient(rdb *redis.Client) RedisClient {
	return &goRedisClient{rdb: rdb}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func (c *goRedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

func (c *goRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

func (c *goRedisClient) MSet(ctx context.Context, values map[string]string) error {
	pairs := make([]interface{}, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, k, v)
	}
	return c.rdb.MSet(ctx, pairs...).Err()
}

func (c *goRedisClient) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// RedisSnapshotStore keeps each slot under its own key. Keys never expire:
// the store is the durable mirror, not a cache in front of one.
type RedisSnapshotStore struct {
	client RedisClient
	prefix string
}

// NewRedisSnapshotStore creates a store writing keys under prefix.
func NewRedisSnapshotStore(client RedisClient, prefix string) *RedisSnapshotStore {
	if prefix == "" {
		prefix = "lodging"
	}
	return &RedisSnapshotStore{client: client, prefix: prefix}
}

func (s *RedisSnapshotStore) Load(ctx context.Context, slot storage.Slot) ([]byte, error) {
	data, err := s.client.Get(ctx, s.slotKey(slot))
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, storage.ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to load slot %s: %w", slot, err)
	}
	return []byte(data), nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, slot storage.Slot, payload []byte) error {
	if err := s.client.Set(ctx, s.slotKey(slot), string(payload), 0); err != nil {
		return fmt.Errorf("failed to save slot %s: %w", slot, err)
	}
	return nil
}

// SaveBatch writes every slot with a single MSET so a reader never sees
// rooms from one state and lecturers from another.
func (s *RedisSnapshotStore) SaveBatch(ctx context.Context, batch []storage.SlotPayload) error {
	values := make(map[string]string, len(batch))
	for _, sp := range batch {
		values[s.slotKey(sp.Slot)] = string(sp.Payload)
	}
	if err := s.client.MSet(ctx, values); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Clear removes every slot.
func (s *RedisSnapshotStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.slotKey(storage.SlotRooms), s.slotKey(storage.SlotLecturers))
}

// slotKey generates the Redis key for a slot.
func (s *RedisSnapshotStore) slotKey(slot storage.Slot) string {
	return fmt.Sprintf("%s:snapshot:%s", s.prefix, slot)
}

var (
	_ storage.SnapshotStore = (*RedisSnapshotStore)(nil)
	_ storage.BatchSaver    = (*RedisSnapshotStore)(nil)
)
