package chainwatcher

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// CheckpointStore persists each monitored wallet's last-scanned block
// number, decoupled from the watcher's own process so that multiple
// tossbot instances polling the same chain can share progress instead of
// re-scanning each other's ranges from zero.
type CheckpointStore interface {
	Get(ctx context.Context, address string) (uint64, bool, error)
	Set(ctx context.Context, address string, block uint64) error
}

// memCheckpointStore is the default single-process CheckpointStore, a
// plain guarded map matching what a single chainWatcher tracked before
// checkpoints were made pluggable.
type memCheckpointStore struct {
	mu sync.Mutex
	m  map[string]uint64
}

func newMemCheckpointStore() *memCheckpointStore {
	return &memCheckpointStore{m: make(map[string]uint64)}
}

func (s *memCheckpointStore) Get(_ context.Context, address string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	block, ok := s.m[normalizeAddress(address)]
	return block, ok, nil
}

func (s *memCheckpointStore) Set(_ context.Context, address string, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[normalizeAddress(address)] = block
	return nil
}

// redisCheckpointStore is the distributed CheckpointStore for
// multi-instance deployments (CHECKPOINT_BACKEND=redis), matching the
// polymarketbot example's use of go-redis for shared position tracking.
type redisCheckpointStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCheckpointStore connects to a redis server at addr (host:port)
// and returns a CheckpointStore backed by it.
func NewRedisCheckpointStore(addr string) *redisCheckpointStore {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &redisCheckpointStore{client: client, prefix: "tossbot:checkpoint:"}
}

func (s *redisCheckpointStore) key(address string) string {
	return s.prefix + normalizeAddress(address)
}

func (s *redisCheckpointStore) Get(ctx context.Context, address string) (uint64, bool, error) {
	val, err := s.client.Get(ctx, s.key(address)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis checkpoint get: %w", err)
	}
	block, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis checkpoint parse: %w", err)
	}
	return block, true, nil
}

func (s *redisCheckpointStore) Set(ctx context.Context, address string, block uint64) error {
	if err := s.client.Set(ctx, s.key(address), block, 0).Err(); err != nil {
		return fmt.Errorf("redis checkpoint set: %w", err)
	}
	return nil
}

func (s *redisCheckpointStore) Close() error {
	return s.client.Close()
}
