package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis checkpoint backend. Month payloads are
// small (one month of records), so a short pool is enough.
type RedisConfig struct {
	Address  string // host:port
	Password string
	Database int
	Prefix   string
	TTL      time.Duration // 0 keeps months until the key changes
	Timeout  time.Duration
	PoolSize int
}

// DefaultRedisConfig keeps cached months for 30 days under
// "flightarchive:checkpoint:".
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address:  address,
		Prefix:   "flightarchive:checkpoint:",
		TTL:      30 * 24 * time.Hour,
		Timeout:  5 * time.Second,
		PoolSize: 4,
	}
}

// RedisStore keeps checkpoints in Redis so several hosts extracting the same
// archive share one cache.
type RedisStore struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	s := &RedisStore{cfg: cfg, client: client}
	if err := s.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return s, nil
}

// key returns the Redis key for a checkpoint key.
func (s *RedisStore) key(k string) string {
	return s.cfg.Prefix + k
}

// Get retrieves a checkpoint from Redis.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint from Redis: %w", err)
	}
	return data, nil
}

// Put stores a checkpoint with the configured TTL.
func (s *RedisStore) Put(ctx context.Context, key string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key(key), payload, s.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint to Redis: %w", err)
	}
	return nil
}

// Delete drops a cached month.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return s.client.Del(ctx, s.key(key)).Err()
}

// Name returns "redis".
func (s *RedisStore) Name() string {
	return "redis"
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
