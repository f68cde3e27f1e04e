package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const pendingValue = "pending"

// RedisStore shares keys between server replicas. A pending key is the
// literal "pending"; a completed key holds the decimal resource id.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	pendingTTL time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration, opts ...Option) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client:     client,
		prefix:     "coursehub:idem:",
		ttl:        ttl,
		pendingTTL: newSettings(opts).pendingTTL,
	}
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("idempotency: connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (int64, error) {
	k := s.prefix + key

	ok, err := s.client.SetNX(ctx, k, pendingValue, s.pendingTTL).Result()
	if err != nil {
		return 0, fmt.Errorf("idempotency: reserving key: %w", err)
	}
	if ok {
		return 0, nil
	}

	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		ok, err = s.client.SetNX(ctx, k, pendingValue, s.pendingTTL).Result()
		if err != nil {
			return 0, fmt.Errorf("idempotency: reserving key: %w", err)
		}
		if ok {
			return 0, nil
		}
		return 0, ErrInFlight
	}
	if err != nil {
		return 0, fmt.Errorf("idempotency: reading key: %w", err)
	}
	if val == pendingValue {
		return 0, ErrInFlight
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("idempotency: corrupt value %q for key: %w", val, err)
	}
	return id, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, id int64) error {
	if err := s.client.Set(ctx, s.prefix+key, strconv.FormatInt(id, 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: completing key: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency: releasing key: %w", err)
	}
	return nil
}
