package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements StateStore with plain string keys under a prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps a client. prefix is prepended to every key.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) GetState(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) SetState(ctx context.Context, key, val string) error {
	return s.client.Set(ctx, s.prefix+key, val, 0).Err()
}

func (s *RedisStore) DeleteState(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
