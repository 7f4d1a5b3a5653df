package jobqueue

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ListStore is the subset of Redis list commands the queue needs.
// Production uses the go-redis adapter below; tests use an in-memory fake.
type ListStore interface {
	LPush(ctx context.Context, key string, value string) error
	RPop(ctx context.Context, key string) (value string, found bool, err error)
	LLen(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, key string) error
}

type redisListStore struct {
	client *redis.Client
}

// NewRedisListStore adapts a go-redis client to the ListStore interface.
func NewRedisListStore(client *redis.Client) ListStore {
	return &redisListStore{client: client}
}

func (s *redisListStore) LPush(ctx context.Context, key string, value string) error {
	return s.client.LPush(ctx, key, value).Err()
}

func (s *redisListStore) RPop(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.RPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *redisListStore) LLen(ctx context.Context, key string) (int64, error) {
	return s.client.LLen(ctx, key).Result()
}

func (s *redisListStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
