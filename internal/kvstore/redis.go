package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tradesim:"

var _ Store = (*RedisStore)(nil)

// RedisStore keeps records as plain Redis strings under
// tradesim:<userID>:<resource>.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(userID, resource string) string {
	return redisKeyPrefix + userID + ":" + resource
}

func (s *RedisStore) Get(ctx context.Context, userID, resource string) ([]byte, error) {
	data, err := s.client.Get(ctx, redisKey(userID, resource)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore get %s/%s: %w", userID, resource, err)
	}
	return data, nil
}

func (s *RedisStore) Put(ctx context.Context, userID, resource string, data []byte) error {
	if err := s.client.Set(ctx, redisKey(userID, resource), data, 0).Err(); err != nil {
		return fmt.Errorf("kvstore put %s/%s: %w", userID, resource, err)
	}
	return nil
}
