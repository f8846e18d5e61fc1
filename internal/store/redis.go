package store

import (
	"context"
	"fmt"
	"time"

	"github.com/feral-file/ff-transfer-alert/internal/adapter"
	"github.com/feral-file/ff-transfer-alert/internal/domain"
)

// redisStore keeps markers as plain keys with a native expiry
type redisStore struct {
	client adapter.RedisClient
}

// NewRedisStore creates a store backed by redis
func NewRedisStore(client adapter.RedisClient) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Seen(ctx context.Context, key domain.DedupKey) (bool, error) {
	n, err := s.client.Exists(ctx, key.String()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return n > 0, nil
}

func (s *redisStore) Mark(ctx context.Context, key domain.DedupKey, ttl time.Duration) error {
	if err := s.client.Set(ctx, key.String(), domain.DEDUP_MARKER_VALUE, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set dedup key: %w", err)
	}
	return nil
}

// MarkIfAbsent uses SET NX EX, so replicas sharing the instance cannot both claim a key
func (s *redisStore) MarkIfAbsent(ctx context.Context, key domain.DedupKey, ttl time.Duration) (bool, error) {
	created, err := s.client.SetNX(ctx, key.String(), domain.DEDUP_MARKER_VALUE, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set dedup key: %w", err)
	}
	return created, nil
}

func (s *redisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}
