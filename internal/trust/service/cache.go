package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldserve_backend/internal/trust/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCache is the read-through score cache backed by redis. Entries expire
// on their own; writes through the engine refresh them eagerly.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(subjectID uuid.UUID, st repository.SubjectType) string {
	return fmt.Sprintf("trust:%s:%s", st, subjectID)
}

func (c *RedisCache) Get(ctx context.Context, subjectID uuid.UUID, st repository.SubjectType) (float64, string, bool, error) {
	values, err := c.client.HGetAll(ctx, cacheKey(subjectID, st)).Result()
	if errors.Is(err, redis.Nil) || len(values) == 0 {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, fmt.Errorf("trust cache get: %w", err)
	}

	var score float64
	if _, err := fmt.Sscanf(values["score"], "%g", &score); err != nil {
		return 0, "", false, nil
	}
	return score, values["status"], true, nil
}

func (c *RedisCache) Set(ctx context.Context, subjectID uuid.UUID, st repository.SubjectType, score float64, status string) error {
	key := cacheKey(subjectID, st)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, "score", fmt.Sprintf("%g", score), "status", status)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("trust cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, subjectID uuid.UUID, st repository.SubjectType) error {
	if err := c.client.Del(ctx, cacheKey(subjectID, st)).Err(); err != nil {
		return fmt.Errorf("trust cache invalidate: %w", err)
	}
	return nil
}

var _ ScoreCache = (*RedisCache)(nil)
