package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/felipeoc/macrotiming-go/internal/models"
)

const latestEvaluationKey = "evaluation:latest"

// CacheStats tracks cache performance counters.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// RedisEvaluationCache keeps the most recent evaluation in Redis so reads
// do not hit Postgres on every request.
type RedisEvaluationCache struct {
	redis  *redis.Client
	ttl    time.Duration
	stats  *CacheStats
	logger *logrus.Logger
}

// NewRedisEvaluationCache creates an evaluation cache with the given TTL.
func NewRedisEvaluationCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisEvaluationCache {
	return &RedisEvaluationCache{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &CacheStats{},
		logger: logger,
	}
}

// GetLatest returns the cached latest evaluation, if present.
func (c *RedisEvaluationCache) GetLatest(ctx context.Context) (*models.Evaluation, bool) {
	data, err := c.redis.Get(ctx, latestEvaluationKey).Result()
	if err == redis.Nil {
		c.recordMiss()
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("redis error reading latest evaluation")
		c.recordMiss()
		return nil, false
	}

	var eval models.Evaluation
	if err := json.Unmarshal([]byte(data), &eval); err != nil {
		c.logger.WithError(err).Warn("failed to decode cached evaluation")
		c.recordMiss()
		return nil, false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()

	return &eval, true
}

// SetLatest stores the evaluation under the latest key with the cache TTL.
func (c *RedisEvaluationCache) SetLatest(ctx context.Context, eval *models.Evaluation) error {
	data, err := json.Marshal(eval)
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, latestEvaluationKey, data, c.ttl).Err(); err != nil {
		return err
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"evaluation_id": eval.ID,
		"ttl":           c.ttl,
	}).Debug("cached latest evaluation")
	return nil
}

// Invalidate drops the cached latest evaluation.
func (c *RedisEvaluationCache) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, latestEvaluationKey).Err()
}

// GetStats returns a copy of the current counters.
func (c *RedisEvaluationCache) GetStats() CacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return CacheStats{
		Hits:   c.stats.Hits,
		Misses: c.stats.Misses,
		Sets:   c.stats.Sets,
	}
}

func (c *RedisEvaluationCache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
