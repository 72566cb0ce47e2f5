package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medfolio/backend/internal/storage/models"
	"github.com/medfolio/backend/pkg/logger"
)

const redisKeyPrefix = "search:"

// Redis is a ResultCache backed by a shared Redis instance, for deployments
// running more than one API process. The sliding TTL maps to GETEX; coarse
// per-user invalidation is a SCAN over the user's namespace. Capacity is
// left to the server's eviction policy.
type Redis struct {
	client  *redis.Client
	ttl     time.Duration
	maxSize int
}

func NewRedis(host string, port int, password string, db int, capacity int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultMaxEntries
	}

	logger.Info("Redis result cache initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Redis{client: client, ttl: ttl, maxSize: capacity}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context, query, userID string, filters Filters) ([]models.DocumentRecord, bool) {
	key := redisKeyPrefix + Key(query, userID, filters)

	data, err := r.client.GetEx(ctx, key, r.ttl).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Warn("Redis cache get failed", zap.Error(err))
		return nil, false
	}

	var value []models.DocumentRecord
	if err := json.Unmarshal(data, &value); err != nil {
		logger.Warn("Redis cache entry corrupt, treating as miss", zap.Error(err))
		r.client.Del(ctx, key)
		return nil, false
	}
	return value, true
}

func (r *Redis) Set(ctx context.Context, query, userID string, filters Filters, value []models.DocumentRecord) {
	key := redisKeyPrefix + Key(query, userID, filters)

	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Failed to marshal cache value", zap.Error(err))
		return
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		logger.Warn("Redis cache set failed", zap.Error(err))
	}
}

func (r *Redis) InvalidateUser(ctx context.Context, userID string) {
	pattern := redisKeyPrefix + userID + ":*"

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warn("Failed to iterate cache keys", zap.Error(err))
	}
}

// Stats counts the live entries in the cache namespace. Size is -1 when the
// server cannot be reached.
func (r *Redis) Stats() Stats {
	ctx := context.Background()

	size := 0
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		size++
	}
	if err := iter.Err(); err != nil {
		logger.Warn("Failed to count cache keys", zap.Error(err))
		size = -1
	}

	return Stats{Size: size, MaxSize: r.maxSize, TTL: r.ttl}
}
