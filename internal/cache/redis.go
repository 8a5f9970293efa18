package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/surflog/surf-forecast-service/internal/surfline"
)

// Redis is a spot cache backed by a Redis instance, for deployments running
// more than one service replica. Cache misses are indistinguishable from
// Redis failures: both fall through to a provider lookup.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis creates a Redis-backed spot cache. A ttl of 0 stores entries
// without expiry.
func NewRedis(addr, password string, db int, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl:    ttl,
		logger: logger,
	}
}

func (r *Redis) Get(ctx context.Context, key string) (surfline.SpotReference, bool) {
	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("redis spot cache get failed", "key", key, "error", err)
		}
		return surfline.SpotReference{}, false
	}

	var ref surfline.SpotReference
	if err := json.Unmarshal(data, &ref); err != nil {
		r.logger.Warn("redis spot cache entry malformed", "key", key, "error", err)
		return surfline.SpotReference{}, false
	}
	return ref, true
}

func (r *Redis) Set(ctx context.Context, key string, ref surfline.SpotReference) {
	data, err := json.Marshal(ref)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, redisKey(key), data, r.ttl).Err(); err != nil {
		r.logger.Warn("redis spot cache set failed", "key", key, "error", err)
	}
}

// Close releases the underlying Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

func redisKey(key string) string {
	return "spot:" + key
}
