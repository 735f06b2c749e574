package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/recapcrew/recap-engine/pkg/config"
)

// RedisDeduper remembers ingested source items in Redis. SET NX makes marking
// and checking one atomic step, so two concurrent batches cannot both claim
// the same item.
type RedisDeduper struct {
	client *redis.Client
}

// NewRedisDeduper connects to Redis and verifies the connection.
func NewRedisDeduper(cfg *config.RedisConfig) (*RedisDeduper, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisDeduper{client: client}, nil
}

// MarkSeen returns true when the key was not seen within the ttl window.
func (d *RedisDeduper) MarkSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return d.client.SetNX(ctx, key, "1", ttl).Result()
}

// Close releases the Redis connection.
func (d *RedisDeduper) Close() error {
	return d.client.Close()
}
