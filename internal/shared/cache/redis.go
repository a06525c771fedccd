package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/groveshop/storefront/internal/shared/config"
	"github.com/redis/go-redis/v9"
)

// pingTimeout bounds the startup connectivity check so a dead Redis
// fails the boot quickly instead of hanging it.
const pingTimeout = 5 * time.Second

// NewRedisClient creates a Redis client and verifies connectivity.
func NewRedisClient(cfg *config.RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Address,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "storefront",
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// Close closes the Redis client.
func Close(client redis.UniversalClient) error {
	return client.Close()
}
