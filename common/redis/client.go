package redis

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/common/config"
)

// Client is the go-redis client used across the service.
type Client = redis.Client

// NewRedisClient creates a client from cfg.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close closes the client.
func Close(client *redis.Client) error {
	return client.Close()
}
