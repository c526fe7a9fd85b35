package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	redisdb *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *RedisClient {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &RedisClient{redisdb: redisdb}
}

// Ping checks redis connectivity.
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *RedisClient) Close() error {
	return c.redisdb.Close()
}

func (c *RedisClient) Raw() *redis.Client {
	return c.redisdb
}
