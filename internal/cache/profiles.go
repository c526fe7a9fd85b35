package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/geocoder89/authhub/internal/domain/user"
)

// MemoryProfiles caches public user records in process.
type MemoryProfiles struct {
	c *Cache[user.User]
}

func NewMemoryProfiles(ttl time.Duration) *MemoryProfiles {
	return &MemoryProfiles{c: New[user.User](ttl)}
}

func (p *MemoryProfiles) Get(_ context.Context, email string) (user.User, bool) {
	return p.c.Get(email)
}

func (p *MemoryProfiles) Set(_ context.Context, u user.User) {
	p.c.Set(u.Email, u.Public())
}

const profileKeyPrefix = "authhub:profile:"

// RedisProfiles caches public user records in redis so several API
// instances share hits. Redis errors are logged and treated as misses.
type RedisProfiles struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisProfiles(client *RedisClient, ttl time.Duration, log *slog.Logger) *RedisProfiles {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisProfiles{rdb: client.Raw(), ttl: ttl, log: log}
}

func (p *RedisProfiles) Get(ctx context.Context, email string) (user.User, bool) {
	raw, err := p.rdb.Get(ctx, profileKeyPrefix+email).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.log.WarnContext(ctx, "profile cache read failed", "err", err)
		}
		return user.User{}, false
	}

	var u user.User
	if err := json.Unmarshal(raw, &u); err != nil {
		p.log.WarnContext(ctx, "profile cache entry unreadable", "err", err)
		return user.User{}, false
	}

	return u, true
}

func (p *RedisProfiles) Set(ctx context.Context, u user.User) {
	raw, err := json.Marshal(u.Public())
	if err != nil {
		return
	}

	if err := p.rdb.Set(ctx, profileKeyPrefix+u.Email, raw, p.ttl).Err(); err != nil {
		p.log.WarnContext(ctx, "profile cache write failed", "err", err)
	}
}
