package cache

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/authhub/internal/domain/user"
)

func TestCache_ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New[string](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	now = now.Add(61 * time.Second)

	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New[int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set("k", i)
			c.Get("k")
		}(i)
	}
	wg.Wait()

	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestMemoryProfiles_StripsHash(t *testing.T) {
	p := NewMemoryProfiles(time.Minute)
	ctx := context.Background()

	p.Set(ctx, user.User{ID: 1, Email: "sam@example.com", PasswordHash: "$2a$10$x", Role: user.RoleStudent})

	got, ok := p.Get(ctx, "sam@example.com")
	require.True(t, ok)
	assert.Empty(t, got.PasswordHash)
	assert.Equal(t, user.RoleStudent, got.Role)

	_, ok = p.Get(ctx, "other@example.com")
	assert.False(t, ok)
}

// needs a reachable redis in TEST_REDIS_ADDR
func TestRedisProfiles_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis test")
	}

	client := NewRedisClient(RedisConfig{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))

	p := NewRedisProfiles(client, time.Minute, nil)
	email := "redis-" + time.Now().Format("150405.000000") + "@example.com"
	t.Cleanup(func() { client.Raw().Del(ctx, profileKeyPrefix+email) })

	_, ok := p.Get(ctx, email)
	assert.False(t, ok)

	p.Set(ctx, user.User{ID: 9, Email: email, PasswordHash: "secret-hash", Role: user.RoleVendor})

	got, ok := p.Get(ctx, email)
	require.True(t, ok)
	assert.Equal(t, int64(9), got.ID)
	assert.Empty(t, got.PasswordHash)

	raw, err := client.Raw().Get(ctx, profileKeyPrefix+email).Result()
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret-hash")
}
