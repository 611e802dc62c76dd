package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feedr-app/backend/internal/models"
)

const cachePrefix = "embed:"

// RedisCache stores resolved embeds under embed:<platform>:<sha256(url)>.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed embed cache. ttl <= 0 keeps entries forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

type cachedEmbed struct {
	Provider string `json:"provider"`
	Title    string `json:"title"`
	HTML     string `json:"html"`
}

// CacheKey returns the Redis key for a lookup.
func CacheKey(platform models.Platform, contentURL string) string {
	sum := sha256.Sum256([]byte(contentURL))
	return cachePrefix + string(platform) + ":" + hex.EncodeToString(sum[:])
}

// Get returns a cached embed.
func (c *RedisCache) Get(ctx context.Context, platform models.Platform, contentURL string) (models.Embed, bool, error) {
	raw, err := c.client.Get(ctx, CacheKey(platform, contentURL)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Embed{}, false, nil
	}
	if err != nil {
		return models.Embed{}, false, fmt.Errorf("cache get: %w", err)
	}
	var ce cachedEmbed
	if err := json.Unmarshal(raw, &ce); err != nil {
		return models.Embed{}, false, fmt.Errorf("cache decode: %w", err)
	}
	return models.Embed{Provider: ce.Provider, Title: ce.Title, HTML: ce.HTML}, true, nil
}

// Set stores an embed.
func (c *RedisCache) Set(ctx context.Context, platform models.Platform, contentURL string, e models.Embed) error {
	raw, err := json.Marshal(cachedEmbed{Provider: e.Provider, Title: e.Title, HTML: e.HTML})
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, CacheKey(platform, contentURL), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
