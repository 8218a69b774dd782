package game

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// Cache provides Redis-backed definition caching so session evaluation does
// not hit the database on every event.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(gameID string) string {
	return fmt.Sprintf("game:def:%s", gameID)
}

// Get returns the cached definition or nil on a miss.
func (c *Cache) Get(ctx context.Context, gameID string) (*Definition, error) {
	data, err := c.client.Get(ctx, c.key(gameID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func (c *Cache) Set(ctx context.Context, def *Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(def.ID), data, c.ttl).Err()
}

// Invalidate drops a cached definition, e.g. after re-publishing a draft.
func (c *Cache) Invalidate(ctx context.Context, gameID string) error {
	return c.client.Del(ctx, c.key(gameID)).Err()
}
