package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "reports:version"
	cachePrefix     = "reports"
)

// Cache keeps saved reports in Redis. Keys embed a global version so Bump drops every
// entry at once, and individual reports can be evicted with Forget.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds a cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current cache version, initialising it when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && ver <= 0) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	return ver, err
}

func (c *Cache) key(ctx context.Context, parts ...string) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:v%d", cachePrefix, strings.Join(parts, ":"), ver), nil
}

// Document returns the cached report id or loads and stores it.
func (c *Cache) Document(ctx context.Context, id string, load func(context.Context) (Document, error)) (Document, error) {
	if !c.enabled() {
		return load(ctx)
	}
	key, err := c.key(ctx, "saved", id)
	if err != nil {
		return load(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var doc Document
		if err := json.Unmarshal(payload, &doc); err == nil {
			return doc, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return load(ctx)
	}
	doc, err := load(ctx)
	if err != nil {
		return Document{}, err
	}
	_ = c.Put(ctx, doc)
	return doc, nil
}

// Put stores doc under its id. Documents without an id are not cached.
func (c *Cache) Put(ctx context.Context, doc Document) error {
	if !c.enabled() || doc.ID == "" {
		return nil
	}
	key, err := c.key(ctx, "saved", doc.ID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Forget evicts one report.
func (c *Cache) Forget(ctx context.Context, id string) error {
	if !c.enabled() {
		return nil
	}
	key, err := c.key(ctx, "saved", id)
	if err != nil {
		return err
	}
	return c.client.Del(ctx, key).Err()
}

// Bump invalidates every cached report.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}
