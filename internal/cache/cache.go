// Package cache is an optional Redis-backed cache of standardization
// results. Classification is deterministic, so a cached record for an
// address never goes stale; the TTL only bounds memory.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhongyd/addrnorm/internal/addr"
)

const keyPrefix = "addrnorm:"

// Entry is the cached unit: the entities extracted for an address and the
// level record derived from them.
type Entry struct {
	Entities map[string]string `json:"entities"`
	Levels   addr.LevelRecord  `json:"levels"`
}

// ResultCache wraps a go-redis client with hashed keys and hit/miss
// counters.
type ResultCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	log    *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New connects to Redis and verifies the connection with a PING.
func New(redisAddr, password string, db int, ttl time.Duration, log *slog.Logger) (*ResultCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &ResultCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With("component", "result-cache"),
	}, nil
}

// Get returns the cached entry for address, if present.
func (c *ResultCache) Get(ctx context.Context, address string) (*Entry, bool) {
	key := buildKey(address)
	data, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.log.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &entry, true
}

// Set stores an entry for address with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, address string, entry *Entry) {
	key := buildKey(address)
	data, err := json.Marshal(entry)
	if err != nil {
		c.log.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Error("cache set failed", "key", key, "error", err)
	}
}

// Stats returns cumulative hit and miss counts.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close closes the underlying Redis connection.
func (c *ResultCache) Close() error {
	return c.rdb.Close()
}

func buildKey(address string) string {
	hash := sha256.Sum256([]byte(address))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
