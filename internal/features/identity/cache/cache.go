// Package cache is the TTL-bounded local identity cache. Expiry is lazy:
// a stale entry is deleted as a side effect of the read that found it
// stale, there is no background sweep. Storage failures and corrupt
// entries degrade to a miss, never an error the orchestrator has to
// handle.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"miniapp-sync-backend/internal/common/logger"
	"miniapp-sync-backend/internal/features/identity/models"
	rplatform "miniapp-sync-backend/internal/platform/redis"
)

// KV is the minimal key/value surface the cache needs from its storage.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// ErrMiss is what KV implementations return for an absent key.
var ErrMiss = fmt.Errorf("cache: key not found")

type Cache struct {
	kv  KV
	ttl time.Duration

	// now is replaceable so the freshness boundary is testable to the
	// millisecond.
	now func() time.Time
}

func New(kv KV, ttl time.Duration) *Cache {
	return &Cache{kv: kv, ttl: ttl, now: time.Now}
}

func key(id string) string {
	return fmt.Sprintf("user_%s", id)
}

// Get returns the cached identity for id, or nil on a miss. An entry at
// or past the TTL is purged and reported as a miss.
func (c *Cache) Get(ctx context.Context, id string) *models.CachedIdentity {
	data, err := c.kv.Get(ctx, key(id))
	if err != nil {
		if err != ErrMiss {
			logger.Debug().Err(err).Str("id", id).Msg("cache read failed")
		}
		return nil
	}

	var entry models.CachedIdentity
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		// Corrupt entry: drop it so it cannot poison later reads.
		_ = c.kv.Del(ctx, key(id))
		logger.Debug().Err(err).Str("id", id).Msg("corrupt cache entry purged")
		return nil
	}

	if !entry.Fresh(c.now(), c.ttl) {
		_ = c.kv.Del(ctx, key(id))
		logger.Debug().Str("id", id).Msg("stale cache entry purged")
		return nil
	}
	return &entry
}

// Put stores identity with the current timestamp. Last write wins;
// failures are logged and dropped, the cache is an optimization.
func (c *Cache) Put(ctx context.Context, identity models.Identity) {
	entry := models.CachedIdentity{Identity: identity, CachedAt: c.now()}
	data, err := json.Marshal(entry)
	if err != nil {
		logger.Debug().Err(err).Str("id", identity.ID).Msg("cache entry marshal failed")
		return
	}
	if err := c.kv.Set(ctx, key(identity.ID), string(data), c.ttl); err != nil {
		logger.Debug().Err(err).Str("id", identity.ID).Msg("cache write failed")
	}
}

// Invalidate removes the entry for id.
func (c *Cache) Invalidate(ctx context.Context, id string) {
	if err := c.kv.Del(ctx, key(id)); err != nil {
		logger.Debug().Err(err).Str("id", id).Msg("cache invalidate failed")
	}
}

// redisKV adapts the platform Redis client to KV.
type redisKV struct {
	client *rplatform.Client
}

func NewRedisKV(client *rplatform.Client) KV {
	return &redisKV{client: client}
}

func (r *redisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", ErrMiss
	}
	return v, err
}

func (r *redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisKV) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
