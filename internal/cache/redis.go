package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// ResultCache stores processed cover records keyed by the sha256 of the
// uploaded bytes. A nil client turns every call into a miss.
type ResultCache[T any] struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewResultCache[T any](rdb *redis.Client, prefix string, ttl time.Duration) *ResultCache[T] {
	return &ResultCache[T]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *ResultCache[T]) key(hash string) string { return c.prefix + hash }

// Get returns ok=false on a miss or when caching is disabled.
func (c *ResultCache[T]) Get(ctx context.Context, hash string) (v T, ok bool, err error) {
	if c == nil || c.rdb == nil {
		return v, false, nil
	}
	b, err := c.rdb.Get(ctx, c.key(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		// stale shape, treat as miss
		_ = c.rdb.Del(ctx, c.key(hash)).Err()
		return v, false, nil
	}
	return v, true, nil
}

func (c *ResultCache[T]) Set(ctx context.Context, hash string, v T) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(hash), b, c.ttl).Err()
}

func (c *ResultCache[T]) Delete(ctx context.Context, hash string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, c.key(hash)).Err()
}
