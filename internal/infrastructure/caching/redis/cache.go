package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
)

// TTL tiers, in increasing freshness order. Pick per data-volatility class,
// not per call site.
const (
	TTLStatic   = 60 * time.Minute // catalog-shape data
	TTLModerate = 15 * time.Minute // ad listings
	TTLDynamic  = 5 * time.Minute  // analytics over open-ended ranges
	TTLShort    = 2 * time.Minute  // anything that changes within a request's useful lifetime
)

const registryPrefix = "cachekeys:"

const spopBatch = 128

// Cache is a tiered read-through cache over Redis. Because Redis offers no
// pattern-based deletion we can afford on the hot path, every key written under
// a prefix is tracked in a per-prefix SET (SADD is atomic server-side, so
// concurrent writers never lose tracked keys). FlushPrefix drains that set and
// deletes the members.
//
// All methods are nil-receiver safe and fail open: a missing or broken cache
// degrades to direct computation, never to a caller-visible error.
type Cache struct {
	rdb *redis.Client
}

func New(url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Cache{rdb: rdb}, nil
}

// NewFromClient wraps an existing client; used by tests.
func NewFromClient(rdb *redis.Client) *Cache { return &Cache{rdb: rdb} }

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func key(prefix, k string) string { return prefix + ":" + k }

// Remember fills dest from cache when possible, otherwise runs compute (which
// must fill dest) and stores the result under prefix:key for ttl.
func (c *Cache) Remember(ctx context.Context, prefix, k string, ttl time.Duration, dest any, compute func(context.Context) error) error {
	full := key(prefix, k)

	if c != nil && c.rdb != nil {
		val, err := c.rdb.Get(ctx, full).Bytes()
		switch {
		case err == redis.Nil:
			// miss
		case err != nil:
			zlog.Warn().Err(err).Str("key", full).Msg("cache get failed")
		default:
			if err := json.Unmarshal(val, dest); err == nil {
				return nil
			}
			zlog.Warn().Str("key", full).Msg("cache entry unreadable, recomputing")
		}
	}

	if err := compute(ctx); err != nil {
		return err
	}

	if c == nil || c.rdb == nil {
		return nil
	}
	bytes, err := json.Marshal(dest)
	if err != nil {
		zlog.Warn().Err(err).Str("key", full).Msg("cache marshal failed")
		return nil
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, full, bytes, ttl)
	pipe.SAdd(ctx, registryPrefix+prefix, full)
	if _, err := pipe.Exec(ctx); err != nil {
		zlog.Warn().Err(err).Str("key", full).Msg("cache set failed")
	}
	return nil
}

// Forget drops a single tracked key.
func (c *Cache) Forget(ctx context.Context, prefix, k string) {
	if c == nil || c.rdb == nil {
		return
	}
	full := key(prefix, k)
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, full)
	pipe.SRem(ctx, registryPrefix+prefix, full)
	if _, err := pipe.Exec(ctx); err != nil {
		zlog.Warn().Err(err).Str("key", full).Msg("cache forget failed")
	}
}

// FlushPrefix deletes every key tracked under prefix. Members are drained with
// SPOP rather than SMEMBERS+DEL of the registry: a key SADDed by a concurrent
// writer either gets popped in a later round or stays tracked, so no live entry
// can outlast its registry record.
func (c *Cache) FlushPrefix(ctx context.Context, prefix string) {
	if c == nil || c.rdb == nil {
		return
	}
	reg := registryPrefix + prefix
	for {
		members, err := c.rdb.SPopN(ctx, reg, spopBatch).Result()
		if err != nil && err != redis.Nil {
			zlog.Warn().Err(err).Str("prefix", prefix).Msg("cache flush failed")
			return
		}
		if len(members) == 0 {
			return
		}
		if err := c.rdb.Del(ctx, members...).Err(); err != nil {
			zlog.Warn().Err(err).Str("prefix", prefix).Msg("cache flush delete failed")
			return
		}
	}
}
