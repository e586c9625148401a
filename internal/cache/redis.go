package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lowfloat/catalystrun/internal/model"
)

// RedisTier is an optional shared L2 cache for multi-instance deployments,
// selected when CACHE_REDIS_ADDR is set. It sits between the in-process
// memory tier and the disk tier; absent a configured address the cache
// orchestrator skips straight to disk.
type RedisTier struct {
	client *redis.Client
}

// NewRedisTier dials addr (lazily — go-redis connects on first use).
func NewRedisTier(addr string) *RedisTier {
	return &RedisTier{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func redisKey(ticker string, interval model.Interval, start, end time.Time) string {
	return diskKey(ticker, interval, start, end)
}

// Get returns bars from Redis if present; errors (including connection
// failures) are treated as a miss so Redis unavailability degrades to the
// disk tier rather than failing the request.
func (r *RedisTier) Get(ctx context.Context, ticker string, interval model.Interval, start, end time.Time) ([]model.Bar, bool) {
	raw, err := r.client.Get(ctx, redisKey(ticker, interval, start, end)).Bytes()
	if err != nil {
		return nil, false
	}
	var bars []model.Bar
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&bars); err != nil {
		return nil, false
	}
	return bars, true
}

// Set writes bars to Redis with the given TTL. Errors are swallowed —
// Redis is an optimization, not a correctness requirement.
func (r *RedisTier) Set(ctx context.Context, ticker string, interval model.Interval, start, end time.Time, bars []model.Bar, ttl time.Duration) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(bars); err != nil {
		return
	}
	_ = r.client.Set(ctx, redisKey(ticker, interval, start, end), buf.Bytes(), ttl).Err()
}

// Close releases the Redis connection pool.
func (r *RedisTier) Close() error { return r.client.Close() }
