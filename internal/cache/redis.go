package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix  = "emcockpit:cache:"
	redisExpiryZSet = "emcockpit:cache_expiries"
)

// RedisStore is an alternative durable tier for setups where the cockpit
// runs on more than one machine. Entries carry their own expiry instead of
// a Redis TTL so that stale reads stay possible; the ZSET index drives the
// cleanup sweep.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig holds connection settings for the Redis tier.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	UseTLS   bool
}

// NewRedisStore connects a durable tier to the given Redis instance.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &RedisStore{client: redis.NewClient(opts)}
}

type redisEntry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Get returns the raw entry for key, expired or not.
func (r *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get: %w", err)
	}

	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decoding redis entry: %w", err)
	}
	return Entry{Value: e.Value, ExpiresAt: e.ExpiresAt}, true, nil
}

// Put upserts the entry for key and indexes its expiry.
func (r *RedisStore) Put(ctx context.Context, key string, e Entry) error {
	raw, err := json.Marshal(redisEntry{Value: e.Value, ExpiresAt: e.ExpiresAt})
	if err != nil {
		return fmt.Errorf("encoding redis entry: %w", err)
	}

	if err := r.client.Set(ctx, redisKeyPrefix+key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return r.client.ZAdd(ctx, redisExpiryZSet, redis.Z{
		Score:  float64(e.ExpiresAt.Unix()),
		Member: redisKeyPrefix + key,
	}).Err()
}

// Delete removes the entry for key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return r.client.ZRem(ctx, redisExpiryZSet, redisKeyPrefix+key).Err()
}

// Clear removes every indexed entry.
func (r *RedisStore) Clear(ctx context.Context) error {
	keys, err := r.client.ZRange(ctx, redisExpiryZSet, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis zrange: %w", err)
	}
	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return r.client.Del(ctx, redisExpiryZSet).Err()
}

// CleanupExpired deletes entries whose expiry precedes now.
func (r *RedisStore) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := strconv.FormatInt(now.Unix(), 10)
	keys, err := r.client.ZRangeByScore(ctx, redisExpiryZSet, &redis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zrangebyscore: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	if err := r.client.ZRem(ctx, redisExpiryZSet, toMembers(keys)...).Err(); err != nil {
		return 0, fmt.Errorf("redis zrem: %w", err)
	}
	return len(keys), nil
}

// Close closes the client connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func toMembers(keys []string) []any {
	members := make([]any, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	return members
}
