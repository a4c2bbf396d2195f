// Package cache implements the two-tier cache behind the aggregators: a
// bounded in-memory LRU fast tier in front of an optional durable store
// (SQLite or Redis). The facade owns TTL checks, tier promotion, and the
// stale-read fallback; the stores are plain key-value holders.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize is the fast-tier capacity in entries.
const DefaultMemorySize = 100

var (
	// ErrNotFound means no entry exists in any tier.
	ErrNotFound = errors.New("cache entry not found")
	// ErrExpired means an entry was found but its TTL has lapsed.
	ErrExpired = errors.New("cache entry expired")
)

// Entry is a serialized value with its expiry. Each tier stores its own
// copy; entries are never shared by reference across tiers.
type Entry struct {
	Value     []byte
	ExpiresAt time.Time
}

// Expired reports whether the entry's TTL has lapsed.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is a durable cache tier. Implementations do not interpret TTLs on
// reads; the facade decides what an expired entry means.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	// CleanupExpired deletes rows whose expiry precedes now and returns
	// how many were removed.
	CleanupExpired(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// Cache is the tiered cache facade.
type Cache struct {
	memory  *lru.Cache[string, Entry]
	durable Store // nil for memory-only caches
}

// New creates a cache backed by the given durable store. Pass nil for a
// memory-only cache.
func New(durable Store) (*Cache, error) {
	return NewWithSize(durable, DefaultMemorySize)
}

// NewWithSize creates a cache with a custom fast-tier capacity.
func NewWithSize(durable Store, memorySize int) (*Cache, error) {
	mem, err := lru.New[string, Entry](memorySize)
	if err != nil {
		return nil, fmt.Errorf("creating memory tier: %w", err)
	}
	return &Cache{memory: mem, durable: durable}, nil
}

// Set serializes value and writes it to both tiers with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("serializing %q: %w", key, err)
	}
	entry := Entry{Value: raw, ExpiresAt: time.Now().Add(ttl)}

	c.memory.Add(key, entry)

	if c.durable != nil {
		if err := c.durable.Put(ctx, key, entry); err != nil {
			return fmt.Errorf("writing %q to durable tier: %w", key, err)
		}
	}
	return nil
}

// Get reads key into dest. The fast tier is checked first; a valid durable
// hit is promoted into the fast tier before returning. Returns ErrNotFound
// if no tier holds the key and ErrExpired if only a lapsed entry exists.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	now := time.Now()

	if entry, ok := c.memory.Get(key); ok {
		if !entry.Expired(now) {
			return decode(key, entry, dest)
		}
		c.memory.Remove(key)
	}

	if c.durable == nil {
		return fmt.Errorf("%q: %w", key, ErrNotFound)
	}

	entry, ok, err := c.durable.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("reading %q from durable tier: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	if entry.Expired(now) {
		if err := c.durable.Delete(ctx, key); err != nil {
			log.Printf("cache: deleting expired %q: %v", key, err)
		}
		return fmt.Errorf("%q: %w", key, ErrExpired)
	}

	// Promote so the next read is a memory hit.
	c.memory.Add(key, entry)
	return decode(key, entry, dest)
}

// GetStale reads key into dest ignoring expiry, for fallback paths when the
// upstream fetch fails. It reports whether any entry was found.
func (c *Cache) GetStale(ctx context.Context, key string, dest any) bool {
	if entry, ok := c.memory.Peek(key); ok {
		if decode(key, entry, dest) == nil {
			return true
		}
	}
	if c.durable == nil {
		return false
	}
	entry, ok, err := c.durable.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return decode(key, entry, dest) == nil
}

// Exists reports whether key resolves to a live entry.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	var raw json.RawMessage
	return c.Get(ctx, key, &raw) == nil
}

// Delete removes key from both tiers. Deleting an absent key is not an
// error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.memory.Remove(key)
	if c.durable != nil {
		if err := c.durable.Delete(ctx, key); err != nil {
			return fmt.Errorf("deleting %q from durable tier: %w", key, err)
		}
	}
	return nil
}

// Clear removes every entry from both tiers.
func (c *Cache) Clear(ctx context.Context) error {
	c.memory.Purge()
	if c.durable != nil {
		if err := c.durable.Clear(ctx); err != nil {
			return fmt.Errorf("clearing durable tier: %w", err)
		}
	}
	return nil
}

// CleanupExpired sweeps lapsed rows out of the durable tier and returns the
// number removed. Intended to run on a schedule, independent of reads.
func (c *Cache) CleanupExpired(ctx context.Context) (int, error) {
	if c.durable == nil {
		return 0, nil
	}
	n, err := c.durable.CleanupExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("cleaning durable tier: %w", err)
	}
	return n, nil
}

// Close releases the durable store, if any.
func (c *Cache) Close() error {
	if c.durable != nil {
		return c.durable.Close()
	}
	return nil
}

func decode(key string, entry Entry, dest any) error {
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return fmt.Errorf("decoding %q: %w", key, err)
	}
	return nil
}
