// Package cache keeps a short-lived Redis copy of per-day slot listings.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/repository"
)

const (
	keyPrefix = "slots:"
	genPrefix = "slotgen:"
	genTTL    = 24 * time.Hour
)

var errStaleFill = errors.New("slot listing changed during read")

// Key is the Redis key holding one experience's slots on date.
func Key(experienceID, date string) string {
	return keyPrefix + experienceID + ":" + date
}

// GenerationKey is the counter bumped each time the entry at key is invalidated.
func GenerationKey(key string) string {
	return genPrefix + strings.TrimPrefix(key, keyPrefix)
}

// Connect opens a Redis client from a redis:// URL or a bare host:port and pings it.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(url, "://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// SlotCache decorates a SlotStore with a read-through cache for GetSlots. Every capacity
// change made through it drops the affected day's entry and bumps its generation; a fill
// that started before the bump is discarded. Redis failures degrade to the underlying store.
type SlotCache struct {
	repository.SlotStore
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// NewSlotCache wraps store.
func NewSlotCache(store repository.SlotStore, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *SlotCache {
	return &SlotCache{SlotStore: store, rdb: rdb, ttl: ttl, log: log}
}

func (c *SlotCache) GetSlots(ctx context.Context, experienceID, date string) ([]model.AvailabilitySlot, error) {
	key := Key(experienceID, date)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var slots []model.AvailabilitySlot
		if err := json.Unmarshal(raw, &slots); err == nil {
			return slots, nil
		}
		c.log.Warn("discarding corrupt slot cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("slot cache read failed", "key", key, "err", err)
		return c.SlotStore.GetSlots(ctx, experienceID, date)
	}

	gen, err := c.generation(ctx, c.rdb, key)
	if err != nil {
		c.log.Warn("slot cache generation read failed", "key", key, "err", err)
		return c.SlotStore.GetSlots(ctx, experienceID, date)
	}
	slots, err := c.SlotStore.GetSlots(ctx, experienceID, date)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, key, gen, slots)
	return slots, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *SlotCache) generation(ctx context.Context, cmd getter, key string) (int64, error) {
	gen, err := cmd.Get(ctx, GenerationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// fill stores slots under key unless key was invalidated since gen was read.
func (c *SlotCache) fill(ctx context.Context, key string, gen int64, slots []model.AvailabilitySlot) {
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := c.generation(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, GenerationKey(key))
	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("slot cache fill skipped", "key", key)
	default:
		c.log.Warn("slot cache write failed", "key", key, "err", err)
	}
}

func (c *SlotCache) CreateSlots(ctx context.Context, slots []model.AvailabilitySlot) error {
	if err := c.SlotStore.CreateSlots(ctx, slots); err != nil {
		return err
	}
	keys := make([]string, 0, len(slots))
	seen := make(map[string]bool, len(slots))
	for _, s := range slots {
		k := Key(s.ExperienceID, s.Date)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	c.invalidate(ctx, keys...)
	return nil
}

func (c *SlotCache) DecrementCapacity(ctx context.Context, slotID string, amount int) (*model.AvailabilitySlot, error) {
	s, err := c.SlotStore.DecrementCapacity(ctx, slotID, amount)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, Key(s.ExperienceID, s.Date))
	return s, nil
}

func (c *SlotCache) IncrementCapacity(ctx context.Context, slotID string, amount int) (*model.AvailabilitySlot, error) {
	s, err := c.SlotStore.IncrementCapacity(ctx, slotID, amount)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, Key(s.ExperienceID, s.Date))
	return s, nil
}

// ArchiveBefore archives in the store, then drops cached days dated before date.
func (c *SlotCache) ArchiveBefore(ctx context.Context, date string) (int64, error) {
	n, err := c.SlotStore.ArchiveBefore(ctx, date)
	if err != nil {
		return 0, err
	}
	var stale []string
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if i := strings.LastIndexByte(k, ':'); i >= 0 && k[i+1:] < date {
			stale = append(stale, k)
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("slot cache scan failed", "err", err)
	}
	c.invalidate(ctx, stale...)
	return n, nil
}

func (c *SlotCache) invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keys...)
		for _, k := range keys {
			p.Incr(ctx, GenerationKey(k))
			p.Expire(ctx, GenerationKey(k), genTTL)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("slot cache invalidation failed", "keys", keys, "err", err)
	}
}

var _ repository.SlotStore = (*SlotCache)(nil)
