// Package cache mirrors the active alert set into Redis so other processes
// (chat bots, dashboards) can read it without holding the engine lock.
// Writes are best-effort: cache errors are logged and never block the engine.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/telemon/telemon/internal/alerting/model"
)

const (
	keyPrefix  = "alert:active:"
	defaultTTL = 24 * time.Hour
	opTimeout  = 2 * time.Second
)

// AlertCache is a write-through mirror of the active alert collection.
type AlertCache interface {
	WriteAlert(ctx context.Context, a *model.Alert) error
	DeleteAlert(ctx context.Context, id string) error
	Close() error
}

// RedisCache stores each active alert as a JSON value under alert:active:<id>.
type RedisCache struct {
	r   *redis.Client
	ttl time.Duration
}

// NewRedisCache wraps an existing client. A nil client yields a NoopCache.
func NewRedisCache(r *redis.Client) AlertCache {
	if r == nil {
		return NoopCache{}
	}
	return &RedisCache{r: r, ttl: defaultTTL}
}

func (c *RedisCache) WriteAlert(ctx context.Context, a *model.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert %s: %w", a.ID, err)
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.r.Set(ctx, keyPrefix+a.ID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache alert %s: %w", a.ID, err)
	}
	return nil
}

func (c *RedisCache) DeleteAlert(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.r.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("evict alert %s: %w", id, err)
	}
	return nil
}

func (c *RedisCache) Close() error { return c.r.Close() }

// NoopCache is used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) WriteAlert(context.Context, *model.Alert) error { return nil }
func (NoopCache) DeleteAlert(context.Context, string) error      { return nil }
func (NoopCache) Close() error                                   { return nil }

// EngineHooks returns fired/resolved hooks that keep the cache in sync with
// the engine's active collection.
func EngineHooks(c AlertCache) (onFired func(model.Alert), onResolved func(model.Alert)) {
	onFired = func(a model.Alert) {
		if err := c.WriteAlert(context.Background(), &a); err != nil {
			log.Error().Err(err).Str("alert_id", a.ID).Msg("alert cache write failed")
		}
	}
	onResolved = func(a model.Alert) {
		if err := c.DeleteAlert(context.Background(), a.ID); err != nil {
			log.Error().Err(err).Str("alert_id", a.ID).Msg("alert cache evict failed")
		}
	}
	return onFired, onResolved
}
