// Package cache provides a Redis read-through cache for catalog lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/models"
)

const keyPrefix = "storefront:product:"

// ProductCache is best-effort: Redis failures are logged and reported as
// misses so the database stays the source of truth.
type ProductCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log *slog.Logger
}

func NewProductCache(rdb redis.UniversalClient, ttl time.Duration, log *slog.Logger) *ProductCache {
	return &ProductCache{rdb: rdb, ttl: ttl, log: log}
}

// NewRedisClient dials Redis and pings it once.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func key(id uuid.UUID) string {
	return keyPrefix + id.String()
}

func (c *ProductCache) Get(ctx context.Context, id uuid.UUID) (*models.Product, bool) {
	data, err := c.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WarnContext(ctx, "product cache get failed", "product_id", id, "error", err)
		}
		metrics.CacheMissTotal.WithLabelValues("product").Inc()
		return nil, false
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		c.log.WarnContext(ctx, "product cache entry corrupt", "product_id", id, "error", err)
		metrics.CacheMissTotal.WithLabelValues("product").Inc()
		return nil, false
	}

	metrics.CacheHitTotal.WithLabelValues("product").Inc()
	return &product, true
}

func (c *ProductCache) Set(ctx context.Context, p *models.Product) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key(p.ID), data, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "product cache set failed", "product_id", p.ID, "error", err)
	}
}

func (c *ProductCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.rdb.Del(ctx, key(id)).Err(); err != nil {
		c.log.WarnContext(ctx, "product cache invalidate failed", "product_id", id, "error", err)
	}
}
