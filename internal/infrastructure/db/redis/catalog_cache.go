package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/assetverse/asset-system/internal/core/domain"
	"github.com/assetverse/asset-system/internal/core/ports"
)

const (
	catalogTTL        = 30 * time.Second
	catalogVersionKey = "catalog:ver"
)

// CatalogCache caches available-asset listings in Redis for a short TTL.
// Invalidation bumps a version counter baked into every key, so stale
// entries simply stop being addressed and age out on their own.
// Every failure path degrades to a cache miss; Redis being down never
// breaks the listing.
type CatalogCache struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewCatalogCache creates a CatalogCache wrapping the given Redis client.
func NewCatalogCache(client *redis.Client, log zerolog.Logger) *CatalogCache {
	return &CatalogCache{client: client, log: log}
}

// Get returns the cached listing for the filter, if fresh.
func (c *CatalogCache) Get(ctx context.Context, filter ports.AssetFilter) ([]*domain.Asset, bool) {
	key, err := c.key(ctx, filter)
	if err != nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Msg("catalog cache read failed")
		}
		return nil, false
	}

	var assets []*domain.Asset
	if err := json.Unmarshal(raw, &assets); err != nil {
		c.log.Warn().Err(err).Msg("catalog cache entry corrupt")
		return nil, false
	}
	return assets, true
}

// Set stores the listing under the current catalog version.
func (c *CatalogCache) Set(ctx context.Context, filter ports.AssetFilter, assets []*domain.Asset) {
	key, err := c.key(ctx, filter)
	if err != nil {
		return
	}

	raw, err := json.Marshal(assets)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, key, raw, catalogTTL).Err(); err != nil {
		c.log.Warn().Err(err).Msg("catalog cache write failed")
	}
}

// Invalidate bumps the catalog version, orphaning every cached listing.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, catalogVersionKey).Err(); err != nil {
		c.log.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

func (c *CatalogCache) key(ctx context.Context, filter ports.AssetFilter) (string, error) {
	ver, err := c.client.Get(ctx, catalogVersionKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("catalog:v%d:search=%s:type=%s:owner=%s",
		ver, filter.Search, filter.Type, filter.OwnerHR), nil
}
