package redisstore

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/combo-store/internal/domain/catalog"
)

const catalogKey = "store:catalog:products"

var _ catalog.Cache = (*CatalogCache)(nil)

// CatalogCache holds the full product listing as a single JSON value.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache returns a CatalogCache whose snapshot expires after ttl.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

// Get returns the cached listing and whether it was present.
func (c *CatalogCache) Get(ctx context.Context) ([]catalog.Product, bool, error) {
	var products []catalog.Product
	ok, err := getJSON(ctx, c.client, catalogKey, &products)
	if err != nil || !ok {
		return nil, false, err
	}
	return products, true, nil
}

// Set stores the listing with the configured TTL.
func (c *CatalogCache) Set(ctx context.Context, products []catalog.Product) error {
	return setJSON(ctx, c.client, catalogKey, products, c.ttl)
}

// Invalidate deletes the cached listing.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, catalogKey).Err(); err != nil {
		return errors.Wrap(err, "invalidate catalog")
	}
	return nil
}
