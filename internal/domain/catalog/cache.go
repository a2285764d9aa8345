package catalog

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Cache holds a snapshot of the full catalog listing.
type Cache interface {
	// Get returns the cached listing and whether it was present.
	Get(ctx context.Context) ([]Product, bool, error)
	Set(ctx context.Context, products []Product) error
	Invalidate(ctx context.Context) error
}

// CachedLister serves List from a Cache, falling back to the Repository on a
// miss. Cache failures are logged and never fail the read.
type CachedLister struct {
	products Repository
	cache    Cache
}

// NewCachedLister wraps products with a read-through cache.
func NewCachedLister(products Repository, cache Cache) *CachedLister {
	return &CachedLister{products: products, cache: cache}
}

// List returns the catalog, preferring the cached snapshot.
func (c *CachedLister) List(ctx context.Context) ([]Product, error) {
	lg := zctx.From(ctx)

	products, ok, err := c.cache.Get(ctx)
	if err != nil {
		lg.Warn("Catalog cache read failed", zap.Error(err))
	}
	if ok {
		return products, nil
	}

	products, err = c.products.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, products); err != nil {
		lg.Warn("Catalog cache write failed", zap.Error(err))
	}
	return products, nil
}

// GetByID always reads through to the Repository so stock checks see the
// current quantities.
func (c *CachedLister) GetByID(ctx context.Context, id string) (*Product, error) {
	return c.products.GetByID(ctx, id)
}

// MarkStale drops the cached snapshot so the next List reloads it.
func (c *CachedLister) MarkStale(ctx context.Context) {
	if err := c.cache.Invalidate(ctx); err != nil {
		zctx.From(ctx).Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}
