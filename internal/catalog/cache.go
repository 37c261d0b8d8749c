package catalog

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/metrics"
)

// CachedCatalog keeps recently read products in a bounded LRU with a TTL.
// The TTL bounds how stale a "current price" can be when a product is first
// added to a cart, so keep it short.
type CachedCatalog struct {
	inner Catalog
	cache *expirable.LRU[string, Product]
}

func NewCachedCatalog(inner Catalog, size int, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		inner: inner,
		cache: expirable.NewLRU[string, Product](size, nil, ttl),
	}
}

func (c *CachedCatalog) Get(ctx context.Context, productID string) (Product, error) {
	if p, ok := c.cache.Get(productID); ok {
		metrics.CatalogCacheHits.Inc()
		return p, nil
	}
	metrics.CatalogCacheMisses.Inc()

	p, err := c.inner.Get(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	c.cache.Add(productID, p)
	return p, nil
}

func (c *CachedCatalog) GetMany(ctx context.Context, productIDs []string) (map[string]Product, error) {
	out := make(map[string]Product, len(productIDs))
	var missing []string
	for _, id := range productIDs {
		if p, ok := c.cache.Get(id); ok {
			out[id] = p
			continue
		}
		missing = append(missing, id)
	}
	metrics.CatalogCacheHits.Add(float64(len(out)))
	if len(missing) == 0 {
		return out, nil
	}
	metrics.CatalogCacheMisses.Add(float64(len(missing)))

	fetched, err := c.inner.GetMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, p := range fetched {
		c.cache.Add(id, p)
		out[id] = p
	}
	return out, nil
}

// Invalidate drops a product so the next read goes to the database.
func (c *CachedCatalog) Invalidate(productID string) {
	c.cache.Remove(productID)
}
