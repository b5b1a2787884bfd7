package tomtom

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/cityflow/traffic-insight-service/internal/domain"
	"github.com/cityflow/traffic-insight-service/internal/observability"
)

// CachedProvider wraps a MapProvider with an in-memory LRU cache over the
// geocode and reverse-geocode operations. Route calculations pass through
// uncached: they depend on live traffic.
type CachedProvider struct {
	inner   domain.MapProvider
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner domain.MapProvider, maxEntries int, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedProvider) Geocode(ctx context.Context, query string, limit int, countrySet string) ([]domain.GeocodeResult, error) {
	key := fmt.Sprintf("search:%s|%d|%s", query, limit, countrySet)
	if cached, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("search", "hit").Inc()
		return cached.([]domain.GeocodeResult), nil
	}
	c.metrics.GeocodeCache.WithLabelValues("search", "miss").Inc()

	results, err := c.inner.Geocode(ctx, query, limit, countrySet)
	if err != nil {
		return results, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if len(results) > 0 {
		c.cache.put(key, results)
	}
	return results, nil
}

func (c *CachedProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("reverse:%.6f,%.6f", lat, lon)
	if cached, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("reverse", "hit").Inc()
		return cached.(string), nil
	}
	c.metrics.GeocodeCache.WithLabelValues("reverse", "miss").Inc()

	address, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return address, err
	}
	if address != "" {
		c.cache.put(key, address)
	}
	return address, nil
}

func (c *CachedProvider) CalculateRoutes(ctx context.Context, origin, destination domain.GeoPoint, maxAlternatives int) (domain.RouteSet, error) {
	return c.inner.CalculateRoutes(ctx, origin, destination, maxAlternatives)
}

// lruCache is a small thread-safe LRU built on container/list.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
}

type cacheEntry struct {
	key   string
	value any
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).value, true
}

func (c *lruCache) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).value = value
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, value: value})

	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}
