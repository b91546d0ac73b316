// Package cache keeps reviewed applications in memory. Reviewed rows are
// terminal, so an entry can never go stale; the TTL only bounds memory.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"wl-portal/internal/metrics"
	"wl-portal/internal/models"
)

// DetailCache is an LRU of reviewed applications keyed by id
type DetailCache struct {
	lru     *expirable.LRU[int64, *models.Application]
	metrics *metrics.Metrics
}

// NewDetailCache creates a cache holding at most size entries for ttl
func NewDetailCache(size int, ttl time.Duration, m *metrics.Metrics) *DetailCache {
	if size <= 0 {
		size = 1
	}
	return &DetailCache{
		lru:     expirable.NewLRU[int64, *models.Application](size, nil, ttl),
		metrics: m,
	}
}

// Get returns a cached application
func (c *DetailCache) Get(id int64) (*models.Application, bool) {
	app, ok := c.lru.Get(id)
	if ok {
		c.metrics.CacheHit()
		return app, true
	}
	c.metrics.CacheMiss()
	return nil, false
}

// Set stores app if it is in a terminal status. Pending rows are skipped.
func (c *DetailCache) Set(app *models.Application) {
	if app == nil || !app.Status.IsTerminal() {
		return
	}
	c.lru.Add(app.ID, app)
}

// Len returns the number of cached entries
func (c *DetailCache) Len() int {
	return c.lru.Len()
}
