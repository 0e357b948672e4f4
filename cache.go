package wikiengine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eringen/wikiengine/pages"
)

// SitemapSource builds a fresh sitemap. *pages.Handler implements it.
type SitemapSource interface {
	Pages(ctx context.Context) ([]pages.SitemapEntry, error)
}

// SitemapCache is an in-memory cache of the sitemap with TTL.
type SitemapCache struct {
	mu      sync.RWMutex
	entries []pages.SitemapEntry
	fetched time.Time
	ttl     time.Duration
	source  SitemapSource
}

// NewSitemapCache creates a SitemapCache backed by the given source.
func NewSitemapCache(src SitemapSource, ttl time.Duration) *SitemapCache {
	return &SitemapCache{source: src, ttl: ttl}
}

func (c *SitemapCache) valid() bool {
	return c.entries != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh build.
func (c *SitemapCache) Invalidate() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}

// Entries returns the cached sitemap, rebuilding it when stale. It tries a
// read lock first and only takes the write lock when a rebuild is needed.
func (c *SitemapCache) Entries(ctx context.Context) ([]pages.SitemapEntry, error) {
	c.mu.RLock()
	if c.valid() {
		entries := c.entries
		c.mu.RUnlock()
		return entries, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.entries, nil
	}
	entries, err := c.source.Pages(ctx)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []pages.SitemapEntry{}
	}
	c.entries = entries
	c.fetched = time.Now()
	return entries, nil
}

// Recent returns up to n dated entries, newest first.
func (c *SitemapCache) Recent(ctx context.Context, n int) ([]pages.SitemapEntry, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return nil, err
	}
	var dated []pages.SitemapEntry
	for _, e := range entries {
		if e.Date != nil {
			dated = append(dated, e)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return *dated[i].Date > *dated[j].Date
	})
	if len(dated) > n {
		dated = dated[:n]
	}
	return dated, nil
}
