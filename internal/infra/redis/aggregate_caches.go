// Package redis holds Redis-backed caches for read-mostly aggregate views.
package redis

import (
	"context"
	"fmt"
	"time"

	"weblogger/internal/domain/hitcount"
	"weblogger/internal/domain/tagagg"
)

// PopularTagsCache caches popular-tag lists keyed by scope and page.
type PopularTagsCache struct {
	inner *snappyJSONCache
}

// NewPopularTagsCache creates a PopularTagsCache with the given TTL.
func NewPopularTagsCache(client bytesCacheClient, ttl time.Duration) *PopularTagsCache {
	return &PopularTagsCache{inner: newSnappyJSONCache(client, ttl)}
}

func popularTagsKey(scope string, offset, limit int) string {
	return fmt.Sprintf("tags:popular:%s:%d:%d", scope, offset, limit)
}

// Get returns the cached stats for the scope, reporting a hit.
func (c *PopularTagsCache) Get(ctx context.Context, scope string, offset, limit int) ([]tagagg.TagStat, bool, error) {
	var stats []tagagg.TagStat
	ok, err := c.inner.Get(ctx, popularTagsKey(scope, offset, limit), &stats)
	if err != nil || !ok {
		return nil, false, err
	}
	return stats, true, nil
}

// Set stores stats for the scope.
func (c *PopularTagsCache) Set(ctx context.Context, scope string, offset, limit int, stats []tagagg.TagStat) error {
	return c.inner.Set(ctx, popularTagsKey(scope, offset, limit), stats)
}

// HotWeblogsCache caches the hot-weblogs view keyed by window and page.
type HotWeblogsCache struct {
	inner *snappyJSONCache
}

// NewHotWeblogsCache creates a HotWeblogsCache with the given TTL.
func NewHotWeblogsCache(client bytesCacheClient, ttl time.Duration) *HotWeblogsCache {
	return &HotWeblogsCache{inner: newSnappyJSONCache(client, ttl)}
}

func hotWeblogsKey(sinceDays, offset, length int) string {
	return fmt.Sprintf("weblogs:hot:%d:%d:%d", sinceDays, offset, length)
}

// Get returns the cached view, reporting a hit.
func (c *HotWeblogsCache) Get(ctx context.Context, sinceDays, offset, length int) ([]hitcount.HotWeblog, bool, error) {
	var hot []hitcount.HotWeblog
	ok, err := c.inner.Get(ctx, hotWeblogsKey(sinceDays, offset, length), &hot)
	if err != nil || !ok {
		return nil, false, err
	}
	return hot, true, nil
}

// Set stores the view.
func (c *HotWeblogsCache) Set(ctx context.Context, sinceDays, offset, length int, hot []hitcount.HotWeblog) error {
	return c.inner.Set(ctx, hotWeblogsKey(sinceDays, offset, length), hot)
}
