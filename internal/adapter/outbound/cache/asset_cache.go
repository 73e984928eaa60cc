// Package cache keeps parsed assets in memory so that references to the same
// asset from many objects are read from disk once.
package cache

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"

	"eventtracker/internal/adapter/outbound/unityyaml"
	"eventtracker/internal/application/common/slogger"
	"eventtracker/internal/port/outbound"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultAssetCacheSize is the number of parsed assets kept when no size is configured.
const DefaultAssetCacheSize = 256

var yamlHeader = []byte("%YAML")

// AssetSource is the part of the project the cache reads from.
type AssetSource interface {
	AssetByGUID(guid string) (outbound.AssetInfo, bool)
	ReadAsset(ctx context.Context, path string) ([]byte, error)
}

// AssetObjectCache parses referenced assets into object blocks and keeps the
// most recently used ones. An entry is reused only while the file's
// modification time is unchanged.
type AssetObjectCache struct {
	source  AssetSource
	entries *lru.Cache[string, *CacheEntry]

	hits, misses, evictions atomic.Int64
}

// CacheEntry is the parsed form of one asset.
type CacheEntry struct {
	Path    string
	ModTime time.Time
	Blocks  []unityyaml.Block
}

// CacheStatistics tracks cache performance.
type CacheStatistics struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

var _ unityyaml.AssetResolver = (*AssetObjectCache)(nil)

// NewAssetObjectCache creates a cache holding at most size assets.
func NewAssetObjectCache(source AssetSource, size int) (*AssetObjectCache, error) {
	if size <= 0 {
		size = DefaultAssetCacheSize
	}
	c := &AssetObjectCache{source: source}
	entries, err := lru.NewWithEvict(size, func(string, *CacheEntry) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// Objects returns the object blocks of the asset with the given guid. Binary
// assets have no blocks.
func (c *AssetObjectCache) Objects(ctx context.Context, guid string) ([]unityyaml.Block, bool) {
	info, ok := c.source.AssetByGUID(guid)
	if !ok {
		return nil, false
	}

	if entry, ok := c.entries.Get(guid); ok && entry.ModTime.Equal(info.ModTime) && entry.Path == info.Path {
		c.hits.Add(1)
		return entry.Blocks, true
	}
	c.misses.Add(1)

	content, err := c.source.ReadAsset(ctx, info.Path)
	if err != nil {
		slogger.Debug(ctx, "Referenced asset unreadable", slogger.Fields{
			"guid":  guid,
			"path":  info.Path,
			"error": err.Error(),
		})
		return nil, false
	}

	entry := &CacheEntry{Path: info.Path, ModTime: info.ModTime}
	if bytes.HasPrefix(content, yamlHeader) {
		entry.Blocks = unityyaml.ReadBlocks(content)
	}
	c.entries.Add(guid, entry)

	slogger.Debug(ctx, "Cached referenced asset", slogger.Fields{
		"guid":   guid,
		"path":   info.Path,
		"blocks": len(entry.Blocks),
	})
	return entry.Blocks, true
}

// Invalidate drops the entry of an asset.
func (c *AssetObjectCache) Invalidate(guid string) {
	c.entries.Remove(guid)
}

// Clear removes all entries.
func (c *AssetObjectCache) Clear(ctx context.Context) {
	cleared := c.entries.Len()
	c.entries.Purge()
	slogger.Debug(ctx, "Asset cache cleared", slogger.Fields{"entries_cleared": cleared})
}

// Len returns the number of cached assets.
func (c *AssetObjectCache) Len() int {
	return c.entries.Len()
}

// Statistics returns a snapshot of the cache counters.
func (c *AssetObjectCache) Statistics() CacheStatistics {
	return CacheStatistics{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
