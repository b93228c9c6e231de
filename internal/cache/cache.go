// Package cache provides a TTL result cache with tag-based invalidation.
// Entries expire after the configured TTL but are purged early whenever the
// data behind their tag is mutated.
package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TagServers groups every listing query result; any server mutation purges it.
const TagServers = "servers"

// Cache is a tag-aware TTL cache
type Cache struct {
	store *gocache.Cache
}

// New creates a cache whose entries live for ttl unless purged earlier
func New(ttl time.Duration) *Cache {
	return &Cache{
		store: gocache.New(ttl, 10*time.Minute),
	}
}

func tagged(tag, key string) string {
	return tag + ":" + key
}

// Get returns the cached value for (tag, key) if present and unexpired
func (c *Cache) Get(tag, key string) (any, bool) {
	return c.store.Get(tagged(tag, key))
}

// Set stores a value under (tag, key) with the default TTL
func (c *Cache) Set(tag, key string, value any) {
	c.store.Set(tagged(tag, key), value, gocache.DefaultExpiration)
}

// Purge drops every entry carrying the given tag
func (c *Cache) Purge(tag string) {
	prefix := tag + ":"
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
}
