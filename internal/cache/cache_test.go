package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set(TagServers, "page-1", 42)

	value, ok := c.Get(TagServers, "page-1")
	assert.True(t, ok)
	assert.Equal(t, 42, value)

	_, ok = c.Get(TagServers, "page-2")
	assert.False(t, ok)
}

func TestCachePurgeByTag(t *testing.T) {
	c := New(time.Minute)

	c.Set(TagServers, "page-1", "a")
	c.Set(TagServers, "page-2", "b")
	c.Set("categories", "all", "c")

	c.Purge(TagServers)

	_, ok := c.Get(TagServers, "page-1")
	assert.False(t, ok)
	_, ok = c.Get(TagServers, "page-2")
	assert.False(t, ok)

	// Other tags survive
	value, ok := c.Get("categories", "all")
	assert.True(t, ok)
	assert.Equal(t, "c", value)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)

	c.Set(TagServers, "page-1", "a")
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get(TagServers, "page-1")
	assert.False(t, ok)
}
