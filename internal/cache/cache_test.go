package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGetExpire(t *testing.T) {
	now := time.Date(2026, 1, 19, 10, 0, 0, 0, time.UTC)
	c := &Cache{entries: map[string]entry{}, enabled: true, now: func() time.Time { return now }}

	etag := c.Set("matches:all", []byte(`[]`), time.Minute)
	data, got, ok := c.Get("matches:all")
	require.True(t, ok)
	assert.Equal(t, []byte(`[]`), data)
	assert.Equal(t, etag, got)

	now = now.Add(2 * time.Minute)
	_, _, ok = c.Get("matches:all")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Stats()["expired_keys"])

	c.evict()
	assert.Equal(t, 0, c.Stats()["total_keys"])
}

func TestCache_Flush(t *testing.T) {
	c := &Cache{entries: map[string]entry{}, enabled: true, now: time.Now}
	c.Set("a", []byte("1"), time.Hour)
	c.Set("b", []byte("2"), time.Hour)

	assert.Equal(t, 2, c.Flush())
	_, _, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Stats()["flushes"])
}

func TestCache_Disabled(t *testing.T) {
	c := New(false)
	etag := c.Set("a", []byte("1"), time.Hour)
	assert.Equal(t, ComputeETag([]byte("1")), etag)
	_, _, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCheckETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("x"))
	assert.True(t, CheckETagMatch(etag, etag))
	assert.True(t, CheckETagMatch("*", etag))
	assert.False(t, CheckETagMatch("", etag))
	assert.False(t, CheckETagMatch(`W/"other"`, etag))
}
