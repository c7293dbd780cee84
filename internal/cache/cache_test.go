package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func TestCacheSetGet(t *testing.T) {
	c := New[string](nil)
	c.Set("k1", "v1", time.Minute)
	v, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v1", v)
}

func TestCacheExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := New[int](clock)
	c.Set("k", 42, 10*time.Second)

	clock.now = clock.now.Add(5 * time.Second)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	clock.now = clock.now.Add(10 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should have expired")
}

func TestCacheZeroTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := New[string](clock)
	c.Set("k", "forever", 0)
	clock.now = clock.now.Add(365 * 24 * time.Hour)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "forever", v)
}

func TestCacheMiss(t *testing.T) {
	c := New[string](nil)
	_, ok := c.Get("missing")
	assert.False(t, ok)
}
