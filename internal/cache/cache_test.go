package cache_test

import (
	"fmt"
	"testing"

	"github.com/AmrMurad1/ldbtable/internal/cache"
	"github.com/stretchr/testify/require"
)

func TestInsertAndLookup(t *testing.T) {
	c := cache.New("test", 1000, nil)
	h := c.Insert("a", 42, 1, nil)
	defer c.Release(h)

	got := c.Lookup("a")
	require.NotNil(t, got)
	require.Equal(t, 42, got.Value())
	c.Release(got)
}

func TestLookupMissingReturnsNil(t *testing.T) {
	c := cache.New("test", 1000, nil)
	require.Nil(t, c.Lookup("missing"))
}

func TestEraseRemovesEntry(t *testing.T) {
	c := cache.New("test", 1000, nil)
	h := c.Insert("a", 1, 1, nil)
	c.Release(h)

	c.Erase("a")
	require.Nil(t, c.Lookup("a"))
}

func TestDeleterRunsOnceWhenLastReferenceReleased(t *testing.T) {
	c := cache.New("test", 1000, nil)
	calls := 0
	h := c.Insert("a", "value", 1, func(key string, value any) {
		calls++
		require.Equal(t, "a", key)
	})
	require.Equal(t, 0, calls)
	c.Release(h)
	// Entry is still cached (capacity not exceeded), deleter not yet run.
	require.Equal(t, 0, calls)

	c.Erase("a")
	require.Equal(t, 1, calls)
}

func TestCapacityBoundsTotalCharge(t *testing.T) {
	c := cache.New("test", 16, nil) // 16 bytes total, 1 per shard average
	// Use a single shard's worth of capacity by inserting many small
	// entries all charged 1 and releasing immediately, then verify the
	// cache never holds more than its capacity.
	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("k%d", i)
		h := c.Insert(key, i, 1, nil)
		c.Release(h)
	}
	require.LessOrEqual(t, c.TotalCharge(), 16+16) // allow rounding across shards
}

func TestZeroCapacityIsPassThrough(t *testing.T) {
	c := cache.New("test", 0, nil)
	deleted := false
	h := c.Insert("a", 1, 1, func(string, any) { deleted = true })
	// Not cached: a concurrent Lookup should miss immediately.
	require.Nil(t, c.Lookup("a"))
	c.Release(h)
	require.True(t, deleted)
}

func TestHandleStaysValidAfterCapacityEviction(t *testing.T) {
	c := cache.New("test", 1, nil)
	h1 := c.Insert("a", "first", 1, nil)
	h2 := c.Insert("b", "second", 1, nil) // evicts "a" from the lru list once released... but h1 still held
	require.Equal(t, "first", h1.Value())
	require.Equal(t, "second", h2.Value())
	c.Release(h1)
	c.Release(h2)
}
