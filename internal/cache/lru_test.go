package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	// "b" is now least recently used.
	c.Set("c", "3")
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_Expiry(t *testing.T) {
	c := NewLRUCache[int](10, 20*time.Millisecond)
	c.Set("k", 1)
	time.Sleep(40 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestLRUCache_SlidingTTL(t *testing.T) {
	c := NewLRUCache[int](10, 150*time.Millisecond, WithSlidingTTL[int]())
	c.Set("k", 1)
	for i := 0; i < 4; i++ {
		time.Sleep(50 * time.Millisecond)
		_, ok := c.Get("k")
		require.True(t, ok, "read %d should keep the entry alive", i)
	}
}

func TestLRUCache_OnEvict(t *testing.T) {
	var (
		mu      sync.Mutex
		evicted []string
	)
	c := NewLRUCache[int](1, 20*time.Millisecond, WithOnEvict(func(key string, _ int) {
		mu.Lock()
		defer mu.Unlock()
		evicted = append(evicted, key)
	}))

	c.Set("a", 1)
	c.Set("b", 2) // capacity
	c.Delete("b") // explicit
	c.Set("c", 3)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, c.CleanExpired()) // expiry
	c.Set("d", 4)
	c.Clear()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c", "d"}, evicted)
}

func TestManager_Sweep(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(5 * time.Millisecond)

	m := NewManager()
	m.Register("test", c)
	assert.Equal(t, 2, m.Sweep())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
