package treasury

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheWindow(t *testing.T) {
	clock := newClock()
	c := NewTTLCache[int](time.Minute, clock)

	_, ok := c.Get("k")
	assert.False(t, ok)

	captured := c.Put("k", 7)
	assert.Equal(t, clock.Now(), captured)

	clock.Advance(59*time.Second + 999*time.Millisecond)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	clock.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry is expired at exactly ttl")

	last, at, ok := c.Last("k")
	assert.True(t, ok)
	assert.Equal(t, 7, last)
	assert.Equal(t, captured, at)

	c.Put("k", 8)
	v, ok = c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 8, v)
	assert.Equal(t, 1, c.Len())
}
