package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClocked(ttl time.Duration) (*TTLCache[string, int], *time.Time) {
	c := New[string, int](ttl, time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestGetExpires(t *testing.T) {
	c, now := newClocked(time.Minute)
	defer c.Close()

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	*now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.evictExpired()
	assert.Zero(t, c.Len())
}

func TestGetOrLoadCachesSuccessOnly(t *testing.T) {
	c, now := newClocked(time.Minute)
	defer c.Close()

	calls := 0
	load := func() (int, error) { calls++; return 7, nil }

	v, err := c.GetOrLoad("n", load)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	_, _ = c.GetOrLoad("n", load)
	assert.Equal(t, 1, calls)

	*now = now.Add(time.Hour)
	_, _ = c.GetOrLoad("n", load)
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	_, err = c.GetOrLoad("fail", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("fail")
	assert.False(t, ok)
}

func TestGetOrLoadSingleLoadUnderContention(t *testing.T) {
	c := New[string, int](time.Minute, time.Minute)
	defer c.Close()

	var calls atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetOrLoad("k", func() (int, error) {
				calls.Add(1)
				time.Sleep(5 * time.Millisecond)
				return 1, nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestCloseTwice(t *testing.T) {
	c := New[string, int](time.Minute, time.Minute)
	c.Close()
	assert.NotPanics(t, c.Close)
}
