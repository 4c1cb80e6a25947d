package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hostwise/nightly/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c := New[string](5*time.Minute, clk)

	c.Set("news:en", "headline digest")

	got, ok := c.Get("news:en")
	require.True(t, ok)
	assert.Equal(t, "headline digest", got)

	clk.Advance(5*time.Minute + time.Second)

	_, ok = c.Get("news:en")
	assert.False(t, ok)
}

func TestTTLCacheGetOrFillCoalesces(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c := New[int](time.Minute, clk)

	var (
		mu    sync.Mutex
		calls int
	)
	fill := func() (int, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.GetOrFill("analysis:1001:2026-03-02:en", fill)
			assert.NoError(t, err)
			assert.Equal(t, 42, got)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestTTLCacheGetOrFillErrorNotCached(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c := New[int](time.Minute, clk)

	wantErr := errors.New("provider unavailable")
	_, err := c.GetOrFill("news:de", func() (int, error) { return 0, wantErr })
	require.ErrorIs(t, err, wantErr)

	got, err := c.GetOrFill("news:de", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestTTLCachePurge(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c := New[string](time.Minute, clk)

	c.Set("a", "1")
	c.Set("b", "2")
	require.Equal(t, 2, c.Len())

	clk.Advance(2 * time.Minute)
	c.Purge()
	assert.Equal(t, 0, c.Len())
}
