package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerMutualExclusion(t *testing.T) {
	l := NewLocker(nil)
	ctx := context.Background()

	token, ok, err := l.TryLock(ctx, "sync:1:hostaway", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = l.TryLock(ctx, "sync:1:hostaway", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	// A different key is independent.
	_, ok, err = l.TryLock(ctx, "sync:1:lodgify", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx, "sync:1:hostaway", token))
	_, ok, err = l.TryLock(ctx, "sync:1:hostaway", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released lock must be acquirable")
}

func TestLocalLockerReleaseRequiresToken(t *testing.T) {
	l := NewLocker(nil)
	ctx := context.Background()

	token, ok, err := l.TryLock(ctx, "sync:2:hostaway", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A stale token must not free someone else's lock.
	require.NoError(t, l.Release(ctx, "sync:2:hostaway", "stale"))
	_, ok, err = l.TryLock(ctx, "sync:2:hostaway", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "sync:2:hostaway", token))
}

func TestLocalLockerExpiry(t *testing.T) {
	l := NewLocker(nil)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_, ok, err := l.TryLock(ctx, "sync:3:hostaway", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(31 * time.Second)
	_, ok, err = l.TryLock(ctx, "sync:3:hostaway", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock must be stealable")
}

func TestLockerValidatesArguments(t *testing.T) {
	l := NewLocker(nil)
	ctx := context.Background()

	_, _, err := l.TryLock(ctx, "", time.Minute)
	assert.Error(t, err)

	_, _, err = l.TryLock(ctx, "key", 0)
	assert.Error(t, err)
}
