package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpiresEntries(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mem.now = func() time.Time { return now }

	require.NoError(t, mem.Set(ctx, "k", "v", time.Minute))
	got, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	now = now.Add(time.Minute)
	_, err = mem.Get(ctx, "k")
	assert.True(t, IsMiss(err))
}

func TestMemorySetNXAndIncr(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	ok, err := mem.SetNX(ctx, "once", "a", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = mem.SetNX(ctx, "once", "b", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	for want := int64(1); want <= 3; want++ {
		got, err := mem.IncrWithTTL(ctx, "counter", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = mem.IncrWithTTL(ctx, "once", 0)
	assert.Error(t, err)

	require.NoError(t, mem.Del(ctx, "once", "counter"))
	_, err = mem.Get(ctx, "once")
	assert.True(t, IsMiss(err))
}
