package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemorySetGetRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemory()

	require.NoError(t, c.Set(ctx, "k", []byte("value"), 0))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("value"), got)
}

func TestMemoryGetMissing(t *testing.T) {
	t.Parallel()

	_, ok, err := NewMemory().Get(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemory()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))

	time.Sleep(10 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemory()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemory()
	require.NoError(t, c.Set(ctx, "k", []byte("abc"), 0))

	got, _, err := c.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'x'

	again, _, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again)
}
