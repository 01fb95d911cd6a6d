package memtier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance/pkg/platform/sentinel"
)

func TestTier(t *testing.T) {
	ctx := context.Background()
	tier := New()

	_, err := tier.Get(ctx, "OS_DEVICE_ID")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, tier.Set(ctx, "OS_DEVICE_ID", "abc"))
	v, err := tier.Get(ctx, "OS_DEVICE_ID")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	require.NoError(t, tier.Delete(ctx, "OS_DEVICE_ID"))
	_, err = tier.Get(ctx, "OS_DEVICE_ID")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestClearDropsEverything(t *testing.T) {
	ctx := context.Background()
	tier := New()
	require.NoError(t, tier.Set(ctx, "a", "1"))
	require.NoError(t, tier.Set(ctx, "b", "2"))

	tier.Clear()
	_, err := tier.Get(ctx, "a")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestBreak(t *testing.T) {
	ctx := context.Background()
	tier := New()
	require.NoError(t, tier.Set(ctx, "a", "1"))

	broken := errors.New("quota exceeded")
	tier.Break(broken)
	_, err := tier.Get(ctx, "a")
	assert.ErrorIs(t, err, broken)
	assert.ErrorIs(t, tier.Set(ctx, "a", "2"), broken)

	tier.Break(nil)
	v, err := tier.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}
