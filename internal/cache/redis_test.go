package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID string `json:"id"`
}

func TestDisabledCacheMisses(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache[record](nil, "cover:", time.Hour)

	require.NoError(t, c.Set(ctx, "abc", record{ID: "1"}))
	_, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Delete(ctx, "abc"))

	var nilCache *ResultCache[record]
	_, ok, err = nilCache.Get(ctx, "abc")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyPrefix(t *testing.T) {
	c := NewResultCache[record](nil, "cover:", time.Hour)
	assert.Equal(t, "cover:deadbeef", c.key("deadbeef"))
}
