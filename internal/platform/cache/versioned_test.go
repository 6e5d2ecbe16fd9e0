package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestVersionedFetchAndBump(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewVersioned(client, "reports", time.Minute)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return map[string]int{"orders": calls}, nil
	}

	var got map[string]int
	require.NoError(t, c.FetchJSON(ctx, &got, loader, "summary", "1"))
	require.Equal(t, 1, got["orders"])

	require.NoError(t, c.FetchJSON(ctx, &got, loader, "summary", "1"))
	require.Equal(t, 1, got["orders"])
	require.Equal(t, 1, calls)

	require.NoError(t, c.Bump(ctx))
	require.NoError(t, c.FetchJSON(ctx, &got, loader, "summary", "1"))
	require.Equal(t, 2, got["orders"])
}

func TestVersionedWithoutClient(t *testing.T) {
	c := NewVersioned(nil, "reports", time.Minute)
	var got []string
	err := c.FetchJSON(context.Background(), &got, func(context.Context) (any, error) {
		return []string{"a"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, got)
	require.NoError(t, c.Bump(context.Background()))
}
