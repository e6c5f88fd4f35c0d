package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*ViewCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewViewCache(client, time.Minute), mr
}

func TestBuildKeyCarriesVersion(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "low_stock", "3")
	require.NoError(t, err)
	require.Equal(t, "ledger:low_stock:3:1", key)

	require.NoError(t, cache.Bump(ctx))

	key, err = cache.BuildKey(ctx, "low_stock", "3")
	require.NoError(t, err)
	require.Equal(t, "ledger:low_stock:3:2", key)
}

func TestFetchJSONPopulatesOnce(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "overstock", "1")
	require.NoError(t, err)

	loads := 0
	load := func(context.Context) (any, error) {
		loads++
		return []BalanceView{{ItemID: 10, LocationID: 1, Quantity: 6}}, nil
	}

	var first []BalanceView
	require.NoError(t, cache.FetchJSON(ctx, key, &first, load))
	require.Len(t, first, 1)
	require.Equal(t, int64(6), first[0].Quantity)

	var second []BalanceView
	require.NoError(t, cache.FetchJSON(ctx, key, &second, load))
	require.Equal(t, first, second)
	require.Equal(t, 1, loads, "second fetch must hit the cache")
}

func TestBumpInvalidatesOldKeys(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "low_stock", "1")
	require.NoError(t, err)

	var views []BalanceView
	require.NoError(t, cache.FetchJSON(ctx, key, &views, func(context.Context) (any, error) {
		return []BalanceView{{ItemID: 10, LocationID: 1, Quantity: 1}}, nil
	}))

	require.NoError(t, cache.Bump(ctx))

	// a fresh key misses the stale entry and reloads
	newKey, err := cache.BuildKey(ctx, "low_stock", "1")
	require.NoError(t, err)
	require.NotEqual(t, key, newKey)

	var reloaded []BalanceView
	require.NoError(t, cache.FetchJSON(ctx, newKey, &reloaded, func(context.Context) (any, error) {
		return []BalanceView{{ItemID: 10, LocationID: 1, Quantity: 9}}, nil
	}))
	require.Equal(t, int64(9), reloaded[0].Quantity)
}

func TestNilCachePassesThrough(t *testing.T) {
	var cache *ViewCache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "low_stock", "1")
	require.NoError(t, err)
	require.Equal(t, "ledger:low_stock:1", key)

	var views []BalanceView
	require.NoError(t, cache.FetchJSON(ctx, key, &views, func(context.Context) (any, error) {
		return []BalanceView{{ItemID: 1, LocationID: 1, Quantity: 2}}, nil
	}))
	require.Len(t, views, 1)
	require.NoError(t, cache.Bump(ctx))
}
