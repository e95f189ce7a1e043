package cart

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietcart/storefront/internal/domain"
)

func setupTestCache(t *testing.T) *RedisCache {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client)
}

func TestRedisCache_SetGetRoundTrip(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	cart := &domain.Cart{
		UserID: 7,
		Items:  []domain.CartItem{{ProductID: 1, ProductName: "tea", UnitPrice: 3.5, Quantity: 2}},
	}

	require.NoError(t, cache.Set(ctx, 7, cart))

	got, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, cart.UserID, got.UserID)
	assert.Equal(t, cart.Items, got.Items)
}

func TestRedisCache_MissReturnsSentinel(t *testing.T) {
	cache := setupTestCache(t)

	_, err := cache.Get(context.Background(), 404)

	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_DeleteRemovesEntry(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 7, &domain.Cart{UserID: 7}))
	require.NoError(t, cache.Delete(ctx, 7))

	_, err := cache.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
