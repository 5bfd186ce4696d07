package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/cart-api/internal/projection"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func sampleResponse(cartKey string) *projection.CartResponse {
	return &projection.CartResponse{
		CartHash:  "abc123",
		CartKey:   cartKey,
		ItemCount: 2,
		Items: map[string]projection.ItemView{
			"line1": {ID: 42, Name: "Widget", Quantity: 2},
		},
		Totals: projection.TotalsBlock{
			TotalItems: "1998",
			TotalPrice: "1998",
			TaxLines:   []projection.TaxLine{},
		},
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	cartKey := "cart123"

	response := sampleResponse(cartKey)
	payload, _ := json.Marshal(response)
	mr.Set(cacheKey(cartKey), string(payload))

	result, err := cache.Get(ctx, cartKey)
	require.NoError(t, err)
	assert.Equal(t, cartKey, result.CartKey)
	assert.Equal(t, "abc123", result.CartHash)
	assert.Equal(t, float64(2), result.ItemCount)
	assert.Equal(t, "1998", result.Totals.TotalPrice)
}

func TestGet_Miss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := cache.Get(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_MalformedPayload(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Set(cacheKey("cart123"), "not json")

	_, err := cache.Get(context.Background(), "cart123")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_RoundTrip(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	cartKey := "cart456"

	err := cache.Set(ctx, cartKey, sampleResponse(cartKey))
	require.NoError(t, err)

	result, err := cache.Get(ctx, cartKey)
	require.NoError(t, err)
	assert.Equal(t, cartKey, result.CartKey)
	assert.Equal(t, "Widget", result.Items["line1"].Name)

	// Check that TTL was set (miniredis tracks TTL)
	ttl := mr.TTL(cacheKey(cartKey))
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 20*time.Minute, "TTL should be base + max jitter")
}

func TestDelete_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	cartKey := "cart999"

	payload, _ := json.Marshal(sampleResponse(cartKey))
	mr.Set(cacheKey(cartKey), string(payload))
	assert.True(t, mr.Exists(cacheKey(cartKey)))

	err := cache.Delete(ctx, cartKey)
	require.NoError(t, err)

	assert.False(t, mr.Exists(cacheKey(cartKey)))
}

func TestDelete_NonExistentKey(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	err := cache.Delete(context.Background(), "nonexistent")
	assert.NoError(t, err)
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "cart:test123", cacheKey("test123"))
}
