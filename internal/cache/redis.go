package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_cart/cart-api/internal/projection"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, cartKey string) (*projection.CartResponse, error) {
	key := cacheKey(cartKey)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var response projection.CartResponse
	if err2 := json.Unmarshal(data, &response); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart response failed: %w", err2)
	}

	return &response, nil
}

func (r RedisCache) Set(ctx context.Context, cartKey string, response *projection.CartResponse) error {
	key := cacheKey(cartKey)
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal cart response failed: %w", err)
	}

	// Jitter spreads expirations so a burst of reads does not refill the
	// cache all at once.
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if ret := r.client.Set(ctx, key, string(payload), ttl); ret.Err() != nil {
		return fmt.Errorf("redis set failed: %w", ret.Err())
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, cartKey string) error {
	key := cacheKey(cartKey)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func cacheKey(cartKey string) string {
	return fmt.Sprintf("cart:%s", cartKey)
}
