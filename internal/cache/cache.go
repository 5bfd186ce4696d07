package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/cart-api/internal/projection"
)

// ProjectionCache stores fully built cart responses keyed by cart key, so
// repeated plain reads skip the store and catalog entirely.
type ProjectionCache interface {
	Get(ctx context.Context, cartKey string) (*projection.CartResponse, error)
	Set(ctx context.Context, cartKey string, response *projection.CartResponse) error
	Delete(ctx context.Context, cartKey string) error
}

var ErrCacheMiss = errors.New("cache miss")
