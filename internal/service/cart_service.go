// Package service orchestrates cart reads and mutations: it loads state,
// runs validation, writes through the store and keeps the projection cache
// coherent.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_cart/cart-api/internal/cache"
	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/fjod/go_cart/cart-api/internal/hooks"
	"github.com/fjod/go_cart/cart-api/internal/projection"
	"github.com/fjod/go_cart/cart-api/internal/repository"
	"github.com/fjod/go_cart/cart-api/internal/validation"
)

type CartService struct {
	store     repository.CartStore
	cache     cache.ProjectionCache
	projector *projection.Projector
	validator *validation.Validator
	hooks     *hooks.Registry
	sfg       singleflight.Group // Prevents cache stampede
}

func NewCartService(
	store repository.CartStore,
	projectionCache cache.ProjectionCache,
	projector *projection.Projector,
	validator *validation.Validator,
	registry *hooks.Registry,
) *CartService {
	return &CartService{
		store:     store,
		cache:     projectionCache,
		projector: projector,
		validator: validator,
		hooks:     registry,
	}
}

// GetCart loads the cart and projects it according to the read options. A
// missing cart is not an error; it reads as an empty cart. Plain full reads
// are served from the projection cache when possible.
func (s *CartService) GetCart(ctx context.Context, cartKey string, opts projection.ReadOptions) (interface{}, error) {
	// Alternate shapes (raw, default, single item, thumbnails) are cheap
	// variations on the same state; only the plain full read is cached.
	if opts != (projection.ReadOptions{}) {
		cart, err := s.loadCart(ctx, cartKey)
		if err != nil {
			return nil, err
		}
		return s.projector.Project(ctx, cart, opts)
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(cartKey, func() (interface{}, error) {
		cached, cacheErr := s.cache.Get(ctx, cartKey)
		if cacheErr == nil {
			return cached, nil
		}
		if !errors.Is(cacheErr, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", cacheErr) // log cache error but continue
		}

		cart, loadErr := s.loadCart(ctx, cartKey)
		if loadErr != nil {
			return nil, loadErr
		}

		projected, projErr := s.projector.Project(ctx, cart, projection.ReadOptions{})
		if projErr != nil {
			return nil, projErr
		}

		// A projection that carries notices just repaired lines in the
		// store: its totals are pre-repair and the removal notices are
		// one-time. Serve it once, never cache it.
		if response, ok := projected.(*projection.CartResponse); ok && len(response.Notices) == 0 {
			go func() {
				if setErr := s.cache.Set(context.Background(), cartKey, response); setErr != nil {
					log.Printf("cache set error: %v", setErr)
				}
			}()
		}

		return projected, nil
	})

	if err != nil {
		return nil, err
	}

	return v, nil
}

// AddItem validates the mutation against current cart state, writes the
// resulting line through the store and returns the freshly projected cart.
func (s *CartService) AddItem(ctx context.Context, cartKey string, req validation.AddItemRequest, opts projection.ReadOptions) (interface{}, error) {
	// Request filters run before validation so the line key is derived
	// from what extensions actually stored.
	if filtered, hookErr := s.hooks.Apply(hooks.PointFilterRequestData, req); hookErr == nil {
		if r, ok := filtered.(validation.AddItemRequest); ok {
			req = r
		}
	} else {
		return nil, domain.NewCartError(domain.ErrCodeValidationFailed, hookErr.Error(), http.StatusForbidden)
	}
	if filtered, hookErr := s.hooks.Apply(hooks.PointAddCartItemData, req.ExtraData); hookErr == nil {
		if data, ok := filtered.(map[string]interface{}); ok {
			req.ExtraData = data
		}
	}

	cart, err := s.loadCart(ctx, cartKey)
	if err != nil {
		return nil, err
	}

	resolved, err := s.validator.Validate(ctx, cart, cartKey, req)
	if err != nil {
		return nil, err
	}

	line, err := buildLine(resolved)
	if err != nil {
		return nil, err
	}

	if storeErr := s.store.UpsertLine(ctx, cartKey, line); storeErr != nil {
		log.Printf("store upsert line error: %v", storeErr)
		return nil, domain.ErrCartUnavailable
	}

	s.invalidateCache(cartKey)

	updated, err := s.loadCart(ctx, cartKey)
	if err != nil {
		return nil, err
	}
	return s.projector.Project(ctx, updated, opts)
}

// GetTotals returns the totals document for the cart. A missing cart reads
// as all-zero totals.
func (s *CartService) GetTotals(ctx context.Context, cartKey string, opts projection.TotalsOptions) (map[string]interface{}, error) {
	cart, err := s.loadCart(ctx, cartKey)
	if err != nil {
		return nil, err
	}
	return s.projector.ProjectTotals(cart, opts), nil
}

// loadCart fetches the cart, mapping absence to an empty cart and store
// failures to the opaque unavailability error.
func (s *CartService) loadCart(ctx context.Context, cartKey string) (*domain.Cart, error) {
	cart, err := s.store.Get(ctx, cartKey)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			now := time.Now()
			return &domain.Cart{
				CartKey:   cartKey,
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}
		log.Printf("store get cart error: %v", err)
		return nil, domain.ErrCartUnavailable
	}
	return cart, nil
}

func (s *CartService) invalidateCache(cartKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, cartKey); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}

// buildLine turns a validated mutation into the cart line the store will
// write. A merge with an existing line sums quantities; the external pricing
// engine recomputes taxes and totals on write.
func buildLine(resolved *validation.ResolvedItem) (domain.CartLine, error) {
	quantity := resolved.Quantity
	addedAt := time.Now()
	if resolved.ExistingLine != nil {
		quantity += resolved.ExistingLine.Quantity
		addedAt = resolved.ExistingLine.AddedAt
	}

	price, err := decimal.NewFromString(resolved.Product.Price)
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("invalid price %q for product %d: %w",
			resolved.Product.Price, resolved.Product.ID, err)
	}
	subtotal := price.Mul(decimal.NewFromFloat(quantity)).String()

	return domain.CartLine{
		Key:          resolved.LineKey,
		ProductID:    resolved.ProductID,
		VariationID:  resolved.VariationID,
		Variation:    resolved.Variation,
		Quantity:     quantity,
		ExtraData:    resolved.ExtraData,
		LineSubtotal: subtotal,
		LineTotal:    subtotal,
		AddedAt:      addedAt,
	}, nil
}
