package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/cart-api/internal/cache"
	"github.com/fjod/go_cart/cart-api/internal/catalog"
	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/fjod/go_cart/cart-api/internal/events"
	"github.com/fjod/go_cart/cart-api/internal/hooks"
	"github.com/fjod/go_cart/cart-api/internal/media"
	"github.com/fjod/go_cart/cart-api/internal/projection"
	"github.com/fjod/go_cart/cart-api/internal/repository"
	"github.com/fjod/go_cart/cart-api/internal/validation"
)

type stubStore struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	upserts []domain.CartLine
	getErr  error
	getHits int
}

func newStubStore() *stubStore {
	return &stubStore{carts: make(map[string]*domain.Cart)}
}

func (s *stubStore) Get(_ context.Context, cartKey string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getHits++
	if s.getErr != nil {
		return nil, s.getErr
	}
	cart, ok := s.carts[cartKey]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	copied := *cart
	return &copied, nil
}

func (s *stubStore) UpsertLine(_ context.Context, cartKey string, line domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, line)

	cart, ok := s.carts[cartKey]
	if !ok {
		cart = &domain.Cart{CartKey: cartKey, CreatedAt: time.Now()}
		s.carts[cartKey] = cart
	}
	replaced := false
	for i := range cart.Lines {
		if cart.Lines[i].Key == line.Key {
			cart.Lines[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		cart.Lines = append(cart.Lines, line)
	}
	cart.Recalculate()
	return nil
}

func (s *stubStore) SetLineQuantity(_ context.Context, cartKey, lineKey string, quantity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[cartKey]
	if !ok {
		return repository.ErrCartNotFound
	}
	for i := range cart.Lines {
		if cart.Lines[i].Key == lineKey {
			if quantity <= 0 {
				cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			} else {
				cart.Lines[i].Quantity = quantity
			}
			cart.Recalculate()
			return nil
		}
	}
	return repository.ErrLineNotFound
}

func (s *stubStore) Save(_ context.Context, cart *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart.Recalculate()
	s.carts[cart.CartKey] = cart
	return nil
}

type stubCache struct {
	mu      sync.Mutex
	data    map[string]*projection.CartResponse
	getErr  error
	sets    int
	deletes []string
	getHits int
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string]*projection.CartResponse)}
}

func (c *stubCache) Get(_ context.Context, cartKey string) (*projection.CartResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getHits++
	if c.getErr != nil {
		return nil, c.getErr
	}
	response, ok := c.data[cartKey]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return response, nil
}

func (c *stubCache) Set(_ context.Context, cartKey string, response *projection.CartResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[cartKey] = response
	return nil
}

func (c *stubCache) Delete(_ context.Context, cartKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes = append(c.deletes, cartKey)
	delete(c.data, cartKey)
	return nil
}

func (c *stubCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

type stubCatalog struct {
	products map[int64]*domain.ProductSnapshot
}

func (m *stubCatalog) Get(_ context.Context, productID int64) (*domain.ProductSnapshot, error) {
	p, ok := m.products[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *stubCatalog) VariationAttributes(context.Context, int64) ([]domain.VariationAttribute, error) {
	return nil, nil
}

type stubTaxonomies struct{}

func (stubTaxonomies) ResolveAttributeLabel(_ context.Context, slug string) (string, error) {
	return slug, nil
}

func (stubTaxonomies) ResolveTermDisplayName(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}

func (stubTaxonomies) TaxonomyExists(context.Context, string) (bool, error) {
	return false, nil
}

func testConfig() projection.StoreConfig {
	return projection.StoreConfig{
		Currency: domain.CurrencyInfo{
			Code:              "USD",
			Symbol:            "$",
			MinorUnit:         2,
			DecimalSeparator:  ".",
			ThousandSeparator: ",",
			Position:          domain.CurrencyPosLeft,
		},
		WeightUnit:     "kg",
		DimensionUnit:  "cm",
		CouponsEnabled: true,
	}
}

func widget(id int64) *domain.ProductSnapshot {
	return &domain.ProductSnapshot{
		ID:          id,
		Type:        domain.ProductTypeSimple,
		Status:      domain.ProductStatusPublish,
		Name:        "Widget",
		Price:       "9.99",
		StockStatus: domain.StockStatusInStock,
		Purchasable: true,
	}
}

func newTestService(store *stubStore, projectionCache *stubCache, products ...*domain.ProductSnapshot) *CartService {
	byID := make(map[int64]*domain.ProductSnapshot)
	for _, p := range products {
		byID[p.ID] = p
	}
	productCatalog := &stubCatalog{products: byID}
	registry := hooks.NewRegistry()

	projector := projection.NewProjector(
		store, productCatalog, stubTaxonomies{}, media.NopResolver{},
		events.NopPublisher{}, registry, testConfig())
	validator := validation.NewValidator(productCatalog, registry, events.NopPublisher{})

	return NewCartService(store, projectionCache, projector, validator, registry)
}

func TestGetCart_CacheHit(t *testing.T) {
	store := newStubStore()
	projectionCache := newStubCache()
	projectionCache.data["cart1"] = &projection.CartResponse{CartKey: "cart1", CartHash: "cached"}

	svc := newTestService(store, projectionCache)

	result, err := svc.GetCart(context.Background(), "cart1", projection.ReadOptions{})
	require.NoError(t, err)

	response, ok := result.(*projection.CartResponse)
	require.True(t, ok)
	assert.Equal(t, "cached", response.CartHash)
	assert.Equal(t, 0, store.getHits, "cache hit must not touch the store")
}

func TestGetCart_CacheMissProjectsAndBackfills(t *testing.T) {
	store := newStubStore()
	store.carts["cart1"] = &domain.Cart{
		CartKey: "cart1",
		Hash:    "h1",
		Lines: []domain.CartLine{
			{Key: "line1", ProductID: 42, Quantity: 2, LineSubtotal: "19.98", LineTotal: "19.98"},
		},
	}
	projectionCache := newStubCache()

	svc := newTestService(store, projectionCache, widget(42))

	result, err := svc.GetCart(context.Background(), "cart1", projection.ReadOptions{})
	require.NoError(t, err)

	response, ok := result.(*projection.CartResponse)
	require.True(t, ok)
	assert.Equal(t, "cart1", response.CartKey)
	assert.Len(t, response.Items, 1)

	// The backfill runs on its own goroutine.
	assert.Eventually(t, func() bool { return projectionCache.setCount() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestGetCart_RepairedProjectionIsNotCached(t *testing.T) {
	store := newStubStore()
	store.carts["cart1"] = &domain.Cart{
		CartKey: "cart1",
		Lines: []domain.CartLine{
			{Key: "line1", ProductID: 42, Quantity: 2, LineSubtotal: "19.98", LineTotal: "19.98"},
		},
		Totals: domain.CartTotals{Subtotal: "19.98", Total: "19.98"},
	}
	projectionCache := newStubCache()

	product := widget(42)
	product.Purchasable = false
	svc := newTestService(store, projectionCache, product)

	first, err := svc.GetCart(context.Background(), "cart1", projection.ReadOptions{})
	require.NoError(t, err)

	response, ok := first.(*projection.CartResponse)
	require.True(t, ok)
	require.Len(t, response.Notices, 1)
	assert.Empty(t, response.Items)

	// The repair removed the line in the store.
	assert.Empty(t, store.carts["cart1"].Lines)

	// The one-time response must not be backfilled into the cache.
	assert.Never(t, func() bool { return projectionCache.setCount() > 0 },
		200*time.Millisecond, 20*time.Millisecond)

	// The next read reprojects from the repaired cart: empty, no replayed
	// notice, no stale totals.
	second, err := svc.GetCart(context.Background(), "cart1", projection.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{}, second)
}

func TestGetCart_MissingCartReadsEmpty(t *testing.T) {
	svc := newTestService(newStubStore(), newStubCache())

	result, err := svc.GetCart(context.Background(), "ghost", projection.ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{}, result)
}

func TestGetCart_StoreFailureIsOpaque(t *testing.T) {
	store := newStubStore()
	store.getErr = errors.New("mongo: connection refused")

	svc := newTestService(store, newStubCache())

	_, err := svc.GetCart(context.Background(), "cart1", projection.ReadOptions{})
	require.Error(t, err)

	cartErr, ok := domain.AsCartError(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrCodeCartUnavailable, cartErr.Code)
	assert.NotContains(t, cartErr.Message, "mongo")
}

func TestGetCart_RawBypassesCache(t *testing.T) {
	store := newStubStore()
	store.carts["cart1"] = &domain.Cart{
		CartKey: "cart1",
		Lines: []domain.CartLine{
			{Key: "line1", ProductID: 42, Quantity: 1},
		},
	}
	projectionCache := newStubCache()
	projectionCache.data["cart1"] = &projection.CartResponse{CartKey: "cart1"}

	svc := newTestService(store, projectionCache, widget(42))

	result, err := svc.GetCart(context.Background(), "cart1", projection.ReadOptions{Raw: true})
	require.NoError(t, err)

	_, isResponse := result.(*projection.CartResponse)
	assert.False(t, isResponse, "raw mode returns line data, not the projection")
	assert.Equal(t, 0, projectionCache.getHits)
}

func TestAddItem_WritesLineAndInvalidates(t *testing.T) {
	store := newStubStore()
	projectionCache := newStubCache()

	svc := newTestService(store, projectionCache, widget(42))

	result, err := svc.AddItem(context.Background(), "cart1",
		validation.AddItemRequest{ProductID: 42, Quantity: 2}, projection.ReadOptions{})
	require.NoError(t, err)

	require.Len(t, store.upserts, 1)
	line := store.upserts[0]
	assert.Equal(t, int64(42), line.ProductID)
	assert.Equal(t, float64(2), line.Quantity)
	assert.Equal(t, "19.98", line.LineSubtotal)
	assert.NotEmpty(t, line.Key)

	response, ok := result.(*projection.CartResponse)
	require.True(t, ok)
	assert.Len(t, response.Items, 1)
	assert.Equal(t, "1998", response.Totals.TotalItems)

	assert.Equal(t, []string{"cart1"}, projectionCache.deletes)
}

func TestAddItem_MergeSumsQuantity(t *testing.T) {
	store := newStubStore()
	key := validation.GenerateLineKey(42, 0, nil, nil)
	store.carts["cart1"] = &domain.Cart{
		CartKey: "cart1",
		Lines: []domain.CartLine{
			{Key: key, ProductID: 42, Quantity: 1, LineSubtotal: "9.99", LineTotal: "9.99"},
		},
	}

	svc := newTestService(store, newStubCache(), widget(42))

	_, err := svc.AddItem(context.Background(), "cart1",
		validation.AddItemRequest{ProductID: 42, Quantity: 2}, projection.ReadOptions{})
	require.NoError(t, err)

	require.Len(t, store.upserts, 1)
	line := store.upserts[0]
	assert.Equal(t, key, line.Key)
	assert.Equal(t, float64(3), line.Quantity)
	assert.Equal(t, "29.97", line.LineSubtotal)
}

func TestAddItem_ValidationFailureWritesNothing(t *testing.T) {
	store := newStubStore()
	projectionCache := newStubCache()

	product := widget(42)
	product.StockStatus = domain.StockStatusOutOfStock
	svc := newTestService(store, projectionCache, product)

	_, err := svc.AddItem(context.Background(), "cart1",
		validation.AddItemRequest{ProductID: 42, Quantity: 1}, projection.ReadOptions{})

	cartErr, ok := domain.AsCartError(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrCodeOutOfStock, cartErr.Code)
	assert.Empty(t, store.upserts)
	assert.Empty(t, projectionCache.deletes)
}

func TestAddItem_RequestFilterVeto(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, newStubCache(), widget(42))
	svc.hooks.Register(hooks.PointFilterRequestData, func(interface{}) (interface{}, error) {
		return nil, errors.New("request rejected by extension")
	})

	_, err := svc.AddItem(context.Background(), "cart1",
		validation.AddItemRequest{ProductID: 42, Quantity: 1}, projection.ReadOptions{})

	cartErr, ok := domain.AsCartError(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrCodeValidationFailed, cartErr.Code)
	assert.Empty(t, store.upserts)
}

func TestGetTotals(t *testing.T) {
	store := newStubStore()
	cart := &domain.Cart{
		CartKey: "cart1",
		Lines: []domain.CartLine{
			{Key: "line1", ProductID: 42, Quantity: 2, LineSubtotal: "19.98", LineTotal: "19.98"},
		},
	}
	cart.Recalculate()
	store.carts["cart1"] = cart

	svc := newTestService(store, newStubCache(), widget(42))

	totals, err := svc.GetTotals(context.Background(), "cart1", projection.TotalsOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1998", totals["subtotal"])

	html, err := svc.GetTotals(context.Background(), "cart1", projection.TotalsOptions{HTML: true})
	require.NoError(t, err)
	assert.Equal(t, "$19.98", html["subtotal"])
}

func TestGetTotals_MissingCartIsZero(t *testing.T) {
	svc := newTestService(newStubStore(), newStubCache())

	totals, err := svc.GetTotals(context.Background(), "ghost", projection.TotalsOptions{})
	require.NoError(t, err)
	assert.Equal(t, "0", totals["total"])
}

func TestResolveCartKey(t *testing.T) {
	svc := newTestService(newStubStore(), newStubCache())

	t.Run("requested key wins", func(t *testing.T) {
		assert.Equal(t, "explicit", svc.ResolveCartKey("explicit", "customer9", "cookie1"))
	})

	t.Run("customer without cookie", func(t *testing.T) {
		assert.Equal(t, "customer9", svc.ResolveCartKey("", "customer9", ""))
	})

	t.Run("cookie beats customer by default", func(t *testing.T) {
		assert.Equal(t, "cookie1", svc.ResolveCartKey("", "customer9", "cookie1"))
	})

	t.Run("override hook promotes customer", func(t *testing.T) {
		svc.hooks.Register(hooks.PointOverrideCookieCheck, func(interface{}) (interface{}, error) {
			return true, nil
		})
		assert.Equal(t, "customer9", svc.ResolveCartKey("", "customer9", "cookie1"))
	})

	t.Run("guest gets a fresh key", func(t *testing.T) {
		key := svc.ResolveCartKey("", "", "")
		_, err := uuid.Parse(key)
		assert.NoError(t, err)
	})
}
