// Package validation decides whether an add-to-cart mutation may proceed.
// The checks run in a fixed order and short-circuit on the first failure;
// none of them mutate the cart.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"

	"github.com/fjod/go_cart/cart-api/internal/catalog"
	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/fjod/go_cart/cart-api/internal/events"
	"github.com/fjod/go_cart/cart-api/internal/hooks"
)

// AddItemRequest is the raw mutation input before resolution.
type AddItemRequest struct {
	ProductID   int64
	Quantity    float64
	VariationID int64
	Variation   map[string]string
	ExtraData   map[string]interface{}
}

// ResolvedItem is a validated request ready for the cart store: variation
// identity rewritten, quantity settled, line key resolved.
type ResolvedItem struct {
	ProductID   int64
	VariationID int64
	Variation   map[string]string
	Quantity    float64
	ExtraData   map[string]interface{}
	LineKey     string

	// ExistingLine is the cart line the request merges into, nil when the
	// identity is new to the cart.
	ExistingLine *domain.CartLine

	Product *domain.ProductSnapshot
}

type Validator struct {
	catalog catalog.ProductCatalog
	hooks   *hooks.Registry
	events  events.Publisher
}

func NewValidator(productCatalog catalog.ProductCatalog, registry *hooks.Registry, publisher events.Publisher) *Validator {
	return &Validator{
		catalog: productCatalog,
		hooks:   registry,
		events:  publisher,
	}
}

// Validate runs the full chain against the given cart state and returns the
// resolved mutation, or the first typed failure.
func (v *Validator) Validate(ctx context.Context, cart *domain.Cart, cartKey string, req AddItemRequest) (*ResolvedItem, error) {
	// Existence.
	if req.ProductID <= 0 {
		return nil, v.reject(ctx, cartKey, req, domain.ErrCodeInvalidProduct,
			"This product cannot be added to the cart.", http.StatusBadRequest)
	}

	lookupID := req.ProductID
	if req.VariationID > 0 {
		lookupID = req.VariationID
	}

	product, err := v.catalog.Get(ctx, lookupID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, v.reject(ctx, cartKey, req, domain.ErrCodeInvalidProduct,
				"This product cannot be added to the cart.", http.StatusBadRequest)
		}
		return nil, fmt.Errorf("failed to load product %d: %w", lookupID, err)
	}
	if product.Status == domain.ProductStatusTrash {
		return nil, v.reject(ctx, cartKey, req, domain.ErrCodeInvalidProduct,
			"This product cannot be added to the cart.", http.StatusBadRequest)
	}

	// Quantity well-formedness.
	quantity := req.Quantity
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return nil, v.reject(ctx, cartKey, req, domain.ErrCodeInvalidQuantity,
			"Quantity must be a positive amount.", http.StatusBadRequest)
	}

	// Type resolution: a variation is addressed by its parent with its own
	// id as the variation id.
	productID := req.ProductID
	variationID := req.VariationID
	if product.IsVariation() {
		productID = product.ParentID
		variationID = product.ID
	}

	// Variation completeness.
	variation := req.Variation
	if product.IsType(domain.ProductTypeVariable) || product.IsVariation() {
		variation, err = v.validateVariableProduct(ctx, cartKey, req, productID, variation)
		if err != nil {
			return nil, err
		}
	}

	// Extension veto.
	passed, hookErr := v.hooks.ApplyBool(hooks.PointAddToCartValidation, true)
	if hookErr != nil || !passed {
		message := "Product did not pass validation!"
		if hookErr != nil {
			message = hookErr.Error()
		}
		return nil, v.reject(ctx, cartKey, req, domain.ErrCodeValidationFailed,
			message, http.StatusForbidden)
	}

	// Quantity may be adjusted for specific products before the remaining
	// checks run.
	quantity, _ = v.hooks.ApplyFloat(hooks.PointAddToCartQuantity, quantity)

	lineKey, existing := Resolve(cart, productID, variationID, variation, req.ExtraData)

	// Sold individually.
	if product.SoldIndividually {
		quantity, _ = v.hooks.ApplyFloat(hooks.PointSoldIndividuallyQuantity, 1)

		found := existing != nil && existing.Quantity > 0
		found, _ = v.hooks.ApplyBool(hooks.PointSoldIndividuallyFoundInCart, found)

		if found {
			return nil, v.reject(ctx, cartKey, req, domain.ErrCodeSoldIndividually,
				fmt.Sprintf("You cannot add another %q to your cart.", product.Name),
				http.StatusForbidden)
		}
	}

	// Purchasability.
	if !product.Purchasable {
		return nil, v.reject(ctx, cartKey, req, domain.ErrCodeCannotBePurchased,
			"Sorry, this product cannot be purchased.", http.StatusForbidden)
	}

	// Stock, standalone.
	if !product.IsInStock() {
		return nil, v.reject(ctx, cartKey, req, domain.ErrCodeOutOfStock,
			fmt.Sprintf("You cannot add %q to the cart because the product is out of stock.", product.Name),
			http.StatusNotFound)
	}
	if !product.HasEnoughStock(quantity) {
		return nil, v.reject(ctx, cartKey, req, domain.ErrCodeNotEnoughStock,
			fmt.Sprintf("You cannot add a quantity of %v for %q to the cart because there is not enough stock. - only %v remaining!",
				quantity, product.Name, product.StockQuantity),
			http.StatusForbidden)
	}

	// Stock, accounting for what is already in the cart under the same
	// managed identifier.
	if product.ManagingStock {
		inCart, countErr := v.quantityInCart(ctx, cart, product.StockManagedByID())
		if countErr != nil {
			return nil, countErr
		}
		if inCart > 0 && !product.HasEnoughStock(inCart+quantity) {
			return nil, v.reject(ctx, cartKey, req, domain.ErrCodeNotEnoughStockCart,
				fmt.Sprintf("You cannot add that amount to the cart - we have %v in stock and you already have %v in your cart.",
					product.StockQuantity, inCart),
				http.StatusForbidden)
		}
	}

	return &ResolvedItem{
		ProductID:    productID,
		VariationID:  variationID,
		Variation:    variation,
		Quantity:     quantity,
		ExtraData:    req.ExtraData,
		LineKey:      lineKey,
		ExistingLine: existing,
		Product:      product,
	}, nil
}

// validateVariableProduct checks every required attribute is supplied with a
// valid option, returning only the recognized attribute entries.
func (v *Validator) validateVariableProduct(ctx context.Context, cartKey string, req AddItemRequest, productID int64, variation map[string]string) (map[string]string, error) {
	required, err := v.catalog.VariationAttributes(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load variation attributes for product %d: %w", productID, err)
	}

	resolved := make(map[string]string, len(required))
	for _, attr := range required {
		key := "attribute_" + attr.Taxonomy

		value, ok := variation[key]
		if !ok || value == "" {
			return nil, v.reject(ctx, cartKey, req, domain.ErrCodeInvalidVariation,
				fmt.Sprintf("Missing variation data for variable product: %s is a required field.", attr.Label),
				http.StatusBadRequest)
		}

		if len(attr.Options) > 0 && !containsOption(attr.Options, value) {
			return nil, v.reject(ctx, cartKey, req, domain.ErrCodeInvalidVariation,
				fmt.Sprintf("Invalid value posted for %s.", attr.Label),
				http.StatusBadRequest)
		}

		resolved[key] = value
	}

	return resolved, nil
}

// quantityInCart sums the quantities of cart lines whose product shares the
// given stock-managed identifier.
func (v *Validator) quantityInCart(ctx context.Context, cart *domain.Cart, managedID int64) (float64, error) {
	if cart == nil {
		return 0, nil
	}

	var total float64
	for _, line := range cart.Lines {
		lineID := line.ProductID
		if line.VariationID > 0 {
			lineID = line.VariationID
		}

		if lineID == managedID {
			total += line.Quantity
			continue
		}

		snapshot, err := v.catalog.Get(ctx, lineID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				continue
			}
			return 0, fmt.Errorf("failed to load product %d: %w", lineID, err)
		}
		if snapshot.StockManagedByID() == managedID {
			total += line.Quantity
		}
	}

	return total, nil
}

// reject logs the failure with enough context to reproduce it, publishes an
// operational event and returns the typed error.
func (v *Validator) reject(ctx context.Context, cartKey string, req AddItemRequest, code, message string, status int) error {
	log.Printf("add-to-cart rejected: cart=%s product=%d qty=%v code=%s: %s",
		cartKey, req.ProductID, req.Quantity, code, message)

	if err := v.events.MutationRejected(ctx, cartKey, req.ProductID, req.Quantity, code); err != nil {
		log.Printf("failed to publish mutation rejected event: %v", err)
	}

	return domain.NewCartError(code, message, status)
}

func containsOption(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}
