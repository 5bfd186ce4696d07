// Package hooks implements the named extension points third-party
// integrations attach to. All callbacks registered for a point run in
// registration order; a callback returning an error vetoes the operation and
// short-circuits the remaining callbacks.
package hooks

import "sync"

// Named extension points. The names are part of the public contract and must
// stay stable for existing integrations.
const (
	PointEmptyCart                   = "cocart_empty_cart"
	PointGetCartItem                 = "cocart_get_cart_item"
	PointItemProduct                 = "cocart_item_product"
	PointItemRemovedMessage          = "cocart_cart_item_removed_message"
	PointProductName                 = "cocart_product_name"
	PointProductTitle                = "cocart_product_title"
	PointCartItemData                = "cocart_cart_item_data"
	PointCartItems                   = "cocart_cart_items"
	PointCart                        = "cocart_cart"
	PointCartSession                 = "cocart_cart_session"
	PointItemThumbnail               = "cocart_item_thumbnail"
	PointItemThumbnailSrc            = "cocart_item_thumbnail_src"
	PointVariationOptionName         = "cocart_variation_option_name"
	PointCouponDiscountHTML          = "cocart_coupon_discount_amount_html"
	PointFeeHTML                     = "cocart_cart_totals_fee_html"
	PointAddToCartValidation         = "cocart_add_to_cart_validation"
	PointAddToCartQuantity           = "cocart_add_to_cart_quantity"
	PointSoldIndividuallyQuantity    = "cocart_add_to_cart_sold_individually_quantity"
	PointSoldIndividuallyFoundInCart = "cocart_add_to_cart_sold_individually_found_in_cart"
	PointAddCartItemData             = "cocart_add_cart_item_data"
	PointOverrideCookieCheck         = "cocart_override_cookie_check"
	PointFilterRequestData           = "cocart_filter_request_data"
)

// Callback receives the point's payload and returns the possibly modified
// payload, or an error to veto.
type Callback func(payload interface{}) (interface{}, error)

type Registry struct {
	mu     sync.RWMutex
	points map[string][]Callback
}

func NewRegistry() *Registry {
	return &Registry{points: make(map[string][]Callback)}
}

// Register appends a callback to the point's chain.
func (r *Registry) Register(point string, cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points[point] = append(r.points[point], cb)
}

// Apply runs the point's callbacks in registration order, threading the
// payload through. With no callbacks registered the payload passes through
// unchanged.
func (r *Registry) Apply(point string, payload interface{}) (interface{}, error) {
	r.mu.RLock()
	callbacks := r.points[point]
	r.mu.RUnlock()

	var err error
	for _, cb := range callbacks {
		payload, err = cb(payload)
		if err != nil {
			return payload, err
		}
	}
	return payload, nil
}

// ApplyString applies the point and keeps the input when a callback returns
// something that is not a string.
func (r *Registry) ApplyString(point, value string) (string, error) {
	out, err := r.Apply(point, value)
	if err != nil {
		return value, err
	}
	if s, ok := out.(string); ok {
		return s, nil
	}
	return value, nil
}

// ApplyBool applies the point and keeps the input when a callback returns
// something that is not a bool.
func (r *Registry) ApplyBool(point string, value bool) (bool, error) {
	out, err := r.Apply(point, value)
	if err != nil {
		return value, err
	}
	if b, ok := out.(bool); ok {
		return b, nil
	}
	return value, nil
}

// ApplyFloat applies the point and keeps the input when a callback returns
// something that is not a float64.
func (r *Registry) ApplyFloat(point string, value float64) (float64, error) {
	out, err := r.Apply(point, value)
	if err != nil {
		return value, err
	}
	if f, ok := out.(float64); ok {
		return f, nil
	}
	return value, nil
}
