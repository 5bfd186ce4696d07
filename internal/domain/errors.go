package domain

import (
	"errors"
	"net/http"
)

// CartError is a typed, user-facing failure. Code is stable and machine
// readable, Message is safe to show to a customer, Status is the HTTP status
// class the transport should answer with.
type CartError struct {
	Code    string
	Message string
	Status  int
}

func (e *CartError) Error() string {
	return e.Message
}

func NewCartError(code, message string, status int) *CartError {
	return &CartError{Code: code, Message: message, Status: status}
}

// Error codes used across the validation chain and the projector.
const (
	ErrCodeInvalidProduct     = "invalid_product"
	ErrCodeInvalidQuantity    = "invalid_quantity"
	ErrCodeInvalidVariation   = "invalid_variation"
	ErrCodeValidationFailed   = "validation_failed"
	ErrCodeSoldIndividually   = "sold_individually"
	ErrCodeCannotBePurchased  = "cannot_be_purchased"
	ErrCodeOutOfStock         = "out_of_stock"
	ErrCodeNotEnoughStock     = "not_enough_in_stock"
	ErrCodeNotEnoughStockCart = "not_enough_stock_remaining"
	ErrCodeCartUnavailable    = "cart_unavailable"
	ErrCodeItemNotInCart      = "item_not_in_cart"
)

// ErrCartUnavailable reports that the external cart store could not be
// reached.
var ErrCartUnavailable = &CartError{
	Code:    ErrCodeCartUnavailable,
	Message: "Unable to retrieve cart.",
	Status:  http.StatusInternalServerError,
}

// AsCartError unwraps err into a *CartError if one is in the chain.
func AsCartError(err error) (*CartError, bool) {
	var ce *CartError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
