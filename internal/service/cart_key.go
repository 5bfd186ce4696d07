package service

import (
	"github.com/google/uuid"

	"github.com/fjod/go_cart/cart-api/internal/hooks"
)

// ResolveCartKey determines which cart a request addresses. An explicitly
// requested key always wins. An authenticated customer gets their own key
// unless a guest session cookie is already in play, in which case the cookie
// wins so an in-progress guest cart is not silently abandoned at login;
// extensions can flip that via the override hook. A guest with no session at
// all gets a fresh key.
func (s *CartService) ResolveCartKey(requestedKey, customerID, cookieKey string) string {
	if requestedKey != "" {
		return requestedKey
	}

	if customerID != "" {
		override, _ := s.hooks.ApplyBool(hooks.PointOverrideCookieCheck, false)
		if override || cookieKey == "" {
			return customerID
		}
	}

	if cookieKey != "" {
		return cookieKey
	}

	return uuid.NewString()
}
