package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/cart-api/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineNotFound = errors.New("line not found in cart")
)

// CartStore defines the cart aggregate operations this API needs from the
// commerce engine's store. Consumers define this interface, not the MongoDB
// implementation.
type CartStore interface {
	// Get loads the aggregate for a cart key.
	Get(ctx context.Context, cartKey string) (*domain.Cart, error)

	// UpsertLine replaces the line with the same key or appends it, then
	// refreshes the aggregate totals. The cart document is created when the
	// key is new.
	UpsertLine(ctx context.Context, cartKey string, line domain.CartLine) error

	// SetLineQuantity forces a single line's quantity. A quantity of zero or
	// less removes the line. The write targets only the addressed line so a
	// concurrent update to another line is never reverted.
	SetLineQuantity(ctx context.Context, cartKey, lineKey string, quantity float64) error

	// Save upserts the whole aggregate with recalculated totals.
	Save(ctx context.Context, cart *domain.Cart) error
}
