package catalog

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/cart-api/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// ProductCatalog provides read-only product snapshots.
type ProductCatalog interface {
	// Get returns a snapshot for the product or variation with the given id.
	Get(ctx context.Context, productID int64) (*domain.ProductSnapshot, error)

	// VariationAttributes lists the attributes a variable product requires,
	// with their valid options.
	VariationAttributes(ctx context.Context, productID int64) ([]domain.VariationAttribute, error)
}

// TaxonomyResolver turns attribute and term slugs into display names.
type TaxonomyResolver interface {
	// ResolveAttributeLabel returns the display label for an attribute
	// taxonomy slug. Unknown slugs resolve to a humanized form of the slug.
	ResolveAttributeLabel(ctx context.Context, slug string) (string, error)

	// ResolveTermDisplayName returns the display name of a term within a
	// taxonomy. The bool reports whether the taxonomy knows the term.
	ResolveTermDisplayName(ctx context.Context, taxonomy, slug string) (string, bool, error)

	// TaxonomyExists reports whether the slug names a known attribute
	// taxonomy.
	TaxonomyExists(ctx context.Context, slug string) (bool, error)
}
