package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/cart-api/internal/domain"
)

func setupTestCatalog(t *testing.T) *Repository {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	repo, err := NewRepository(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations("../../migrations"))
	return repo
}

func seedProduct(t *testing.T, repo *Repository, id int64, name, productType, price string) {
	_, err := repo.db.Exec(
		`INSERT INTO products (id, name, title, product_type, price, sku, weight)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, name, productType, price, "SKU-"+name, "0.5")
	require.NoError(t, err)
}

func TestGet_Product(t *testing.T) {
	repo := setupTestCatalog(t)
	seedProduct(t, repo, 42, "Widget", domain.ProductTypeSimple, "9.99")

	p, err := repo.Get(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), p.ID)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, "9.99", p.Price)
	assert.Equal(t, domain.StockStatusInStock, p.StockStatus)
	assert.True(t, p.Purchasable)
	assert.Equal(t, "0.5", p.Weight)
	assert.Equal(t, float64(1), p.MinPurchaseQty)
	assert.Equal(t, float64(-1), p.MaxPurchaseQty)
}

func TestGet_NotFound(t *testing.T) {
	repo := setupTestCatalog(t)

	_, err := repo.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestVariationAttributes(t *testing.T) {
	repo := setupTestCatalog(t)
	seedProduct(t, repo, 10, "Hoodie", domain.ProductTypeVariable, "25.00")

	_, err := repo.db.Exec(`INSERT INTO attributes (taxonomy, label) VALUES ('pa_colour', 'Colour')`)
	require.NoError(t, err)
	_, err = repo.db.Exec(`INSERT INTO attribute_terms (taxonomy, slug, name) VALUES
		('pa_colour', 'blue', 'Dark Blue'),
		('pa_colour', 'red', 'Crimson Red')`)
	require.NoError(t, err)
	_, err = repo.db.Exec(`INSERT INTO product_attributes (product_id, taxonomy) VALUES
		(10, 'pa_colour'), (10, 'pa_frame-size')`)
	require.NoError(t, err)

	attrs, err := repo.VariationAttributes(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, attrs, 2)

	assert.Equal(t, "pa_colour", attrs[0].Taxonomy)
	assert.Equal(t, "Colour", attrs[0].Label)
	assert.Equal(t, []string{"blue", "red"}, attrs[0].Options)

	// No registered attribute row: the label falls back to the slug.
	assert.Equal(t, "pa_frame-size", attrs[1].Taxonomy)
	assert.Equal(t, "Frame size", attrs[1].Label)
	assert.Empty(t, attrs[1].Options)
}

func TestResolveAttributeLabel(t *testing.T) {
	repo := setupTestCatalog(t)

	_, err := repo.db.Exec(`INSERT INTO attributes (taxonomy, label) VALUES ('pa_colour', 'Colour')`)
	require.NoError(t, err)

	label, err := repo.ResolveAttributeLabel(context.Background(), "pa_colour")
	require.NoError(t, err)
	assert.Equal(t, "Colour", label)

	label, err = repo.ResolveAttributeLabel(context.Background(), "pa_sleeve_length")
	require.NoError(t, err)
	assert.Equal(t, "Sleeve length", label)
}

func TestResolveTermDisplayName(t *testing.T) {
	repo := setupTestCatalog(t)

	_, err := repo.db.Exec(`INSERT INTO attribute_terms (taxonomy, slug, name)
		VALUES ('pa_colour', 'blue', 'Dark Blue')`)
	require.NoError(t, err)

	name, found, err := repo.ResolveTermDisplayName(context.Background(), "pa_colour", "blue")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Dark Blue", name)

	_, found, err = repo.ResolveTermDisplayName(context.Background(), "pa_colour", "green")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTaxonomyExists(t *testing.T) {
	repo := setupTestCatalog(t)

	_, err := repo.db.Exec(`INSERT INTO attributes (taxonomy, label) VALUES ('pa_colour', 'Colour')`)
	require.NoError(t, err)

	exists, err := repo.TaxonomyExists(context.Background(), "pa_colour")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.TaxonomyExists(context.Background(), "logo")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHumanizeSlug(t *testing.T) {
	tests := []struct {
		slug string
		want string
	}{
		{"pa_colour", "Colour"},
		{"pa_frame-size", "Frame size"},
		{"sleeve_length", "Sleeve length"},
		{"logo", "Logo"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HumanizeSlug(tt.slug))
	}
}
