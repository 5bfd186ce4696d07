package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"

	"github.com/fjod/go_cart/cart-api/internal/domain"
)

// Repository is a SQLite backed catalog and taxonomy store.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Get(ctx context.Context, productID int64) (*domain.ProductSnapshot, error) {
	query := `
		SELECT id, parent_id, product_type, status, name, title, sku, price,
		       stock_status, managing_stock, stock_quantity, backorders_allowed,
		       sold_individually, purchasable, weight, length, width, height,
		       image_id, min_purchase_quantity, max_purchase_quantity, stock_managed_by
		FROM products
		WHERE id = ?
	`

	p := &domain.ProductSnapshot{}
	err := r.db.QueryRowContext(ctx, query, productID).Scan(
		&p.ID,
		&p.ParentID,
		&p.Type,
		&p.Status,
		&p.Name,
		&p.Title,
		&p.SKU,
		&p.Price,
		&p.StockStatus,
		&p.ManagingStock,
		&p.StockQuantity,
		&p.BackordersAllowed,
		&p.SoldIndividually,
		&p.Purchasable,
		&p.Weight,
		&p.Dimensions.Length,
		&p.Dimensions.Width,
		&p.Dimensions.Height,
		&p.ImageID,
		&p.MinPurchaseQty,
		&p.MaxPurchaseQty,
		&p.StockManagedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return p, nil
}

func (r *Repository) VariationAttributes(ctx context.Context, productID int64) ([]domain.VariationAttribute, error) {
	query := `
		SELECT pa.taxonomy, COALESCE(a.label, '')
		FROM product_attributes pa
		LEFT JOIN attributes a ON a.taxonomy = pa.taxonomy
		WHERE pa.product_id = ?
		ORDER BY pa.taxonomy
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query product attributes: %w", err)
	}
	defer rows.Close()

	var attrs []domain.VariationAttribute
	for rows.Next() {
		var attr domain.VariationAttribute
		if err := rows.Scan(&attr.Taxonomy, &attr.Label); err != nil {
			return nil, fmt.Errorf("failed to scan product attribute: %w", err)
		}
		if attr.Label == "" {
			attr.Label = HumanizeSlug(attr.Taxonomy)
		}
		attrs = append(attrs, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for i := range attrs {
		options, err := r.termSlugs(ctx, attrs[i].Taxonomy)
		if err != nil {
			return nil, err
		}
		attrs[i].Options = options
	}

	return attrs, nil
}

func (r *Repository) termSlugs(ctx context.Context, taxonomy string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT slug FROM attribute_terms WHERE taxonomy = ? ORDER BY slug`, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to query attribute terms: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan term slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

func (r *Repository) ResolveAttributeLabel(ctx context.Context, slug string) (string, error) {
	var label string
	err := r.db.QueryRowContext(ctx,
		`SELECT label FROM attributes WHERE taxonomy = ?`, slug).Scan(&label)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return HumanizeSlug(slug), nil
		}
		return "", fmt.Errorf("failed to query attribute label: %w", err)
	}
	return label, nil
}

func (r *Repository) ResolveTermDisplayName(ctx context.Context, taxonomy, slug string) (string, bool, error) {
	var name string
	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM attribute_terms WHERE taxonomy = ? AND slug = ?`, taxonomy, slug).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to query term name: %w", err)
	}
	return name, true, nil
}

func (r *Repository) TaxonomyExists(ctx context.Context, slug string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM attributes WHERE taxonomy = ?`, slug).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query taxonomy: %w", err)
	}
	return true, nil
}

// HumanizeSlug turns an attribute slug like "pa_frame-size" into a readable
// label ("Frame size").
func HumanizeSlug(slug string) string {
	slug = strings.TrimPrefix(slug, "pa_")
	slug = strings.ReplaceAll(slug, "-", " ")
	slug = strings.ReplaceAll(slug, "_", " ")
	if slug == "" {
		return slug
	}
	return strings.ToUpper(slug[:1]) + slug[1:]
}

func (r *Repository) Close() error {
	return r.db.Close()
}
