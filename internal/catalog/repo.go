package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clovershop/backoffice/internal/shop"
)

var (
	// ErrProductNotFound indicates the product does not exist within the shop.
	ErrProductNotFound = errors.New("product not found")
	// ErrVariantNotFound indicates the variant does not belong to the product.
	ErrVariantNotFound = errors.New("variant not found")
	// ErrCategoryNotFound indicates the category does not exist within the shop.
	ErrCategoryNotFound = errors.New("category not found")
)

// Repo provides shop-scoped catalog queries. Every read and write derives the
// shop from the request context so cross-tenant access cannot be expressed.
type Repo struct {
	Pool *pgxpool.Pool
}

const productColumns = `p.id, p.shop_id, p.name, p.slug, p.sku, p.barcode, p.description,
	p.image_url, p.price, p.tax_rate, p.inventory, p.state, p.created_at, p.updated_at`

// GetProduct loads a product by ID within the current shop, including its
// category memberships.
func (r Repo) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return Product{}, err
	}
	row := r.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p
		WHERE p.id = $1 AND p.shop_id = $2`, id, shopID)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	product.CategoryIDs, err = r.categoryIDs(ctx, product.ID)
	if err != nil {
		return Product{}, err
	}
	return product, nil
}

// GetVariant loads a variant and verifies it belongs to the given product.
func (r Repo) GetVariant(ctx context.Context, productID, variantID uuid.UUID) (Variant, error) {
	row := r.Pool.QueryRow(ctx, `SELECT id, product_id, name, sku, barcode, price, inventory, options
		FROM product_variants WHERE id = $1 AND product_id = $2`, variantID, productID)
	var v Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.SKU, &v.Barcode, &v.Price, &v.Inventory, &v.Options)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Variant{}, ErrVariantNotFound
		}
		return Variant{}, fmt.Errorf("scan variant: %w", err)
	}
	return v, nil
}

// ListProducts returns a page of products for the current shop together with
// the total row count.
func (r Repo) ListProducts(ctx context.Context, page, perPage int) ([]Product, int, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	var total int
	if err := r.Pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE shop_id = $1 AND state <> 'archived'`, shopID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.Pool.Query(ctx, `SELECT `+productColumns+` FROM products p
		WHERE p.shop_id = $1 AND p.state <> 'archived'
		ORDER BY p.created_at DESC LIMIT $2 OFFSET $3`, shopID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, product)
	}
	return products, total, rows.Err()
}

// CreateProduct inserts a product and its category memberships.
func (r Repo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return Product{}, err
	}
	row := r.Pool.QueryRow(ctx, `INSERT INTO products
		(shop_id, name, slug, sku, barcode, description, image_url, price, tax_rate, inventory, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'active')
		RETURNING `+productColumnsBare,
		shopID, p.Name, p.Slug, p.SKU, p.Barcode, p.Description, p.ImageURL, p.Price, p.TaxRate, p.Inventory)
	created, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	if err := r.replaceCategories(ctx, created.ID, p.CategoryIDs); err != nil {
		return Product{}, err
	}
	created.CategoryIDs = p.CategoryIDs
	return created, nil
}

// UpdateProduct mutates the descriptive and pricing attributes of a product.
func (r Repo) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return Product{}, err
	}
	row := r.Pool.QueryRow(ctx, `UPDATE products SET
		name = $3, slug = $4, sku = $5, barcode = $6, description = $7,
		image_url = $8, price = $9, tax_rate = $10, inventory = $11, updated_at = now()
		WHERE id = $1 AND shop_id = $2
		RETURNING `+productColumnsBare,
		p.ID, shopID, p.Name, p.Slug, p.SKU, p.Barcode, p.Description, p.ImageURL, p.Price, p.TaxRate, p.Inventory)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	if err := r.replaceCategories(ctx, updated.ID, p.CategoryIDs); err != nil {
		return Product{}, err
	}
	updated.CategoryIDs = p.CategoryIDs
	return updated, nil
}

// ArchiveProduct soft-deletes a product. Rows stay behind for order history.
func (r Repo) ArchiveProduct(ctx context.Context, id uuid.UUID) error {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.Pool.Exec(ctx, `UPDATE products SET state = 'archived', updated_at = now()
		WHERE id = $1 AND shop_id = $2 AND state <> 'archived'`, id, shopID)
	if err != nil {
		return fmt.Errorf("archive product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DecrementInventory conditionally reduces stock within the provided
// transaction and returns the remaining quantity. It reports false when the
// remaining stock is insufficient, which serialises concurrent checkouts on
// the same row.
func (r Repo) DecrementInventory(ctx context.Context, tx pgx.Tx, productID uuid.UUID, variantID *uuid.UUID, qty int32) (int32, bool, error) {
	var remaining int32
	if variantID != nil {
		err := tx.QueryRow(ctx, `UPDATE product_variants SET inventory = inventory - $2
			WHERE id = $1 AND inventory >= $2 RETURNING inventory`, *variantID, qty).Scan(&remaining)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("decrement variant inventory: %w", err)
		}
		return remaining, true, nil
	}
	err := tx.QueryRow(ctx, `UPDATE products SET inventory = inventory - $2
		WHERE id = $1 AND inventory >= $2 RETURNING inventory`, productID, qty).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("decrement product inventory: %w", err)
	}
	return remaining, true, nil
}

func (r Repo) categoryIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.Pool.Query(ctx, `SELECT category_id FROM product_categories WHERE product_id = $1`, productID)
	if err != nil {
		return nil, fmt.Errorf("list product categories: %w", err)
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r Repo) replaceCategories(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	if _, err := r.Pool.Exec(ctx, `DELETE FROM product_categories WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("clear product categories: %w", err)
	}
	for _, cid := range categoryIDs {
		if _, err := r.Pool.Exec(ctx, `INSERT INTO product_categories (product_id, category_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, productID, cid); err != nil {
			return fmt.Errorf("attach category: %w", err)
		}
	}
	return nil
}

// productColumnsBare mirrors productColumns without the table alias for
// RETURNING clauses.
const productColumnsBare = `id, shop_id, name, slug, sku, barcode, description,
	image_url, price, tax_rate, inventory, state, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.ShopID, &p.Name, &p.Slug, &p.SKU, &p.Barcode, &p.Description,
		&p.ImageURL, &p.Price, &p.TaxRate, &p.Inventory, &p.State, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// ListCategories returns all categories of the current shop.
func (r Repo) ListCategories(ctx context.Context) ([]Category, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.Pool.Query(ctx,
		`SELECT id, shop_id, name, slug FROM categories WHERE shop_id = $1 ORDER BY name`, shopID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.ShopID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory inserts a category for the current shop.
func (r Repo) CreateCategory(ctx context.Context, c Category) (Category, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return Category{}, err
	}
	row := r.Pool.QueryRow(ctx, `INSERT INTO categories (shop_id, name, slug)
		VALUES ($1, $2, $3)
		RETURNING id, shop_id, name, slug`,
		shopID, c.Name, c.Slug)
	var created Category
	if err := row.Scan(&created.ID, &created.ShopID, &created.Name, &created.Slug); err != nil {
		return Category{}, fmt.Errorf("insert category: %w", err)
	}
	return created, nil
}

// DeleteCategory removes a category. Product links go with it; discounts
// targeting it fall back to never matching.
func (r Repo) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.Pool.Exec(ctx,
		`DELETE FROM categories WHERE id = $1 AND shop_id = $2`, id, shopID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// ListVariants returns the variants of a product owned by the current shop.
func (r Repo) ListVariants(ctx context.Context, productID uuid.UUID) ([]Variant, error) {
	if _, err := r.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	rows, err := r.Pool.Query(ctx, `SELECT id, product_id, name, sku, barcode, price, inventory, options
		FROM product_variants WHERE product_id = $1 ORDER BY name`, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &v.SKU, &v.Barcode, &v.Price, &v.Inventory, &v.Options); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// CreateVariant inserts a variant after verifying product ownership.
func (r Repo) CreateVariant(ctx context.Context, v Variant) (Variant, error) {
	if _, err := r.GetProduct(ctx, v.ProductID); err != nil {
		return Variant{}, err
	}
	row := r.Pool.QueryRow(ctx, `INSERT INTO product_variants (product_id, name, sku, barcode, price, inventory, options)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, product_id, name, sku, barcode, price, inventory, options`,
		v.ProductID, v.Name, v.SKU, v.Barcode, v.Price, v.Inventory, v.Options)
	var created Variant
	err := row.Scan(&created.ID, &created.ProductID, &created.Name, &created.SKU, &created.Barcode, &created.Price, &created.Inventory, &created.Options)
	if err != nil {
		return Variant{}, fmt.Errorf("insert variant: %w", err)
	}
	return created, nil
}

// DeleteVariant removes a variant after verifying product ownership.
func (r Repo) DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error {
	if _, err := r.GetProduct(ctx, productID); err != nil {
		return err
	}
	tag, err := r.Pool.Exec(ctx,
		`DELETE FROM product_variants WHERE id = $1 AND product_id = $2`, variantID, productID)
	if err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVariantNotFound
	}
	return nil
}
