package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clovershop/backoffice/internal/shop"
)

// Store captures the repository methods the service relies on.
type Store interface {
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	GetVariant(ctx context.Context, productID, variantID uuid.UUID) (Variant, error)
	ListProducts(ctx context.Context, page, perPage int) ([]Product, int, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	ArchiveProduct(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListVariants(ctx context.Context, productID uuid.UUID) ([]Variant, error)
	CreateVariant(ctx context.Context, v Variant) (Variant, error)
	DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error
}

// Service layers the product cache over the repository.
type Service struct {
	Store Store
	Cache *Cache
}

// Product returns a product, served from cache when possible. Archived
// products are still returned; callers deciding on sellability check State.
func (s *Service) Product(ctx context.Context, id uuid.UUID) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return Product{}, err
	}
	key := productKey(shopID, id)
	var cached Product
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	product, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	_ = s.Cache.SetJSON(ctx, key, product)
	return product, nil
}

// Variant resolves a variant under the given product.
func (s *Service) Variant(ctx context.Context, productID, variantID uuid.UUID) (Variant, error) {
	if s == nil || s.Store == nil {
		return Variant{}, errors.New("catalog service not configured")
	}
	return s.Store.GetVariant(ctx, productID, variantID)
}

// List returns a product page plus total count.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Product, int, error) {
	if s == nil || s.Store == nil {
		return nil, 0, errors.New("catalog service not configured")
	}
	return s.Store.ListProducts(ctx, page, perPage)
}

// Create inserts a product.
func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	return s.Store.CreateProduct(ctx, p)
}

// Update mutates a product and invalidates its cache entry.
func (s *Service) Update(ctx context.Context, p Product) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	updated, err := s.Store.UpdateProduct(ctx, p)
	if err != nil {
		return Product{}, err
	}
	if shopID, err := shop.UUIDFromContext(ctx); err == nil {
		_ = s.Cache.Invalidate(ctx, shopID, updated.ID)
	}
	return updated, nil
}

// Archive soft-deletes a product and invalidates its cache entry.
func (s *Service) Archive(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("catalog service not configured")
	}
	if err := s.Store.ArchiveProduct(ctx, id); err != nil {
		return err
	}
	if shopID, err := shop.UUIDFromContext(ctx); err == nil {
		_ = s.Cache.Invalidate(ctx, shopID, id)
	}
	return nil
}

// Categories lists the shop's categories.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	return s.Store.ListCategories(ctx)
}

// CreateCategory inserts a category.
func (s *Service) CreateCategory(ctx context.Context, c Category) (Category, error) {
	if s == nil || s.Store == nil {
		return Category{}, errors.New("catalog service not configured")
	}
	return s.Store.CreateCategory(ctx, c)
}

// DeleteCategory removes a category.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("catalog service not configured")
	}
	return s.Store.DeleteCategory(ctx, id)
}

// Variants lists the variants of a product.
func (s *Service) Variants(ctx context.Context, productID uuid.UUID) ([]Variant, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	return s.Store.ListVariants(ctx, productID)
}

// CreateVariant inserts a variant and invalidates the product cache entry so
// cached reads cannot keep pricing against a stale variant set.
func (s *Service) CreateVariant(ctx context.Context, v Variant) (Variant, error) {
	if s == nil || s.Store == nil {
		return Variant{}, errors.New("catalog service not configured")
	}
	created, err := s.Store.CreateVariant(ctx, v)
	if err != nil {
		return Variant{}, err
	}
	if shopID, err := shop.UUIDFromContext(ctx); err == nil {
		_ = s.Cache.Invalidate(ctx, shopID, v.ProductID)
	}
	return created, nil
}

// DeleteVariant removes a variant and invalidates the product cache entry.
func (s *Service) DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("catalog service not configured")
	}
	if err := s.Store.DeleteVariant(ctx, productID, variantID); err != nil {
		return err
	}
	if shopID, err := shop.UUIDFromContext(ctx); err == nil {
		_ = s.Cache.Invalidate(ctx, shopID, productID)
	}
	return nil
}
