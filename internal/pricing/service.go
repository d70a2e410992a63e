package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clovershop/backoffice/internal/catalog"
	"github.com/clovershop/backoffice/internal/coupon"
	"github.com/clovershop/backoffice/internal/discount"
	"github.com/clovershop/backoffice/internal/shop"
)

// CatalogStore provides the catalog reads pricing needs.
type CatalogStore interface {
	Product(ctx context.Context, id uuid.UUID) (catalog.Product, error)
	Variant(ctx context.Context, productID, variantID uuid.UUID) (catalog.Variant, error)
}

// DiscountStore yields the discounts eligible at an instant.
type DiscountStore interface {
	ActiveForShop(ctx context.Context, now time.Time) ([]discount.Discount, error)
}

// CouponStore looks up codes. ByCode returns nil without error when the code
// does not exist for the shop.
type CouponStore interface {
	ByCode(ctx context.Context, code string) (*coupon.Coupon, error)
}

// ShopStore resolves the shop bound to the request context.
type ShopStore interface {
	Current(ctx context.Context) (shop.Shop, error)
}

// RequestItem names a product (and optionally a variant) with a quantity.
type RequestItem struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Quantity  int32      `json:"quantity" validate:"required,gt=0"`
}

// Request is a cart to quote.
type Request struct {
	Items      []RequestItem `json:"items" validate:"required,min=1,dive"`
	CouponCode string        `json:"couponCode,omitempty"`
	Source     shop.Source   `json:"source,omitempty"`
	CustomerID *uuid.UUID    `json:"customerId,omitempty"`
}

// Service assembles catalog state, resolves discounts and coupons, and runs
// the engine. It never mutates anything; checkout owns persistence.
type Service struct {
	Catalog   CatalogStore
	Discounts DiscountStore
	Coupons   CouponStore
	Shops     ShopStore
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Quote prices the request against the current catalog and discount state.
func (s *Service) Quote(ctx context.Context, req Request) (Quote, error) {
	now := s.now()

	sh, err := s.Shops.Current(ctx)
	if err != nil {
		return Quote{}, err
	}

	source := req.Source
	if source == "" {
		source = shop.SourceOnline
	}
	if !source.Valid() {
		return Quote{}, &InvalidCartError{Reason: "unknown sales channel"}
	}

	items, err := s.buildItems(ctx, sh, req.Items)
	if err != nil {
		return Quote{}, err
	}

	var cpn *coupon.Coupon
	if req.CouponCode != "" {
		c, err := s.Coupons.ByCode(ctx, req.CouponCode)
		if err != nil && !errors.Is(err, coupon.ErrNotFound) {
			return Quote{}, err
		}
		res := coupon.Validate(c, source, req.CustomerID, now)
		if !res.Valid {
			return Quote{}, &CouponInvalidError{Code: req.CouponCode, Reason: res.Reason}
		}
		cpn = res.Coupon
	}

	discounts, err := s.Discounts.ActiveForShop(ctx, now)
	if err != nil {
		return Quote{}, err
	}

	set := Settings{TaxRate: sh.OrderTaxRate, ShippingFlat: sh.ShippingFlat}
	return Price(items, discounts, cpn, source, set, now)
}

func (s *Service) buildItems(ctx context.Context, sh shop.Shop, reqItems []RequestItem) ([]Item, error) {
	items := make([]Item, 0, len(reqItems))
	for _, ri := range reqItems {
		p, err := s.Catalog.Product(ctx, ri.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, &ProductNotFoundError{ProductID: ri.ProductID}
			}
			return nil, err
		}
		if p.State != catalog.ProductActive {
			return nil, &ProductNotFoundError{ProductID: ri.ProductID}
		}

		var variant *catalog.Variant
		if ri.VariantID != nil {
			v, err := s.Catalog.Variant(ctx, ri.ProductID, *ri.VariantID)
			if err != nil {
				if errors.Is(err, catalog.ErrVariantNotFound) {
					return nil, &VariantNotFoundError{ProductID: ri.ProductID, VariantID: *ri.VariantID}
				}
				return nil, err
			}
			variant = &v
		}

		items = append(items, Item{
			ProductID:   p.ID,
			VariantID:   ri.VariantID,
			Quantity:    ri.Quantity,
			BasePrice:   catalog.EffectivePrice(p, variant),
			CategoryIDs: p.CategoryIDs,
			Snapshot:    snapshotFor(sh, p, variant),
		})
	}
	return items, nil
}

// snapshotFor stamps the descriptive attributes an order line keeps forever.
// Variant SKU, barcode, and options override the product's own.
func snapshotFor(sh shop.Shop, p catalog.Product, v *catalog.Variant) Snapshot {
	snap := Snapshot{
		Name:        p.Name,
		SKU:         p.SKU,
		Barcode:     p.Barcode,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		TaxRate:     sh.DefaultTaxRate,
	}
	if p.TaxRate != nil {
		snap.TaxRate = *p.TaxRate
	}
	if v != nil {
		snap.Name = p.Name + " / " + v.Name
		snap.SKU = v.SKU
		if v.Barcode != "" {
			snap.Barcode = v.Barcode
		}
		snap.Options = v.Options
	}
	return snap
}
