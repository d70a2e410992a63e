package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductState tracks the lifecycle of a product. Archived products stay in
// place so historical order lines keep resolving.
type ProductState string

const (
	ProductActive   ProductState = "active"
	ProductArchived ProductState = "archived"
)

// Product is a sellable item scoped to a shop. Price is the base price used
// when a variant does not carry its own.
type Product struct {
	ID          uuid.UUID        `json:"id"`
	ShopID      uuid.UUID        `json:"shopId"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	SKU         string           `json:"sku"`
	Barcode     string           `json:"barcode,omitempty"`
	Description string           `json:"description,omitempty"`
	ImageURL    string           `json:"imageUrl,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	TaxRate     *decimal.Decimal `json:"taxRate,omitempty"`
	Inventory   int32            `json:"inventory"`
	State       ProductState     `json:"state"`
	CategoryIDs []uuid.UUID      `json:"categoryIds,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Variant is a purchasable configuration of a product with its own
// SKU/inventory and an optional price override.
type Variant struct {
	ID        uuid.UUID         `json:"id"`
	ProductID uuid.UUID         `json:"productId"`
	Name      string            `json:"name"`
	SKU       string            `json:"sku"`
	Barcode   string            `json:"barcode,omitempty"`
	Price     *decimal.Decimal  `json:"price,omitempty"`
	Inventory int32             `json:"inventory"`
	Options   map[string]string `json:"options,omitempty"`
}

// Category groups products for navigation and discount targeting.
type Category struct {
	ID     uuid.UUID `json:"id"`
	ShopID uuid.UUID `json:"shopId"`
	Name   string    `json:"name"`
	Slug   string    `json:"slug"`
}

// EffectivePrice returns the variant price when set, else the product price.
func EffectivePrice(p Product, v *Variant) decimal.Decimal {
	if v != nil && v.Price != nil {
		return *v.Price
	}
	return p.Price
}
