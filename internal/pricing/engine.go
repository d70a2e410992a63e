// Package pricing computes cart totals: per-line unit prices after product
// discounts, an optional coupon pass, tax, and shipping. The engine is a pure
// function of its inputs; persistence, inventory, and coupon redemption live
// with the checkout collaborator.
package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clovershop/backoffice/internal/coupon"
	"github.com/clovershop/backoffice/internal/discount"
	"github.com/clovershop/backoffice/internal/shop"
)

var hundred = decimal.NewFromInt(100)

// Snapshot is the immutable copy of descriptive product attributes stamped
// onto a line at pricing time. Orders render from the snapshot forever, even
// after the product changes or is archived.
type Snapshot struct {
	Name        string            `json:"name"`
	SKU         string            `json:"sku"`
	Barcode     string            `json:"barcode,omitempty"`
	Description string            `json:"description,omitempty"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
	TaxRate     decimal.Decimal   `json:"taxRate"`
}

// Item is a cart line joined with the catalog state it prices against.
type Item struct {
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	Quantity    int32
	BasePrice   decimal.Decimal
	CategoryIDs []uuid.UUID
	Snapshot    Snapshot
}

// Line is a fully priced cart line.
type Line struct {
	ProductID          uuid.UUID        `json:"productId"`
	VariantID          *uuid.UUID       `json:"variantId,omitempty"`
	Quantity           int32            `json:"quantity"`
	UnitPrice          decimal.Decimal  `json:"unitPrice"`
	OriginalUnitPrice  decimal.Decimal  `json:"originalUnitPrice"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discountAmount,omitempty"`
	DiscountCode       string           `json:"discountCode,omitempty"`
	LineTotal          decimal.Decimal  `json:"lineTotal"`
	Snapshot           Snapshot         `json:"productSnapshot"`
}

// Settings are the shop-level pricing knobs.
type Settings struct {
	TaxRate      decimal.Decimal
	ShippingFlat decimal.Decimal
}

// Quote aggregates the priced lines. Subtotal is the pre-coupon sum so that
// Total == Subtotal + Tax + Shipping - CouponDiscount always holds; tax is
// charged on the amount actually payable for goods.
type Quote struct {
	Lines          []Line          `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Shipping       decimal.Decimal `json:"shipping"`
	CouponDiscount decimal.Decimal `json:"couponDiscount"`
	CouponCode     string          `json:"couponCode,omitempty"`
	CouponID       *uuid.UUID      `json:"couponId,omitempty"`
	Total          decimal.Decimal `json:"total"`
}

// round2 rounds to two decimals, half away from zero.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func discountedUnit(base, percentage decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(percentage.Div(hundred))
	return round2(base.Mul(factor))
}

// Price computes the quote for the given items. The coupon, when non-nil,
// must already have passed validation; the engine only decides where it
// applies. Product discounts and coupons do not stack: per line the higher
// single percentage wins.
func Price(items []Item, discounts []discount.Discount, cpn *coupon.Coupon, source shop.Source, set Settings, now time.Time) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, &InvalidCartError{Reason: "cart is empty"}
	}

	lines := make([]Line, 0, len(items))
	preSubtotal := decimal.Zero
	postSubtotal := decimal.Zero

	for _, it := range items {
		if it.Quantity <= 0 {
			return Quote{}, &InvalidCartError{Reason: "quantity must be positive"}
		}
		qty := decimal.NewFromInt(int64(it.Quantity))

		line := Line{
			ProductID:         it.ProductID,
			VariantID:         it.VariantID,
			Quantity:          it.Quantity,
			UnitPrice:         round2(it.BasePrice),
			OriginalUnitPrice: round2(it.BasePrice),
			Snapshot:          it.Snapshot,
		}

		pct := decimal.Zero
		if d := discount.Resolve(it.ProductID, it.VariantID, it.CategoryIDs, source, now, discounts); d != nil {
			pct = d.Percentage
			line.UnitPrice = discountedUnit(it.BasePrice, pct)
			p := pct
			line.DiscountPercentage = &p
			amount := line.OriginalUnitPrice.Sub(line.UnitPrice)
			line.DiscountAmount = &amount
		}
		preSubtotal = preSubtotal.Add(line.UnitPrice.Mul(qty))

		if cpn != nil && cpn.Percentage.GreaterThan(pct) &&
			cpn.Targeting.Matches(it.ProductID, it.VariantID, it.CategoryIDs) {
			line.UnitPrice = discountedUnit(it.BasePrice, cpn.Percentage)
			p := cpn.Percentage
			line.DiscountPercentage = &p
			amount := line.OriginalUnitPrice.Sub(line.UnitPrice)
			line.DiscountAmount = &amount
			line.DiscountCode = cpn.Code
		}

		line.LineTotal = line.UnitPrice.Mul(qty)
		postSubtotal = postSubtotal.Add(line.LineTotal)
		lines = append(lines, line)
	}

	couponDiscount := preSubtotal.Sub(postSubtotal)
	tax := round2(postSubtotal.Mul(set.TaxRate).Div(hundred))
	shipping := round2(set.ShippingFlat)
	total := postSubtotal.Add(tax).Add(shipping)
	if total.IsNegative() {
		total = decimal.Zero
	}

	quote := Quote{
		Lines:          lines,
		Subtotal:       preSubtotal,
		Tax:            tax,
		Shipping:       shipping,
		CouponDiscount: couponDiscount,
		Total:          total,
	}
	if cpn != nil {
		quote.CouponCode = cpn.Code
		id := cpn.ID
		quote.CouponID = &id
	}
	return quote, nil
}
