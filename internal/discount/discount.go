// Package discount implements product-level discounts and the targeting
// resolver that decides which discount, if any, applies to a catalog item.
package discount

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clovershop/backoffice/internal/shop"
)

// State tracks discount lifecycle. Deleted is terminal: a deleted discount
// never matches again and cannot be moved back to Active.
type State string

const (
	StateActive   State = "active"
	StateDisabled State = "disabled"
	StateDeleted  State = "deleted"
)

// TargetKind discriminates the targeting variants.
type TargetKind string

const (
	TargetAll      TargetKind = "all"
	TargetCategory TargetKind = "category"
	TargetProducts TargetKind = "products"
	TargetSingle   TargetKind = "single"
)

// Targeting is the rule determining which products or variants a discount
// applies to. Only the fields of the active Kind are meaningful.
type Targeting struct {
	Kind       TargetKind  `json:"kind"`
	CategoryID uuid.UUID   `json:"categoryId,omitempty"`
	ProductIDs []uuid.UUID `json:"productIds,omitempty"`
	VariantIDs []uuid.UUID `json:"variantIds,omitempty"`
	ProductID  uuid.UUID   `json:"productId,omitempty"`
	VariantID  *uuid.UUID  `json:"variantId,omitempty"`
}

// Matches reports whether the targeting rule covers the given item. Malformed
// rules (unknown kind, zero references) never match; they are skipped, not
// errors.
func (t Targeting) Matches(productID uuid.UUID, variantID *uuid.UUID, categoryIDs []uuid.UUID) bool {
	switch t.Kind {
	case TargetAll:
		return true
	case TargetCategory:
		if t.CategoryID == uuid.Nil {
			return false
		}
		for _, cid := range categoryIDs {
			if cid == t.CategoryID {
				return true
			}
		}
		return false
	case TargetProducts:
		if variantID != nil {
			for _, vid := range t.VariantIDs {
				if vid == *variantID {
					return true
				}
			}
		}
		for _, pid := range t.ProductIDs {
			if pid == productID {
				return true
			}
		}
		return false
	case TargetSingle:
		if t.VariantID != nil {
			return variantID != nil && *variantID == *t.VariantID
		}
		if t.ProductID == uuid.Nil {
			return false
		}
		return t.ProductID == productID
	}
	return false
}

// Discount is a time-boxed percentage reduction scoped to a shop.
type Discount struct {
	ID               uuid.UUID       `json:"id"`
	ShopID           uuid.UUID       `json:"shopId"`
	Name             string          `json:"name"`
	Percentage       decimal.Decimal `json:"percentage"`
	State            State           `json:"state"`
	StartsAt         time.Time       `json:"startsAt"`
	EndsAt           time.Time       `json:"endsAt"`
	AvailableOnline  bool            `json:"availableOnline"`
	AvailableInStore bool            `json:"availableInStore"`
	Targeting        Targeting       `json:"targeting"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// ActiveAt reports whether the discount may be applied at the given instant.
func (d Discount) ActiveAt(now time.Time) bool {
	if d.State != StateActive {
		return false
	}
	if now.Before(d.StartsAt) || now.After(d.EndsAt) {
		return false
	}
	return true
}

// AvailableOn reports whether the discount covers the sales channel.
// Phone orders follow the in-store availability flag.
func (d Discount) AvailableOn(source shop.Source) bool {
	switch source {
	case shop.SourceOnline:
		return d.AvailableOnline
	case shop.SourceInStore, shop.SourcePhone:
		return d.AvailableInStore
	}
	return false
}
