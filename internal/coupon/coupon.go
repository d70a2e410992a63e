// Package coupon implements shop discount codes and their validation.
package coupon

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clovershop/backoffice/internal/discount"
	"github.com/clovershop/backoffice/internal/shop"
)

// Coupon is a redeemable discount code. Codes are stored canonically
// upper-cased and are unique per shop.
type Coupon struct {
	ID               uuid.UUID          `json:"id"`
	ShopID           uuid.UUID          `json:"shopId"`
	Code             string             `json:"code"`
	Percentage       decimal.Decimal    `json:"percentage"`
	State            discount.State     `json:"state"`
	StartsAt         time.Time          `json:"startsAt"`
	EndsAt           time.Time          `json:"endsAt"`
	AvailableOnline  bool               `json:"availableOnline"`
	AvailableInStore bool               `json:"availableInStore"`
	UsageLimit       *int32             `json:"usageLimit,omitempty"`
	UsedCount        int32              `json:"usedCount"`
	Targeting        discount.Targeting `json:"targeting"`
	CustomerIDs      []uuid.UUID        `json:"customerIds,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// Canonical normalises a user-supplied code for storage and lookup.
func Canonical(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AvailableOn reports whether the coupon covers the sales channel. Phone
// orders follow the in-store flag, matching discount semantics.
func (c Coupon) AvailableOn(source shop.Source) bool {
	switch source {
	case shop.SourceOnline:
		return c.AvailableOnline
	case shop.SourceInStore, shop.SourcePhone:
		return c.AvailableInStore
	}
	return false
}
