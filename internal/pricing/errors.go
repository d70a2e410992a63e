package pricing

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/clovershop/backoffice/internal/coupon"
)

// ProductNotFoundError covers missing and archived products alike; callers
// cannot distinguish the two.
type ProductNotFoundError struct {
	ProductID uuid.UUID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

type VariantNotFoundError struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("variant %s of product %s not found", e.VariantID, e.ProductID)
}

type InvalidCartError struct {
	Reason string
}

func (e *InvalidCartError) Error() string {
	return "invalid cart: " + e.Reason
}

// CouponInvalidError carries the validator's reason so handlers can surface
// it without the coupon leaking internal state.
type CouponInvalidError struct {
	Code   string
	Reason coupon.Reason
}

func (e *CouponInvalidError) Error() string {
	return fmt.Sprintf("coupon %q rejected: %s", e.Code, e.Reason)
}
