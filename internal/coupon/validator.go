package coupon

import (
	"time"

	"github.com/google/uuid"

	"github.com/clovershop/backoffice/internal/discount"
	"github.com/clovershop/backoffice/internal/shop"
)

// Reason is the typed cause a coupon was rejected for, suitable for showing
// an accurate message to the end user.
type Reason string

const (
	ReasonNotFound            Reason = "NOT_FOUND"
	ReasonInactive            Reason = "INACTIVE"
	ReasonNotYetActive        Reason = "NOT_YET_ACTIVE"
	ReasonExpired             Reason = "EXPIRED"
	ReasonWrongChannel        Reason = "WRONG_CHANNEL"
	ReasonUsageLimitReached   Reason = "USAGE_LIMIT_REACHED"
	ReasonCustomerNotEligible Reason = "CUSTOMER_NOT_ELIGIBLE"
)

// Result is the outcome of validating a code.
type Result struct {
	Valid  bool    `json:"valid"`
	Coupon *Coupon `json:"coupon,omitempty"`
	Reason Reason  `json:"reason,omitempty"`
}

// Validate checks a coupon against the sales channel, customer, and instant,
// short-circuiting on the first failure. A nil or soft-deleted coupon is
// NOT_FOUND so deleted codes are indistinguishable from unknown ones.
func Validate(c *Coupon, source shop.Source, customerID *uuid.UUID, now time.Time) Result {
	if c == nil || c.State == discount.StateDeleted {
		return Result{Reason: ReasonNotFound}
	}
	if c.State != discount.StateActive {
		return Result{Reason: ReasonInactive}
	}
	if now.Before(c.StartsAt) {
		return Result{Reason: ReasonNotYetActive}
	}
	if now.After(c.EndsAt) {
		return Result{Reason: ReasonExpired}
	}
	if !c.AvailableOn(source) {
		return Result{Reason: ReasonWrongChannel}
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return Result{Reason: ReasonUsageLimitReached}
	}
	if len(c.CustomerIDs) > 0 {
		if customerID == nil {
			return Result{Reason: ReasonCustomerNotEligible}
		}
		eligible := false
		for _, id := range c.CustomerIDs {
			if id == *customerID {
				eligible = true
				break
			}
		}
		if !eligible {
			return Result{Reason: ReasonCustomerNotEligible}
		}
	}
	return Result{Valid: true, Coupon: c}
}
