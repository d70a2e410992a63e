// Package order exposes persisted orders for listing and admin status
// transitions. Orders are written by checkout; lines are immutable once
// committed and always render from their stored snapshot.
package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clovershop/backoffice/internal/pricing"
	"github.com/clovershop/backoffice/internal/shop"
)

// Status tracks an order through its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFulfilled Status = "fulfilled"
	StatusCanceled  Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFulfilled, StatusCanceled:
		return true
	}
	return false
}

// transitions lists the allowed status moves. Terminal states have no
// entries.
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCanceled},
	StatusPaid:    {StatusFulfilled, StatusCanceled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is a committed checkout with its priced lines.
type Order struct {
	ID             uuid.UUID       `json:"id"`
	ShopID         uuid.UUID       `json:"shopId"`
	CustomerID     *uuid.UUID      `json:"customerId,omitempty"`
	Source         shop.Source     `json:"source"`
	Status         Status          `json:"status"`
	Currency       string          `json:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Shipping       decimal.Decimal `json:"shipping"`
	CouponDiscount decimal.Decimal `json:"couponDiscount"`
	CouponCode     string          `json:"couponCode,omitempty"`
	Total          decimal.Decimal `json:"total"`
	Lines          []pricing.Line  `json:"lines,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
