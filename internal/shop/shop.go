package shop

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrShopMissing indicates the shop identifier was not found in context.
	ErrShopMissing = errors.New("shop missing")
	// ErrShopInvalid indicates the shop identifier could not be parsed.
	ErrShopInvalid = errors.New("shop invalid")
	// ErrNotFound indicates the shop does not exist.
	ErrNotFound = errors.New("shop not found")
)

// Source identifies the sales channel an order was placed through.
type Source string

const (
	SourceOnline  Source = "ONLINE"
	SourceInStore Source = "IN_STORE"
	SourcePhone   Source = "PHONE"
)

// Valid reports whether the source is one of the known channels.
func (s Source) Valid() bool {
	switch s {
	case SourceOnline, SourceInStore, SourcePhone:
		return true
	}
	return false
}

// Shop is a tenant. All catalog, discount, and order data is scoped by its ID.
type Shop struct {
	ID             uuid.UUID       `json:"id"`
	Slug           string          `json:"slug"`
	Name           string          `json:"name"`
	Plan           string          `json:"plan"`
	Currency       string          `json:"currency"`
	DefaultTaxRate decimal.Decimal `json:"defaultTaxRate"`
	OrderTaxRate   decimal.Decimal `json:"orderTaxRate"`
	ShippingFlat   decimal.Decimal `json:"shippingFlat"`
	CreatedAt      time.Time       `json:"createdAt"`
}
