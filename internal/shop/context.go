package shop

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const shopContextKey contextKey = "shop.id"

// WithShop stores the shop identifier inside the context.
func WithShop(ctx context.Context, shopID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, shopContextKey, shopID)
}

// FromContext extracts the shop identifier from the context if available.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	shopID, ok := ctx.Value(shopContextKey).(string)
	if !ok {
		return "", false
	}
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return "", false
	}
	return shopID, true
}

// UUIDFromContext parses the shop identifier in context as a UUID.
func UUIDFromContext(ctx context.Context) (uuid.UUID, error) {
	shopID, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil, ErrShopMissing
	}
	id, err := uuid.Parse(shopID)
	if err != nil {
		return uuid.Nil, ErrShopInvalid
	}
	return id, nil
}
