package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo loads shop rows from Postgres.
type Repo struct {
	Pool *pgxpool.Pool
}

const shopColumns = `id, slug, name, plan, currency, default_tax_rate, order_tax_rate, shipping_flat, created_at`

// ByID fetches a shop by its primary key.
func (r Repo) ByID(ctx context.Context, id uuid.UUID) (Shop, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = $1`, id)
	return scanShop(row)
}

// BySlug fetches a shop by its slug.
func (r Repo) BySlug(ctx context.Context, slug string) (Shop, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+shopColumns+` FROM shops WHERE slug = $1`, slug)
	return scanShop(row)
}

// Current resolves the shop referenced by the identifier stored in context.
// The identifier may be a UUID (header) or a slug (subdomain).
func (r Repo) Current(ctx context.Context) (Shop, error) {
	ref, ok := FromContext(ctx)
	if !ok {
		return Shop{}, ErrShopMissing
	}
	if id, err := uuid.Parse(ref); err == nil {
		return r.ByID(ctx, id)
	}
	return r.BySlug(ctx, ref)
}

func scanShop(row pgx.Row) (Shop, error) {
	var s Shop
	err := row.Scan(&s.ID, &s.Slug, &s.Name, &s.Plan, &s.Currency, &s.DefaultTaxRate, &s.OrderTaxRate, &s.ShippingFlat, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shop{}, ErrNotFound
		}
		return Shop{}, fmt.Errorf("scan shop: %w", err)
	}
	return s, nil
}
