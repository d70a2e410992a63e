package discount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clovershop/backoffice/internal/shop"
)

// ErrNotFound indicates the discount does not exist within the shop.
var ErrNotFound = errors.New("discount not found")

// Repo provides shop-scoped discount persistence.
type Repo struct {
	Pool *pgxpool.Pool
}

const discountColumns = `id, shop_id, name, percentage, state, starts_at, ends_at,
	available_online, available_in_store, target_kind, target_category_id,
	target_product_ids, target_variant_ids, single_product_id, single_variant_id, created_at`

// ActiveForShop returns all discounts of the current shop whose window
// contains now and whose state is active. The resolver re-checks the window
// so callers may cache the slice for the duration of a request.
func (r Repo) ActiveForShop(ctx context.Context, now time.Time) ([]Discount, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+discountColumns+` FROM discounts
		WHERE shop_id = $1 AND state = 'active' AND starts_at <= $2 AND ends_at >= $2`, shopID, now)
	if err != nil {
		return nil, fmt.Errorf("list active discounts: %w", err)
	}
	defer rows.Close()
	return collectDiscounts(rows)
}

// List returns all non-deleted discounts of the current shop.
func (r Repo) List(ctx context.Context) ([]Discount, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+discountColumns+` FROM discounts
		WHERE shop_id = $1 AND state <> 'deleted' ORDER BY created_at DESC`, shopID)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	defer rows.Close()
	return collectDiscounts(rows)
}

// Create inserts a discount in the given state.
func (r Repo) Create(ctx context.Context, d Discount) (Discount, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return Discount{}, err
	}
	row := r.Pool.QueryRow(ctx, `INSERT INTO discounts
		(shop_id, name, percentage, state, starts_at, ends_at, available_online, available_in_store,
		 target_kind, target_category_id, target_product_ids, target_variant_ids, single_product_id, single_variant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+discountColumns,
		shopID, d.Name, d.Percentage, stateOrDefault(d.State), d.StartsAt, d.EndsAt,
		d.AvailableOnline, d.AvailableInStore,
		d.Targeting.Kind, nilUUID(d.Targeting.CategoryID), d.Targeting.ProductIDs, d.Targeting.VariantIDs,
		nilUUID(d.Targeting.ProductID), d.Targeting.VariantID)
	return scanDiscount(row)
}

// Update mutates a non-deleted discount. Deleted discounts are never revived:
// the WHERE clause excludes them so an update on one reports ErrNotFound.
func (r Repo) Update(ctx context.Context, d Discount) (Discount, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return Discount{}, err
	}
	state := stateOrDefault(d.State)
	if state == StateDeleted {
		state = StateDisabled
	}
	row := r.Pool.QueryRow(ctx, `UPDATE discounts SET
		name = $3, percentage = $4, state = $5, starts_at = $6, ends_at = $7,
		available_online = $8, available_in_store = $9,
		target_kind = $10, target_category_id = $11, target_product_ids = $12,
		target_variant_ids = $13, single_product_id = $14, single_variant_id = $15
		WHERE id = $1 AND shop_id = $2 AND state <> 'deleted'
		RETURNING `+discountColumns,
		d.ID, shopID, d.Name, d.Percentage, state, d.StartsAt, d.EndsAt,
		d.AvailableOnline, d.AvailableInStore,
		d.Targeting.Kind, nilUUID(d.Targeting.CategoryID), d.Targeting.ProductIDs, d.Targeting.VariantIDs,
		nilUUID(d.Targeting.ProductID), d.Targeting.VariantID)
	updated, err := scanDiscount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Discount{}, ErrNotFound
		}
		return Discount{}, err
	}
	return updated, nil
}

// SoftDelete marks a discount deleted, keeping the row for order history and
// analytics.
func (r Repo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.Pool.Exec(ctx, `UPDATE discounts SET state = 'deleted'
		WHERE id = $1 AND shop_id = $2 AND state <> 'deleted'`, id, shopID)
	if err != nil {
		return fmt.Errorf("delete discount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectDiscounts(rows pgx.Rows) ([]Discount, error) {
	var discounts []Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}

func scanDiscount(row pgx.Row) (Discount, error) {
	var (
		d          Discount
		categoryID *uuid.UUID
		productID  *uuid.UUID
	)
	err := row.Scan(&d.ID, &d.ShopID, &d.Name, &d.Percentage, &d.State, &d.StartsAt, &d.EndsAt,
		&d.AvailableOnline, &d.AvailableInStore,
		&d.Targeting.Kind, &categoryID, &d.Targeting.ProductIDs, &d.Targeting.VariantIDs,
		&productID, &d.Targeting.VariantID, &d.CreatedAt)
	if err != nil {
		return Discount{}, err
	}
	if categoryID != nil {
		d.Targeting.CategoryID = *categoryID
	}
	if productID != nil {
		d.Targeting.ProductID = *productID
	}
	return d, nil
}

func stateOrDefault(s State) State {
	switch s {
	case StateActive, StateDisabled, StateDeleted:
		return s
	}
	return StateActive
}

func nilUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
