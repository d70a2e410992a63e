package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clovershop/backoffice/internal/discount"
	"github.com/clovershop/backoffice/internal/shop"
)

var (
	// ErrNotFound indicates the code does not exist within the shop.
	ErrNotFound = errors.New("coupon not found")
	// ErrCodeTaken indicates the code already exists for the shop.
	ErrCodeTaken = errors.New("coupon code already exists")
)

// Repo provides shop-scoped coupon persistence.
type Repo struct {
	Pool *pgxpool.Pool
}

const couponColumns = `id, shop_id, code, percentage, state, starts_at, ends_at,
	available_online, available_in_store, usage_limit, used_count,
	target_kind, target_category_id, target_product_ids, target_variant_ids,
	single_product_id, single_variant_id, customer_ids, created_at`

// ByCode loads a coupon by its canonical code. Soft-deleted rows are still
// returned; the validator maps them to NOT_FOUND so redemption paths stay
// uniform.
func (r Repo) ByCode(ctx context.Context, code string) (*Coupon, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	row := r.Pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM discount_codes
		WHERE shop_id = $1 AND code = $2`, shopID, Canonical(code))
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns all non-deleted coupons of the current shop.
func (r Repo) List(ctx context.Context) ([]Coupon, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+couponColumns+` FROM discount_codes
		WHERE shop_id = $1 AND state <> 'deleted' ORDER BY created_at DESC`, shopID)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()
	var coupons []Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

// Create inserts a coupon with its canonical code.
func (r Repo) Create(ctx context.Context, c Coupon) (Coupon, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return Coupon{}, err
	}
	row := r.Pool.QueryRow(ctx, `INSERT INTO discount_codes
		(shop_id, code, percentage, state, starts_at, ends_at, available_online, available_in_store,
		 usage_limit, target_kind, target_category_id, target_product_ids, target_variant_ids,
		 single_product_id, single_variant_id, customer_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+couponColumns,
		shopID, Canonical(c.Code), c.Percentage, stateOrDefault(c.State), c.StartsAt, c.EndsAt,
		c.AvailableOnline, c.AvailableInStore, c.UsageLimit,
		c.Targeting.Kind, nilUUID(c.Targeting.CategoryID), c.Targeting.ProductIDs, c.Targeting.VariantIDs,
		nilUUID(c.Targeting.ProductID), c.Targeting.VariantID, c.CustomerIDs)
	created, err := scanCoupon(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Coupon{}, ErrCodeTaken
		}
		return Coupon{}, fmt.Errorf("insert coupon: %w", err)
	}
	return created, nil
}

// Update mutates a non-deleted coupon. The code itself is immutable once
// created; redeemed orders reference it.
func (r Repo) Update(ctx context.Context, c Coupon) (Coupon, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return Coupon{}, err
	}
	state := stateOrDefault(c.State)
	if state == discount.StateDeleted {
		state = discount.StateDisabled
	}
	row := r.Pool.QueryRow(ctx, `UPDATE discount_codes SET
		percentage = $3, state = $4, starts_at = $5, ends_at = $6,
		available_online = $7, available_in_store = $8, usage_limit = $9,
		target_kind = $10, target_category_id = $11, target_product_ids = $12,
		target_variant_ids = $13, single_product_id = $14, single_variant_id = $15,
		customer_ids = $16
		WHERE id = $1 AND shop_id = $2 AND state <> 'deleted'
		RETURNING `+couponColumns,
		c.ID, shopID, c.Percentage, state, c.StartsAt, c.EndsAt,
		c.AvailableOnline, c.AvailableInStore, c.UsageLimit,
		c.Targeting.Kind, nilUUID(c.Targeting.CategoryID), c.Targeting.ProductIDs, c.Targeting.VariantIDs,
		nilUUID(c.Targeting.ProductID), c.Targeting.VariantID, c.CustomerIDs)
	updated, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		return Coupon{}, err
	}
	return updated, nil
}

// SoftDelete marks a coupon deleted. Redeemed codes keep their rows so order
// history and analytics stay intact.
func (r Repo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.Pool.Exec(ctx, `UPDATE discount_codes SET state = 'deleted'
		WHERE id = $1 AND shop_id = $2 AND state <> 'deleted'`, id, shopID)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RedeemUsage increments the usage counter inside the provided transaction.
// The conditional update serialises concurrent redemptions: it reports false
// when the limit is already exhausted.
func (r Repo) RedeemUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `UPDATE discount_codes
		SET used_count = used_count + 1
		WHERE id = $1 AND state = 'active'
		  AND (usage_limit IS NULL OR used_count < usage_limit)`, id)
	if err != nil {
		return false, fmt.Errorf("redeem coupon usage: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanCoupon(row pgx.Row) (Coupon, error) {
	var (
		c          Coupon
		categoryID *uuid.UUID
		productID  *uuid.UUID
	)
	err := row.Scan(&c.ID, &c.ShopID, &c.Code, &c.Percentage, &c.State, &c.StartsAt, &c.EndsAt,
		&c.AvailableOnline, &c.AvailableInStore, &c.UsageLimit, &c.UsedCount,
		&c.Targeting.Kind, &categoryID, &c.Targeting.ProductIDs, &c.Targeting.VariantIDs,
		&productID, &c.Targeting.VariantID, &c.CustomerIDs, &c.CreatedAt)
	if err != nil {
		return Coupon{}, err
	}
	if categoryID != nil {
		c.Targeting.CategoryID = *categoryID
	}
	if productID != nil {
		c.Targeting.ProductID = *productID
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func stateOrDefault(s discount.State) discount.State {
	switch s {
	case discount.StateActive, discount.StateDisabled, discount.StateDeleted:
		return s
	}
	return discount.StateActive
}

func nilUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
