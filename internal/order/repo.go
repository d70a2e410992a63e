package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clovershop/backoffice/internal/pricing"
	"github.com/clovershop/backoffice/internal/shop"
)

var (
	// ErrNotFound is returned when an order does not exist for the shop.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned for status moves the lifecycle
	// does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Repo reads and writes orders, scoped to the shop in context.
type Repo struct {
	Pool *pgxpool.Pool
}

const orderColumns = `id, shop_id, customer_id, source, status, currency, subtotal, tax, shipping, coupon_discount, coupon_code, total, created_at, updated_at`

// Insert writes the order header and its lines inside the given transaction.
// Checkout owns the transaction so inventory and coupon updates commit with
// the order or not at all.
func (r Repo) Insert(ctx context.Context, tx pgx.Tx, o Order) (Order, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO orders (shop_id, customer_id, source, status, currency, subtotal, tax, shipping, coupon_discount, coupon_code, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+orderColumns,
		o.ShopID, o.CustomerID, o.Source, o.Status, o.Currency,
		o.Subtotal, o.Tax, o.Shipping, o.CouponDiscount, nullString(o.CouponCode), o.Total,
	)
	inserted, err := scanOrder(row)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, line := range o.Lines {
		snapshot, err := json.Marshal(line.Snapshot)
		if err != nil {
			return Order{}, fmt.Errorf("encode line snapshot: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines (order_id, product_id, variant_id, quantity, unit_price, original_unit_price, discount_percentage, discount_amount, discount_code, line_total, snapshot)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			inserted.ID, line.ProductID, line.VariantID, line.Quantity,
			line.UnitPrice, line.OriginalUnitPrice, line.DiscountPercentage,
			line.DiscountAmount, nullString(line.DiscountCode), line.LineTotal, snapshot,
		)
		if err != nil {
			return Order{}, fmt.Errorf("insert order line: %w", err)
		}
	}
	inserted.Lines = o.Lines
	return inserted, nil
}

// Get fetches one order with its lines.
func (r Repo) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return Order{}, err
	}
	row := r.Pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND shop_id = $2`, id, shopID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	o.Lines, err = r.lines(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// List returns a page of orders, newest first, without lines.
func (r Repo) List(ctx context.Context, page, perPage int) ([]Order, int, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE shop_id = $1`, shopID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.Pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE shop_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		shopID, perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]Order, 0, perPage)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// UpdateStatus moves an order to a new status, enforcing the lifecycle.
func (r Repo) UpdateStatus(ctx context.Context, id uuid.UUID, to Status) (Order, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return Order{}, err
	}
	var current Status
	err = r.Pool.QueryRow(ctx,
		`SELECT status FROM orders WHERE id = $1 AND shop_id = $2`, id, shopID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	if !CanTransition(current, to) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, to)
	}
	row := r.Pool.QueryRow(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND shop_id = $2 AND status = $4
		RETURNING `+orderColumns,
		id, shopID, to, current,
	)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race with a concurrent transition.
			return Order{}, ErrInvalidTransition
		}
		return Order{}, err
	}
	return o, nil
}

func (r Repo) lines(ctx context.Context, orderID uuid.UUID) ([]pricing.Line, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT product_id, variant_id, quantity, unit_price, original_unit_price, discount_percentage, discount_amount, discount_code, line_total, snapshot
		FROM order_lines WHERE order_id = $1
		ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []pricing.Line
	for rows.Next() {
		var (
			line     pricing.Line
			code     *string
			snapshot []byte
		)
		err := rows.Scan(&line.ProductID, &line.VariantID, &line.Quantity,
			&line.UnitPrice, &line.OriginalUnitPrice, &line.DiscountPercentage,
			&line.DiscountAmount, &code, &line.LineTotal, &snapshot)
		if err != nil {
			return nil, err
		}
		if code != nil {
			line.DiscountCode = *code
		}
		if err := json.Unmarshal(snapshot, &line.Snapshot); err != nil {
			return nil, fmt.Errorf("decode line snapshot: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o    Order
		code *string
	)
	err := row.Scan(&o.ID, &o.ShopID, &o.CustomerID, &o.Source, &o.Status,
		&o.Currency, &o.Subtotal, &o.Tax, &o.Shipping, &o.CouponDiscount,
		&code, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if code != nil {
		o.CouponCode = *code
	}
	return o, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
