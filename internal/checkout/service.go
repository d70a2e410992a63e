// Package checkout commits priced carts: order insert, inventory decrement,
// and coupon redemption happen in one transaction, all or nothing.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/clovershop/backoffice/internal/coupon"
	"github.com/clovershop/backoffice/internal/events"
	"github.com/clovershop/backoffice/internal/lock"
	"github.com/clovershop/backoffice/internal/obs"
	"github.com/clovershop/backoffice/internal/order"
	"github.com/clovershop/backoffice/internal/pricing"
	"github.com/clovershop/backoffice/internal/shop"
)

// DB begins transactions; *pgxpool.Pool satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Inventory performs the conditional stock decrement inside the checkout
// transaction.
type Inventory interface {
	DecrementInventory(ctx context.Context, tx pgx.Tx, productID uuid.UUID, variantID *uuid.UUID, qty int32) (int32, bool, error)
}

// Coupons performs the guarded usage increment. The coupon itself was
// already resolved during quoting; its ID travels on the quote.
type Coupons interface {
	RedeemUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// Orders writes the order and its lines inside the transaction.
type Orders interface {
	Insert(ctx context.Context, tx pgx.Tx, o order.Order) (order.Order, error)
}

// Service prices the cart and commits the result. Concurrent checkouts
// against the same stock or a limited coupon serialize on the conditional
// updates; losers get a typed error and no partial writes.
type Service struct {
	DB        DB
	Pricer    *pricing.Service
	Orders    Orders
	Inventory Inventory
	Coupons   Coupons
	Shops     pricing.ShopStore
	Events    *events.Bus
	Locker    *lock.Locker
	LockTTL   time.Duration
	Log       zerolog.Logger
	// LowStockThreshold triggers a product.low_stock event when a committed
	// decrement leaves at most this much stock. Zero disables the alert.
	LowStockThreshold int32
}

type lowStock struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Remaining int32
}

// Checkout quotes the request and commits the resulting order.
func (s *Service) Checkout(ctx context.Context, req pricing.Request) (order.Order, error) {
	sh, err := s.Shops.Current(ctx)
	if err != nil {
		return order.Order{}, err
	}

	var (
		committed order.Order
		low       []lowStock
	)
	run := func(ctx context.Context) error {
		var err error
		committed, low, err = s.commit(ctx, sh, req)
		return err
	}

	if s.Locker != nil {
		ttl := s.LockTTL
		if ttl <= 0 {
			ttl = 15 * time.Second
		}
		if err := s.Locker.WithLock(ctx, lockKey(sh.ID, req.CustomerID), ttl, run); err != nil {
			return order.Order{}, err
		}
	} else if err := run(ctx); err != nil {
		return order.Order{}, err
	}

	if s.Events != nil {
		s.emit(ctx, events.TopicOrderCreated, committed.ID, map[string]any{
			"orderId": committed.ID,
			"total":   committed.Total,
			"source":  committed.Source,
		})
		if committed.CouponCode != "" {
			s.emit(ctx, events.TopicCouponRedeemed, committed.ID, map[string]any{
				"orderId": committed.ID,
				"code":    committed.CouponCode,
			})
			if obs.CouponRedemptionsTotal != nil {
				obs.CouponRedemptionsTotal.Inc()
			}
		}
		for _, l := range low {
			s.emit(ctx, events.TopicProductLowStock, l.ProductID, map[string]any{
				"productId": l.ProductID,
				"variantId": l.VariantID,
				"remaining": l.Remaining,
			})
		}
	}
	return committed, nil
}

// emit publishes a post-commit event. The order is already persisted, so a
// failed emit is logged rather than surfaced to the caller.
func (s *Service) emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) {
	if _, err := s.Events.Emit(ctx, topic, aggregateID, payload); err != nil {
		s.Log.Error().Err(err).
			Str("topic", topic).
			Str("aggregate_id", aggregateID.String()).
			Msg("emit checkout event")
	}
}

func (s *Service) commit(ctx context.Context, sh shop.Shop, req pricing.Request) (order.Order, []lowStock, error) {
	quote, err := s.Pricer.Quote(ctx, req)
	if err != nil {
		return order.Order{}, nil, err
	}

	source := req.Source
	if source == "" {
		source = shop.SourceOnline
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return order.Order{}, nil, fmt.Errorf("begin checkout tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	committed, err := s.Orders.Insert(ctx, tx, order.Order{
		ShopID:         sh.ID,
		CustomerID:     req.CustomerID,
		Source:         source,
		Status:         order.StatusPending,
		Currency:       sh.Currency,
		Subtotal:       quote.Subtotal,
		Tax:            quote.Tax,
		Shipping:       quote.Shipping,
		CouponDiscount: quote.CouponDiscount,
		CouponCode:     quote.CouponCode,
		Total:          quote.Total,
		Lines:          quote.Lines,
	})
	if err != nil {
		return order.Order{}, nil, err
	}

	var low []lowStock
	for _, line := range quote.Lines {
		remaining, ok, err := s.Inventory.DecrementInventory(ctx, tx, line.ProductID, line.VariantID, line.Quantity)
		if err != nil {
			return order.Order{}, nil, fmt.Errorf("decrement inventory: %w", err)
		}
		if !ok {
			if obs.InventoryConflictsTotal != nil {
				obs.InventoryConflictsTotal.Inc()
			}
			return order.Order{}, nil, &InventoryUnavailableError{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
			}
		}
		if s.LowStockThreshold > 0 && remaining <= s.LowStockThreshold {
			low = append(low, lowStock{ProductID: line.ProductID, VariantID: line.VariantID, Remaining: remaining})
		}
	}

	if quote.CouponID != nil {
		ok, err := s.Coupons.RedeemUsage(ctx, tx, *quote.CouponID)
		if err != nil {
			return order.Order{}, nil, fmt.Errorf("redeem coupon: %w", err)
		}
		if !ok {
			// Lost the race for the last redemption slot.
			return order.Order{}, nil, &pricing.CouponInvalidError{
				Code:   quote.CouponCode,
				Reason: coupon.ReasonUsageLimitReached,
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return order.Order{}, nil, fmt.Errorf("commit checkout tx: %w", err)
	}
	return committed, low, nil
}

func lockKey(shopID uuid.UUID, customerID *uuid.UUID) string {
	who := "anon"
	if customerID != nil {
		who = customerID.String()
	}
	return lock.Key("checkout", shopID.String(), who)
}
