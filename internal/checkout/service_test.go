package checkout

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/clovershop/backoffice/internal/catalog"
	"github.com/clovershop/backoffice/internal/coupon"
	"github.com/clovershop/backoffice/internal/discount"
	"github.com/clovershop/backoffice/internal/events"
	"github.com/clovershop/backoffice/internal/order"
	"github.com/clovershop/backoffice/internal/pricing"
	"github.com/clovershop/backoffice/internal/shop"
)

var checkoutNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeDB struct{ tx *fakeTx }

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

type fakeCatalog struct {
	products map[uuid.UUID]catalog.Product
}

func (f *fakeCatalog) Product(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) Variant(context.Context, uuid.UUID, uuid.UUID) (catalog.Variant, error) {
	return catalog.Variant{}, catalog.ErrVariantNotFound
}

type fakeDiscounts struct{}

func (fakeDiscounts) ActiveForShop(context.Context, time.Time) ([]discount.Discount, error) {
	return nil, nil
}

type fakeCoupons struct {
	byCode      map[string]*coupon.Coupon
	byCodeCalls int
	redeemOK    bool
	redeemed    []uuid.UUID
}

func (f *fakeCoupons) ByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	f.byCodeCalls++
	c, ok := f.byCode[coupon.Canonical(code)]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

func (f *fakeCoupons) RedeemUsage(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	if !f.redeemOK {
		return false, nil
	}
	f.redeemed = append(f.redeemed, id)
	return true, nil
}

type fakeShops struct{ sh shop.Shop }

func (f *fakeShops) Current(context.Context) (shop.Shop, error) { return f.sh, nil }

type fakeInventory struct {
	short     map[uuid.UUID]bool
	remaining map[uuid.UUID]int32
	calls     int
}

func (f *fakeInventory) DecrementInventory(_ context.Context, _ pgx.Tx, productID uuid.UUID, _ *uuid.UUID, _ int32) (int32, bool, error) {
	f.calls++
	if f.short[productID] {
		return 0, false, nil
	}
	return f.remaining[productID], true, nil
}

type fakeOrders struct {
	inserted *order.Order
}

func (f *fakeOrders) Insert(_ context.Context, _ pgx.Tx, o order.Order) (order.Order, error) {
	o.ID = uuid.New()
	o.CreatedAt = checkoutNow
	o.UpdatedAt = checkoutNow
	f.inserted = &o
	return o, nil
}

type memoryStore struct {
	events []events.Event
	fail   error
}

func (m *memoryStore) Insert(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	if m.fail != nil {
		return events.Event{}, m.fail
	}
	ev := events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: checkoutNow}
	m.events = append(m.events, ev)
	return ev, nil
}

type fixture struct {
	svc       *Service
	db        *fakeDB
	coupons   *fakeCoupons
	inventory *fakeInventory
	orders    *fakeOrders
	store     *memoryStore
	product   catalog.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	product := catalog.Product{
		ID:    uuid.New(),
		Name:  "Widget",
		SKU:   "WID-1",
		Price: mustDec("100"),
		State: catalog.ProductActive,
	}
	cat := &fakeCatalog{products: map[uuid.UUID]catalog.Product{product.ID: product}}
	coupons := &fakeCoupons{byCode: map[string]*coupon.Coupon{}, redeemOK: true}
	shops := &fakeShops{sh: shop.Shop{
		ID:           uuid.New(),
		Currency:     "EUR",
		OrderTaxRate: mustDec("10"),
		ShippingFlat: mustDec("10"),
	}}
	pricer := &pricing.Service{
		Catalog:   cat,
		Discounts: fakeDiscounts{},
		Coupons:   coupons,
		Shops:     shops,
		Now:       func() time.Time { return checkoutNow },
	}
	db := &fakeDB{}
	inventory := &fakeInventory{short: map[uuid.UUID]bool{}, remaining: map[uuid.UUID]int32{product.ID: 50}}
	orders := &fakeOrders{}
	store := &memoryStore{}
	svc := &Service{
		DB:        db,
		Pricer:    pricer,
		Orders:    orders,
		Inventory: inventory,
		Coupons:   coupons,
		Shops:     shops,
		Events:    &events.Bus{Store: store},
	}
	return &fixture{svc: svc, db: db, coupons: coupons, inventory: inventory, orders: orders, store: store, product: product}
}

func TestCheckoutCommitsOrder(t *testing.T) {
	f := newFixture(t)
	o, err := f.svc.Checkout(context.Background(), pricing.Request{
		Items: []pricing.RequestItem{{ProductID: f.product.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, o.Status)
	require.Equal(t, "EUR", o.Currency)
	require.True(t, o.Total.Equal(mustDec("230")))
	require.True(t, f.db.tx.committed)
	require.Equal(t, 1, f.inventory.calls)
	require.Len(t, f.store.events, 1)
	require.Equal(t, events.TopicOrderCreated, f.store.events[0].Topic)
}

func TestCheckoutRollsBackOnInventoryConflict(t *testing.T) {
	f := newFixture(t)
	f.inventory.short[f.product.ID] = true

	_, err := f.svc.Checkout(context.Background(), pricing.Request{
		Items: []pricing.RequestItem{{ProductID: f.product.ID, Quantity: 1}},
	})
	var iue *InventoryUnavailableError
	require.ErrorAs(t, err, &iue)
	require.Equal(t, f.product.ID, iue.ProductID)
	require.True(t, f.db.tx.rolledBack)
	require.False(t, f.db.tx.committed)
	require.Empty(t, f.store.events)
}

func TestCheckoutRedeemsCoupon(t *testing.T) {
	f := newFixture(t)
	c := &coupon.Coupon{
		ID:              uuid.New(),
		Code:            "SPRING30",
		Percentage:      mustDec("30"),
		State:           discount.StateActive,
		StartsAt:        checkoutNow.Add(-time.Hour),
		EndsAt:          checkoutNow.Add(time.Hour),
		AvailableOnline: true,
		Targeting:       discount.Targeting{Kind: discount.TargetAll},
	}
	f.coupons.byCode["SPRING30"] = c

	o, err := f.svc.Checkout(context.Background(), pricing.Request{
		Items:      []pricing.RequestItem{{ProductID: f.product.ID, Quantity: 1}},
		CouponCode: "spring30",
	})
	require.NoError(t, err)
	require.Equal(t, "SPRING30", o.CouponCode)
	require.Equal(t, []uuid.UUID{c.ID}, f.coupons.redeemed)
	require.Equal(t, 1, f.coupons.byCodeCalls, "redemption should reuse the coupon resolved while quoting")
	require.True(t, f.db.tx.committed)
	require.Len(t, f.store.events, 2)
	require.Equal(t, events.TopicCouponRedeemed, f.store.events[1].Topic)
}

func TestCheckoutRollsBackWhenRedemptionRaceLost(t *testing.T) {
	f := newFixture(t)
	c := &coupon.Coupon{
		ID:              uuid.New(),
		Code:            "LASTONE",
		Percentage:      mustDec("10"),
		State:           discount.StateActive,
		StartsAt:        checkoutNow.Add(-time.Hour),
		EndsAt:          checkoutNow.Add(time.Hour),
		AvailableOnline: true,
		Targeting:       discount.Targeting{Kind: discount.TargetAll},
	}
	f.coupons.byCode["LASTONE"] = c
	f.coupons.redeemOK = false

	_, err := f.svc.Checkout(context.Background(), pricing.Request{
		Items:      []pricing.RequestItem{{ProductID: f.product.ID, Quantity: 1}},
		CouponCode: "LASTONE",
	})
	var cie *pricing.CouponInvalidError
	require.ErrorAs(t, err, &cie)
	require.Equal(t, coupon.ReasonUsageLimitReached, cie.Reason)
	require.True(t, f.db.tx.rolledBack)
	require.Empty(t, f.store.events)
}

func TestCheckoutRejectsInvalidCoupon(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Checkout(context.Background(), pricing.Request{
		Items:      []pricing.RequestItem{{ProductID: f.product.ID, Quantity: 1}},
		CouponCode: "NOPE",
	})
	var cie *pricing.CouponInvalidError
	require.ErrorAs(t, err, &cie)
	require.Equal(t, coupon.ReasonNotFound, cie.Reason)
	require.Nil(t, f.db.tx)
	require.Nil(t, f.orders.inserted)
}

func TestCheckoutEmitsLowStockEvent(t *testing.T) {
	f := newFixture(t)
	f.svc.LowStockThreshold = 5
	f.inventory.remaining[f.product.ID] = 3

	_, err := f.svc.Checkout(context.Background(), pricing.Request{
		Items: []pricing.RequestItem{{ProductID: f.product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, f.store.events, 2)
	require.Equal(t, events.TopicOrderCreated, f.store.events[0].Topic)
	require.Equal(t, events.TopicProductLowStock, f.store.events[1].Topic)
	require.Equal(t, f.product.ID, f.store.events[1].AggregateID)
}

func TestCheckoutLogsFailedEmit(t *testing.T) {
	f := newFixture(t)
	f.store.fail = errors.New("events table unavailable")
	var buf bytes.Buffer
	f.svc.Log = zerolog.New(&buf)

	o, err := f.svc.Checkout(context.Background(), pricing.Request{
		Items: []pricing.RequestItem{{ProductID: f.product.ID, Quantity: 1}},
	})
	require.NoError(t, err, "a failed emit must not fail the committed checkout")
	require.True(t, f.db.tx.committed)
	require.NotEqual(t, uuid.Nil, o.ID)

	logged := buf.String()
	require.Contains(t, logged, "emit checkout event")
	require.Contains(t, logged, events.TopicOrderCreated)
	require.Contains(t, logged, "events table unavailable")
}

func TestCheckoutUnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Checkout(context.Background(), pricing.Request{
		Items: []pricing.RequestItem{{ProductID: uuid.New(), Quantity: 1}},
	})
	var pnf *pricing.ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	require.Nil(t, f.orders.inserted)
}
