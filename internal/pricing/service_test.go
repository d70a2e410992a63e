package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clovershop/backoffice/internal/catalog"
	"github.com/clovershop/backoffice/internal/coupon"
	"github.com/clovershop/backoffice/internal/discount"
	"github.com/clovershop/backoffice/internal/shop"
)

type fakeCatalog struct {
	products map[uuid.UUID]catalog.Product
	variants map[uuid.UUID]catalog.Variant
}

func (f *fakeCatalog) Product(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) Variant(_ context.Context, productID, variantID uuid.UUID) (catalog.Variant, error) {
	v, ok := f.variants[variantID]
	if !ok || v.ProductID != productID {
		return catalog.Variant{}, catalog.ErrVariantNotFound
	}
	return v, nil
}

type fakeDiscounts struct{ active []discount.Discount }

func (f *fakeDiscounts) ActiveForShop(context.Context, time.Time) ([]discount.Discount, error) {
	return f.active, nil
}

type fakeCoupons struct{ byCode map[string]*coupon.Coupon }

func (f *fakeCoupons) ByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := f.byCode[coupon.Canonical(code)]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

type fakeShops struct{ sh shop.Shop }

func (f *fakeShops) Current(context.Context) (shop.Shop, error) { return f.sh, nil }

func testService(products ...catalog.Product) (*Service, *fakeCatalog, *fakeCoupons) {
	cat := &fakeCatalog{
		products: map[uuid.UUID]catalog.Product{},
		variants: map[uuid.UUID]catalog.Variant{},
	}
	for _, p := range products {
		cat.products[p.ID] = p
	}
	cps := &fakeCoupons{byCode: map[string]*coupon.Coupon{}}
	svc := &Service{
		Catalog:   cat,
		Discounts: &fakeDiscounts{},
		Coupons:   cps,
		Shops: &fakeShops{sh: shop.Shop{
			ID:             uuid.New(),
			Currency:       "EUR",
			DefaultTaxRate: dec("19"),
			OrderTaxRate:   dec("10"),
			ShippingFlat:   dec("10"),
		}},
		Now: func() time.Time { return priceNow },
	}
	return svc, cat, cps
}

func activeProduct(price string) catalog.Product {
	return catalog.Product{
		ID:    uuid.New(),
		Name:  "Widget",
		SKU:   "WID-1",
		Price: dec(price),
		State: catalog.ProductActive,
	}
}

func TestQuoteHappyPath(t *testing.T) {
	p := activeProduct("100")
	svc, _, _ := testService(p)

	q, err := svc.Quote(context.Background(), Request{
		Items: []RequestItem{{ProductID: p.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	equalDec(t, "subtotal", q.Subtotal, "200")
	equalDec(t, "tax", q.Tax, "20")
	equalDec(t, "total", q.Total, "230")
	if q.Lines[0].Snapshot.Name != "Widget" || q.Lines[0].Snapshot.SKU != "WID-1" {
		t.Fatalf("snapshot = %+v", q.Lines[0].Snapshot)
	}
	equalDec(t, "snapshot tax rate", q.Lines[0].Snapshot.TaxRate, "19")
}

func TestQuoteProductTaxRateOverride(t *testing.T) {
	p := activeProduct("100")
	reduced := dec("7")
	p.TaxRate = &reduced
	svc, _, _ := testService(p)

	q, err := svc.Quote(context.Background(), Request{
		Items: []RequestItem{{ProductID: p.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	equalDec(t, "snapshot tax rate", q.Lines[0].Snapshot.TaxRate, "7")
}

func TestQuoteVariantOverrides(t *testing.T) {
	p := activeProduct("100")
	svc, cat, _ := testService(p)
	vPrice := dec("120")
	v := catalog.Variant{
		ID:        uuid.New(),
		ProductID: p.ID,
		Name:      "Large",
		SKU:       "WID-1-L",
		Price:     &vPrice,
		Options:   map[string]string{"size": "L"},
	}
	cat.variants[v.ID] = v

	q, err := svc.Quote(context.Background(), Request{
		Items: []RequestItem{{ProductID: p.ID, VariantID: &v.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	line := q.Lines[0]
	equalDec(t, "unitPrice", line.UnitPrice, "120")
	if line.Snapshot.SKU != "WID-1-L" {
		t.Fatalf("snapshot SKU = %q, want WID-1-L", line.Snapshot.SKU)
	}
	if line.Snapshot.Name != "Widget / Large" {
		t.Fatalf("snapshot name = %q", line.Snapshot.Name)
	}
	if line.Snapshot.Options["size"] != "L" {
		t.Fatalf("snapshot options = %v", line.Snapshot.Options)
	}
}

func TestQuoteUnknownProduct(t *testing.T) {
	svc, _, _ := testService()
	_, err := svc.Quote(context.Background(), Request{
		Items: []RequestItem{{ProductID: uuid.New(), Quantity: 1}},
	})
	if _, ok := err.(*ProductNotFoundError); !ok {
		t.Fatalf("err = %v, want ProductNotFoundError", err)
	}
}

func TestQuoteArchivedProduct(t *testing.T) {
	p := activeProduct("100")
	p.State = catalog.ProductArchived
	svc, _, _ := testService(p)

	_, err := svc.Quote(context.Background(), Request{
		Items: []RequestItem{{ProductID: p.ID, Quantity: 1}},
	})
	if _, ok := err.(*ProductNotFoundError); !ok {
		t.Fatalf("err = %v, want ProductNotFoundError", err)
	}
}

func TestQuoteUnknownVariant(t *testing.T) {
	p := activeProduct("100")
	svc, _, _ := testService(p)
	vid := uuid.New()

	_, err := svc.Quote(context.Background(), Request{
		Items: []RequestItem{{ProductID: p.ID, VariantID: &vid, Quantity: 1}},
	})
	if _, ok := err.(*VariantNotFoundError); !ok {
		t.Fatalf("err = %v, want VariantNotFoundError", err)
	}
}

func TestQuoteInvalidCoupon(t *testing.T) {
	p := activeProduct("100")
	svc, _, cps := testService(p)
	limit := int32(1)
	cps.byCode["SPENT"] = &coupon.Coupon{
		Code:            "SPENT",
		Percentage:      dec("10"),
		State:           discount.StateActive,
		StartsAt:        priceNow.Add(-time.Hour),
		EndsAt:          priceNow.Add(time.Hour),
		AvailableOnline: true,
		UsageLimit:      &limit,
		UsedCount:       1,
		Targeting:       discount.Targeting{Kind: discount.TargetAll},
	}

	_, err := svc.Quote(context.Background(), Request{
		Items:      []RequestItem{{ProductID: p.ID, Quantity: 1}},
		CouponCode: "spent",
	})
	cie, ok := err.(*CouponInvalidError)
	if !ok {
		t.Fatalf("err = %v, want CouponInvalidError", err)
	}
	if cie.Reason != coupon.ReasonUsageLimitReached {
		t.Fatalf("reason = %s, want USAGE_LIMIT_REACHED", cie.Reason)
	}
}

func TestQuoteUnknownCouponCode(t *testing.T) {
	p := activeProduct("100")
	svc, _, _ := testService(p)

	_, err := svc.Quote(context.Background(), Request{
		Items:      []RequestItem{{ProductID: p.ID, Quantity: 1}},
		CouponCode: "NOPE",
	})
	cie, ok := err.(*CouponInvalidError)
	if !ok {
		t.Fatalf("err = %v, want CouponInvalidError", err)
	}
	if cie.Reason != coupon.ReasonNotFound {
		t.Fatalf("reason = %s, want NOT_FOUND", cie.Reason)
	}
}

func TestQuoteUnknownChannel(t *testing.T) {
	p := activeProduct("100")
	svc, _, _ := testService(p)

	_, err := svc.Quote(context.Background(), Request{
		Items:  []RequestItem{{ProductID: p.ID, Quantity: 1}},
		Source: shop.Source("CARRIER_PIGEON"),
	})
	if _, ok := err.(*InvalidCartError); !ok {
		t.Fatalf("err = %v, want InvalidCartError", err)
	}
}
