package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clovershop/backoffice/internal/coupon"
	"github.com/clovershop/backoffice/internal/discount"
	"github.com/clovershop/backoffice/internal/shop"
)

var priceNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testItem(price string, qty int32) Item {
	return Item{
		ProductID: uuid.New(),
		Quantity:  qty,
		BasePrice: dec(price),
		Snapshot:  Snapshot{Name: "Widget", SKU: "WID-1", TaxRate: dec("19")},
	}
}

func allDiscount(pct string) discount.Discount {
	return discount.Discount{
		ID:               uuid.New(),
		Name:             pct + " off",
		Percentage:       dec(pct),
		State:            discount.StateActive,
		StartsAt:         priceNow.Add(-time.Hour),
		EndsAt:           priceNow.Add(time.Hour),
		AvailableOnline:  true,
		AvailableInStore: true,
		Targeting:        discount.Targeting{Kind: discount.TargetAll},
		CreatedAt:        priceNow.Add(-24 * time.Hour),
	}
}

func allCoupon(code, pct string) *coupon.Coupon {
	return &coupon.Coupon{
		ID:              uuid.New(),
		Code:            code,
		Percentage:      dec(pct),
		State:           discount.StateActive,
		StartsAt:        priceNow.Add(-time.Hour),
		EndsAt:          priceNow.Add(time.Hour),
		AvailableOnline: true,
		Targeting:       discount.Targeting{Kind: discount.TargetAll},
	}
}

func equalDec(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func TestPriceNoDiscount(t *testing.T) {
	set := Settings{TaxRate: dec("10"), ShippingFlat: dec("10")}
	q, err := Price([]Item{testItem("100", 2)}, nil, nil, shop.SourceOnline, set, priceNow)
	if err != nil {
		t.Fatal(err)
	}
	equalDec(t, "subtotal", q.Subtotal, "200")
	equalDec(t, "tax", q.Tax, "20")
	equalDec(t, "shipping", q.Shipping, "10")
	equalDec(t, "couponDiscount", q.CouponDiscount, "0")
	equalDec(t, "total", q.Total, "230")
	equalDec(t, "lineTotal", q.Lines[0].LineTotal, "200")
}

func TestPriceProductDiscount(t *testing.T) {
	set := Settings{TaxRate: dec("0"), ShippingFlat: dec("0")}
	q, err := Price([]Item{testItem("100", 1)}, []discount.Discount{allDiscount("20")}, nil, shop.SourceOnline, set, priceNow)
	if err != nil {
		t.Fatal(err)
	}
	line := q.Lines[0]
	equalDec(t, "unitPrice", line.UnitPrice, "80")
	equalDec(t, "originalUnitPrice", line.OriginalUnitPrice, "100")
	equalDec(t, "lineTotal", line.LineTotal, "80")
	if line.DiscountPercentage == nil || !line.DiscountPercentage.Equal(dec("20")) {
		t.Fatalf("discountPercentage = %v, want 20", line.DiscountPercentage)
	}
	equalDec(t, "subtotal", q.Subtotal, "80")
	equalDec(t, "total", q.Total, "80")
}

func TestPriceCouponBeatsDiscount(t *testing.T) {
	set := Settings{TaxRate: dec("0"), ShippingFlat: dec("0")}
	q, err := Price(
		[]Item{testItem("100", 1)},
		[]discount.Discount{allDiscount("20")},
		allCoupon("SPRING30", "30"),
		shop.SourceOnline, set, priceNow,
	)
	if err != nil {
		t.Fatal(err)
	}
	line := q.Lines[0]
	equalDec(t, "unitPrice", line.UnitPrice, "70")
	equalDec(t, "lineTotal", line.LineTotal, "70")
	if line.DiscountCode != "SPRING30" {
		t.Fatalf("discountCode = %q, want SPRING30", line.DiscountCode)
	}
	// Coupon discount is the delta from the pre-coupon subtotal, which
	// already reflects the 20% product discount.
	equalDec(t, "subtotal", q.Subtotal, "80")
	equalDec(t, "couponDiscount", q.CouponDiscount, "10")
	equalDec(t, "total", q.Total, "70")
}

func TestPriceCouponLosesToBiggerDiscount(t *testing.T) {
	set := Settings{TaxRate: dec("0"), ShippingFlat: dec("0")}
	q, err := Price(
		[]Item{testItem("100", 1)},
		[]discount.Discount{allDiscount("40")},
		allCoupon("SPRING30", "30"),
		shop.SourceOnline, set, priceNow,
	)
	if err != nil {
		t.Fatal(err)
	}
	line := q.Lines[0]
	equalDec(t, "unitPrice", line.UnitPrice, "60")
	if line.DiscountCode != "" {
		t.Fatalf("discountCode = %q, want empty", line.DiscountCode)
	}
	equalDec(t, "couponDiscount", q.CouponDiscount, "0")
	if q.CouponCode != "SPRING30" {
		t.Fatalf("couponCode = %q, want SPRING30", q.CouponCode)
	}
}

func TestPriceCouponTargeting(t *testing.T) {
	targeted := testItem("100", 1)
	other := testItem("50", 1)
	cpn := allCoupon("ONEOFF", "10")
	cpn.Targeting = discount.Targeting{Kind: discount.TargetProducts, ProductIDs: []uuid.UUID{targeted.ProductID}}

	set := Settings{TaxRate: dec("0"), ShippingFlat: dec("0")}
	q, err := Price([]Item{targeted, other}, nil, cpn, shop.SourceOnline, set, priceNow)
	if err != nil {
		t.Fatal(err)
	}
	equalDec(t, "targeted unit", q.Lines[0].UnitPrice, "90")
	equalDec(t, "other unit", q.Lines[1].UnitPrice, "50")
	equalDec(t, "couponDiscount", q.CouponDiscount, "10")
}

func TestPriceRounding(t *testing.T) {
	// 33.335 * (1 - 15%) = 28.33475, rounds half away from zero to 28.33.
	set := Settings{TaxRate: dec("0"), ShippingFlat: dec("0")}
	q, err := Price([]Item{testItem("33.335", 1)}, []discount.Discount{allDiscount("15")}, nil, shop.SourceOnline, set, priceNow)
	if err != nil {
		t.Fatal(err)
	}
	equalDec(t, "unitPrice", q.Lines[0].UnitPrice, "28.33")
}

func TestPriceIdempotent(t *testing.T) {
	items := []Item{testItem("100", 2), testItem("19.99", 3)}
	ds := []discount.Discount{allDiscount("20")}
	cpn := allCoupon("SPRING30", "30")
	set := Settings{TaxRate: dec("10"), ShippingFlat: dec("5")}

	first, err := Price(items, ds, cpn, shop.SourceOnline, set, priceNow)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Price(items, ds, cpn, shop.SourceOnline, set, priceNow)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Total.Equal(second.Total) || !first.Subtotal.Equal(second.Subtotal) {
		t.Fatalf("repeated pricing diverged: %s/%s vs %s/%s", first.Subtotal, first.Total, second.Subtotal, second.Total)
	}
}

func TestPriceTotalInvariant(t *testing.T) {
	items := []Item{testItem("100", 1), testItem("250", 2)}
	ds := []discount.Discount{allDiscount("20")}
	cpn := allCoupon("SPRING30", "30")
	set := Settings{TaxRate: dec("10"), ShippingFlat: dec("7.50")}

	q, err := Price(items, ds, cpn, shop.SourceOnline, set, priceNow)
	if err != nil {
		t.Fatal(err)
	}
	want := q.Subtotal.Add(q.Tax).Add(q.Shipping).Sub(q.CouponDiscount)
	if !q.Total.Equal(want) {
		t.Fatalf("total = %s, want subtotal+tax+shipping-coupon = %s", q.Total, want)
	}
}

func TestPriceEmptyCart(t *testing.T) {
	_, err := Price(nil, nil, nil, shop.SourceOnline, Settings{}, priceNow)
	var ice *InvalidCartError
	if !errors.As(err, &ice) {
		t.Fatalf("err = %v, want InvalidCartError", err)
	}
}

func TestPriceNonPositiveQuantity(t *testing.T) {
	_, err := Price([]Item{testItem("100", 0)}, nil, nil, shop.SourceOnline, Settings{}, priceNow)
	var ice *InvalidCartError
	if !errors.As(err, &ice) {
		t.Fatalf("err = %v, want InvalidCartError", err)
	}
}
