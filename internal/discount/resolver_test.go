package discount

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clovershop/backoffice/internal/shop"
)

var (
	testNow      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testProduct  = uuidMust("11111111-1111-1111-1111-111111111111")
	testVariant  = uuidMust("22222222-2222-2222-2222-222222222222")
	testCategory = uuidMust("33333333-3333-3333-3333-333333333333")
)

func activeDiscount(pct int64, t Targeting) Discount {
	return Discount{
		ID:               uuid.New(),
		Percentage:       decimal.NewFromInt(pct),
		State:            StateActive,
		StartsAt:         testNow.Add(-time.Hour),
		EndsAt:           testNow.Add(time.Hour),
		AvailableOnline:  true,
		AvailableInStore: true,
		Targeting:        t,
		CreatedAt:        testNow.Add(-24 * time.Hour),
	}
}

func TestResolvePicksHighestPercentage(t *testing.T) {
	discounts := []Discount{
		activeDiscount(10, Targeting{Kind: TargetAll}),
		activeDiscount(25, Targeting{Kind: TargetProducts, ProductIDs: []uuid.UUID{testProduct}}),
		activeDiscount(15, Targeting{Kind: TargetCategory, CategoryID: testCategory}),
	}
	got := Resolve(testProduct, nil, []uuid.UUID{testCategory}, shop.SourceOnline, testNow, discounts)
	if got == nil {
		t.Fatal("expected a discount")
	}
	if !got.Percentage.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected 25%%, got %s", got.Percentage)
	}
}

func TestResolveTieBreaksOnNewest(t *testing.T) {
	older := activeDiscount(20, Targeting{Kind: TargetAll})
	newer := activeDiscount(20, Targeting{Kind: TargetAll})
	newer.CreatedAt = older.CreatedAt.Add(time.Minute)

	got := Resolve(testProduct, nil, nil, shop.SourceOnline, testNow, []Discount{older, newer})
	if got == nil || got.ID != newer.ID {
		t.Fatal("tie must resolve to the most recently created discount")
	}
}

func TestResolveSkipsInactiveStates(t *testing.T) {
	disabled := activeDiscount(50, Targeting{Kind: TargetAll})
	disabled.State = StateDisabled
	deleted := activeDiscount(60, Targeting{Kind: TargetAll})
	deleted.State = StateDeleted
	expired := activeDiscount(70, Targeting{Kind: TargetAll})
	expired.EndsAt = testNow.Add(-time.Minute)
	pending := activeDiscount(80, Targeting{Kind: TargetAll})
	pending.StartsAt = testNow.Add(time.Minute)

	got := Resolve(testProduct, nil, nil, shop.SourceOnline, testNow, []Discount{disabled, deleted, expired, pending})
	if got != nil {
		t.Fatalf("expected no discount, got %s", got.Percentage)
	}
}

func TestResolveChannelAvailability(t *testing.T) {
	online := activeDiscount(10, Targeting{Kind: TargetAll})
	online.AvailableInStore = false

	if got := Resolve(testProduct, nil, nil, shop.SourceInStore, testNow, []Discount{online}); got != nil {
		t.Fatal("online-only discount must not apply in store")
	}
	if got := Resolve(testProduct, nil, nil, shop.SourceOnline, testNow, []Discount{online}); got == nil {
		t.Fatal("discount should apply online")
	}
}

func TestTargetingVariantMatch(t *testing.T) {
	byVariant := activeDiscount(30, Targeting{Kind: TargetProducts, VariantIDs: []uuid.UUID{testVariant}})

	if got := Resolve(testProduct, &testVariant, nil, shop.SourceOnline, testNow, []Discount{byVariant}); got == nil {
		t.Fatal("variant-targeted discount should match the variant")
	}
	other := uuidMust("44444444-4444-4444-4444-444444444444")
	if got := Resolve(testProduct, &other, nil, shop.SourceOnline, testNow, []Discount{byVariant}); got != nil {
		t.Fatal("variant-targeted discount must not match other variants")
	}
	if got := Resolve(testProduct, nil, nil, shop.SourceOnline, testNow, []Discount{byVariant}); got != nil {
		t.Fatal("variant-targeted discount must not match the bare product")
	}
}

func TestTargetingLegacySingle(t *testing.T) {
	single := activeDiscount(30, Targeting{Kind: TargetSingle, ProductID: testProduct, VariantID: &testVariant})

	if got := Resolve(testProduct, &testVariant, nil, shop.SourceOnline, testNow, []Discount{single}); got == nil {
		t.Fatal("single targeting should match the exact variant")
	}
	if got := Resolve(testProduct, nil, nil, shop.SourceOnline, testNow, []Discount{single}); got != nil {
		t.Fatal("single targeting with a variant must not match the bare product")
	}

	productOnly := activeDiscount(30, Targeting{Kind: TargetSingle, ProductID: testProduct})
	if got := Resolve(testProduct, nil, nil, shop.SourceOnline, testNow, []Discount{productOnly}); got == nil {
		t.Fatal("single product targeting should match")
	}
}

func TestTargetingMalformedNeverMatches(t *testing.T) {
	malformed := []Discount{
		activeDiscount(90, Targeting{Kind: TargetKind("bogus")}),
		activeDiscount(90, Targeting{Kind: TargetCategory}),
		activeDiscount(90, Targeting{Kind: TargetProducts}),
		activeDiscount(90, Targeting{Kind: TargetSingle}),
	}
	if got := Resolve(testProduct, &testVariant, []uuid.UUID{testCategory}, shop.SourceOnline, testNow, malformed); got != nil {
		t.Fatal("malformed targeting must be skipped, not matched")
	}
}

func uuidMust(value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		panic(err)
	}
	return id
}
