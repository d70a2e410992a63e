package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/clovershop/backoffice/internal/shop"
)

type stubStore struct {
	Store
	product Product
	gets    int
}

func (s *stubStore) GetProduct(_ context.Context, id uuid.UUID) (Product, error) {
	s.gets++
	if id != s.product.ID {
		return Product{}, ErrProductNotFound
	}
	return s.product, nil
}

func (s *stubStore) UpdateProduct(_ context.Context, p Product) (Product, error) {
	s.product = p
	return p, nil
}

func newCacheForTest(t *testing.T) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestProductCachesReads(t *testing.T) {
	shopID := uuid.New()
	ctx := shop.WithShop(context.Background(), shopID.String())

	store := &stubStore{product: Product{
		ID:    uuid.New(),
		Name:  "Widget",
		SKU:   "WID-1",
		Price: decimal.NewFromInt(100),
		State: ProductActive,
	}}
	svc := &Service{Store: store, Cache: newCacheForTest(t)}

	first, err := svc.Product(ctx, store.product.ID)
	require.NoError(t, err)
	second, err := svc.Product(ctx, store.product.ID)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, store.gets, "second read should come from cache")
}

func TestUpdateInvalidatesCache(t *testing.T) {
	shopID := uuid.New()
	ctx := shop.WithShop(context.Background(), shopID.String())

	store := &stubStore{product: Product{
		ID:    uuid.New(),
		Name:  "Widget",
		SKU:   "WID-1",
		Price: decimal.NewFromInt(100),
		State: ProductActive,
	}}
	svc := &Service{Store: store, Cache: newCacheForTest(t)}

	_, err := svc.Product(ctx, store.product.ID)
	require.NoError(t, err)

	updated := store.product
	updated.Name = "Widget v2"
	_, err = svc.Update(ctx, updated)
	require.NoError(t, err)

	got, err := svc.Product(ctx, store.product.ID)
	require.NoError(t, err)
	require.Equal(t, "Widget v2", got.Name)
	require.Equal(t, 2, store.gets)
}

func TestProductWorksWithoutCache(t *testing.T) {
	shopID := uuid.New()
	ctx := shop.WithShop(context.Background(), shopID.String())

	store := &stubStore{product: Product{ID: uuid.New(), State: ProductActive}}
	svc := &Service{Store: store}

	_, err := svc.Product(ctx, store.product.ID)
	require.NoError(t, err)
}

func TestEffectivePrice(t *testing.T) {
	p := Product{Price: decimal.NewFromInt(100)}
	require.True(t, EffectivePrice(p, nil).Equal(decimal.NewFromInt(100)))

	override := decimal.NewFromInt(120)
	v := Variant{Price: &override}
	require.True(t, EffectivePrice(p, &v).Equal(override))

	noOverride := Variant{}
	require.True(t, EffectivePrice(p, &noOverride).Equal(decimal.NewFromInt(100)))
}
