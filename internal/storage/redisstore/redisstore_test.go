package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/domain/order"
	"github.com/xenking/combo-store/internal/domain/pos"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testProduct() *catalog.Product {
	return &catalog.Product{
		ID:            "navy-formal-combo",
		Name:          "Navy Formal Combo",
		Price:         decimal.RequireFromString("1499.50"),
		OriginalPrice: decimal.NewNullDecimal(decimal.RequireFromString("1999")),
		Category:      catalog.CategoryFormal,
		ImageURL:      "/images/navy.jpg",
		Stock: []catalog.SizeStock{
			{Size: catalog.SizeM, Quantity: 4},
			{Size: catalog.SizeL, Quantity: 0},
		},
	}
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestCartStore(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewCartStore(client, time.Hour)
	ctx := context.Background()

	c, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	c.AddItem(testProduct(), catalog.SizeM, 2)
	require.NoError(t, store.Save(ctx, "sess-1", c))
	assert.True(t, mr.Exists("store:cart:sess-1"))

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("2999").Equal(got.TotalPrice()))

	// Other sessions stay isolated.
	other, err := store.Load(ctx, "sess-2")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())

	require.NoError(t, store.Delete(ctx, "sess-1"))
	require.NoError(t, store.Delete(ctx, "sess-1"))
	got, err = store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestCartStore_SlidingExpiry(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewCartStore(client, time.Hour)
	ctx := context.Background()

	c := cart.New()
	c.AddItem(testProduct(), catalog.SizeM, 1)
	require.NoError(t, store.Save(ctx, "sess", c))

	mr.FastForward(50 * time.Minute)
	_, err := store.Load(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("store:cart:sess"))

	mr.FastForward(50 * time.Minute)
	got, err := store.Load(ctx, "sess")
	require.NoError(t, err)
	assert.False(t, got.IsEmpty(), "reading the cart must extend its lifetime")

	mr.FastForward(2 * time.Hour)
	got, err = store.Load(ctx, "sess")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestCartStore_CorruptValue(t *testing.T) {
	mr, client := newTestClient(t)
	require.NoError(t, mr.Set("store:cart:bad", "{not json"))

	_, err := NewCartStore(client, time.Hour).Load(context.Background(), "bad")
	require.Error(t, err)
}

func TestPOSStore(t *testing.T) {
	_, client := newTestClient(t)
	store := NewPOSStore(client, 0)
	ctx := context.Background()

	sess, err := store.Load(ctx, "till-1")
	require.NoError(t, err)
	assert.Nil(t, sess)

	sess = pos.NewSession("till-1")
	require.NoError(t, sess.Add(testProduct()))
	require.NoError(t, sess.Checkout())
	require.NoError(t, sess.SetCustomer(pos.Customer{Name: "Ravi"}))
	sess.PaymentMethod = order.PaymentCard
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx, "till-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pos.StateCheckoutReview, got.State)
	assert.Equal(t, catalog.SizeM, got.SelectedSize)
	assert.Equal(t, "Ravi", got.Customer.Name)
	assert.Equal(t, order.PaymentCard, got.PaymentMethod)
	assert.Equal(t, 1, got.Cart.Quantity("navy-formal-combo", catalog.SizeM))
}

func TestCatalogCache(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewCatalogCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, []catalog.Product{*testProduct()}))
	products, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, "Navy Formal Combo", p.Name)
	assert.True(t, decimal.RequireFromString("1499.50").Equal(p.Price))
	assert.True(t, p.Discounted())
	assert.Equal(t, 4, p.AvailableQuantity(catalog.SizeM))

	require.NoError(t, cache.Invalidate(ctx))
	_, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, nil))
	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiter(t *testing.T) {
	mr, client := newTestClient(t)
	l := NewRateLimiter(client, 2, time.Minute)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 30, 0, time.UTC)

	d, err := l.Allow(ctx, "10.0.0.1", now)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC), d.ResetAt)

	d, _ = l.Allow(ctx, "10.0.0.1", now.Add(time.Second))
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = l.Allow(ctx, "10.0.0.1", now.Add(2*time.Second))
	assert.False(t, d.Allowed)

	d, _ = l.Allow(ctx, "10.0.0.2", now)
	assert.True(t, d.Allowed, "keys are counted separately")

	// The next window starts from zero.
	d, _ = l.Allow(ctx, "10.0.0.1", now.Add(time.Minute))
	assert.True(t, d.Allowed)

	key := "store:ratelimit:10.0.0.1:" + "1714557600000"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))
}
