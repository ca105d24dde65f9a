package mockdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/sellerrisk/internal/dataset"
)

func testOptions() Options {
	return Options{
		Rows: 2000,
		Days: 90,
		Seed: 7,
		Now:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGenerate_Shape(t *testing.T) {
	tables := Generate(testOptions())

	require.Len(t, tables.Sellers, 10)
	require.Len(t, tables.Orders, 2000)
	require.Len(t, tables.Predictions, 2000)

	markets := map[string]bool{}
	for _, s := range tables.Sellers {
		markets[s.MarketplaceID] = true
	}
	assert.Len(t, markets, 3)

	sellerMarket := map[string]string{}
	for _, s := range tables.Sellers {
		sellerMarket[s.SellerID] = s.MarketplaceID
	}

	ids := map[string]bool{}
	earliest := testOptions().Now.Add(-91 * 24 * time.Hour)
	for i, o := range tables.Orders {
		assert.False(t, ids[o.OrderID], "duplicate order id %s", o.OrderID)
		ids[o.OrderID] = true

		assert.Equal(t, sellerMarket[o.SellerID], o.MarketplaceID)
		assert.Contains(t, Categories, o.ProductCategory)
		assert.Contains(t, PaymentMethods, o.PaymentMethod)
		assert.True(t, o.OrderTimestamp.After(earliest))
		assert.False(t, o.OrderTimestamp.After(testOptions().Now))
		assert.Contains(t, []int{0, 1}, o.Returned)

		p := tables.Predictions[i]
		assert.Equal(t, o.OrderID, p.OrderID)
		assert.Equal(t, o.SellerID, p.SellerID)
		assert.Equal(t, o.OrderTimestamp, p.Timestamp)
	}
}

func TestGenerate_RiskMix(t *testing.T) {
	tables := Generate(testOptions())

	counts := map[dataset.RiskLabel]int{}
	for _, p := range tables.Predictions {
		counts[p.RiskLabel]++
		switch p.RiskLabel {
		case dataset.LabelHigh:
			assert.GreaterOrEqual(t, p.RiskScore, 0.75)
		case dataset.LabelMedium:
			assert.GreaterOrEqual(t, p.RiskScore, 0.45)
			assert.LessOrEqual(t, p.RiskScore, 0.75)
		case dataset.LabelLow:
			assert.LessOrEqual(t, p.RiskScore, 0.45)
		default:
			t.Fatalf("unexpected label %q", p.RiskLabel)
		}
	}

	n := float64(len(tables.Predictions))
	assert.InDelta(t, 0.35, float64(counts[dataset.LabelHigh])/n, 0.05)
	assert.InDelta(t, 0.30, float64(counts[dataset.LabelMedium])/n, 0.05)
	assert.InDelta(t, 0.35, float64(counts[dataset.LabelLow])/n, 0.05)
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(testOptions())
	b := Generate(testOptions())
	assert.Equal(t, a, b)

	opts := testOptions()
	opts.Seed = 8
	c := Generate(opts)
	assert.NotEqual(t, a.Orders, c.Orders)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	opts := testOptions()
	opts.Rows = 50
	tables := Generate(opts)

	store := dataset.NewMemoryStore()
	require.NoError(t, Load(ctx, store, tables))

	orders, err := store.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 50)

	sellers, err := store.LoadSellers(ctx)
	require.NoError(t, err)
	assert.Len(t, sellers, 10)

	preds, err := store.LoadPredictions(ctx)
	require.NoError(t, err)
	assert.Len(t, preds, 50)

	mp, err := store.SellerMarketplace(ctx, "S009")
	require.NoError(t, err)
	assert.Equal(t, "M003", mp)
}

func TestLoad_CSVRoundTrip(t *testing.T) {
	ctx := context.Background()
	opts := testOptions()
	opts.Rows = 40
	tables := Generate(opts)

	store := dataset.NewCSVStore(t.TempDir())
	require.NoError(t, Load(ctx, store, tables))

	orders, err := store.LoadOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 40)
	assert.Equal(t, tables.Orders[0].OrderID, orders[0].OrderID)
	assert.Equal(t, tables.Orders[0].ProductPrice, orders[0].ProductPrice)
	assert.True(t, tables.Orders[0].OrderTimestamp.Equal(orders[0].OrderTimestamp))
}
