package dataset

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCSVStore_MissingFilesReadEmpty(t *testing.T) {
	s := NewCSVStore(t.TempDir())
	ctx := context.Background()

	sellers, err := s.LoadSellers(ctx)
	require.NoError(t, err)
	assert.Empty(t, sellers)

	orders, err := s.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	preds, err := s.LoadPredictions(ctx)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestCSVStore_LoadOrders_CoercesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, OrdersFile, "Order_ID,Product_Category,Product_Price,Returned,seller_id,marketplace_id,order_timestamp\n"+
		"ORD1,Home,12.5,1,S001,M001,2025-11-01\n"+
		"ORD2,Beauty,abc,x,S002,M001,garbage\n")

	orders, err := NewCSVStore(dir).LoadOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, 12.5, orders[0].ProductPrice)
	assert.Equal(t, 1, orders[0].Returned)
	assert.Equal(t, "2025-11-01", DateKey(orders[0].OrderTimestamp))
	// Columns absent from the file default through the coercion policy.
	assert.Equal(t, 0.0, orders[0].ProductRating)
	assert.Equal(t, "", orders[0].PaymentMethod)

	assert.Equal(t, 0.0, orders[1].ProductPrice)
	assert.Equal(t, 0, orders[1].Returned)
	assert.True(t, orders[1].OrderTimestamp.IsZero())
}

func TestCSVStore_LoadPredictions_MissingColumnsAreNull(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PredictionsFile, "Order_ID,seller_id\nORD1,S001\n")

	preds, err := NewCSVStore(dir).LoadPredictions(context.Background())
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.True(t, math.IsNaN(preds[0].RiskScore))
	assert.Equal(t, RiskLabel(""), preds[0].RiskLabel)
	assert.True(t, preds[0].Timestamp.IsZero())
	assert.Equal(t, "", preds[0].ProductCategory)
}

func TestCSVStore_LoadPredictions_UnreadableFileReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the file fails on read, not on open.
	require.NoError(t, os.Mkdir(filepath.Join(dir, PredictionsFile), 0o755))

	preds, err := NewCSVStore(dir).LoadPredictions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestCSVStore_AppendPrediction_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVStore(dir)
	ctx := context.Background()

	logged := Prediction{
		OrderID:         "ORD00042",
		SellerID:        "S003",
		MarketplaceID:   "M001",
		ProductCategory: "Electronics",
		CustomerType:    "New",
		PaymentMethod:   "COD",
		RiskScore:       0.8123456789,
		RiskLabel:       LabelHigh,
		Timestamp:       time.Date(2025, 11, 5, 10, 30, 0, 0, time.UTC),
	}
	require.NoError(t, s.AppendPrediction(ctx, logged))
	// Re-scoring the same order appends a second row.
	require.NoError(t, s.AppendPrediction(ctx, logged))

	preds, err := s.LoadPredictions(ctx)
	require.NoError(t, err)
	require.Len(t, preds, 2)

	got := preds[0]
	assert.Equal(t, logged.OrderID, got.OrderID)
	assert.Equal(t, logged.SellerID, got.SellerID)
	assert.Equal(t, logged.RiskScore, got.RiskScore)
	assert.Equal(t, logged.RiskLabel, got.RiskLabel)
	assert.True(t, logged.Timestamp.Equal(got.Timestamp))
}

func TestCSVStore_ReplaceAndLoad(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "nested"))
	ctx := context.Background()

	require.NoError(t, s.ReplaceSellers(ctx, []Seller{
		{SellerID: "S001", SellerName: "Seller_S001", MarketplaceID: "M001"},
		{SellerID: "S006", SellerName: "Seller_S006", MarketplaceID: "M002"},
	}))
	require.NoError(t, s.ReplaceOrders(ctx, []Order{{
		OrderID: "ORD1", ProductCategory: "Home", ProductPrice: 100, Returned: 1,
		SellerID: "S001", MarketplaceID: "M001",
		OrderTimestamp: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
	}}))

	m, err := s.SellerMarketplace(ctx, "S006")
	require.NoError(t, err)
	assert.Equal(t, "M002", m)

	_, err = s.SellerMarketplace(ctx, "S999")
	assert.ErrorIs(t, err, ErrSellerNotFound)

	orders, err := s.LoadOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 100.0, orders[0].ProductPrice)
	assert.Equal(t, "2025-10-01", DateKey(orders[0].OrderTimestamp))

	require.NoError(t, s.Ping(ctx))
}

func TestCSVStore_PingMissingDir(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, s.Ping(context.Background()))
}

func TestFilters(t *testing.T) {
	orders := []Order{
		{OrderID: "1", SellerID: "S001", MarketplaceID: "M001"},
		{OrderID: "2", SellerID: "S002", MarketplaceID: "M001"},
		{OrderID: "3", SellerID: "S006", MarketplaceID: "M002"},
	}
	assert.Len(t, FilterOrders(orders, "", ""), 3)
	assert.Len(t, FilterOrders(orders, "M001", ""), 2)
	assert.Len(t, FilterOrders(orders, "M001", "S002"), 1)
	assert.Empty(t, FilterOrders(orders, "M009", ""))

	preds := []Prediction{
		{OrderID: "1", SellerID: "S001", MarketplaceID: "M001"},
		{OrderID: "3", SellerID: "S006", MarketplaceID: "M002"},
	}
	assert.Len(t, FilterPredictions(preds, "M002", ""), 1)
	assert.Len(t, FilterPredictions(preds, "", "S001"), 1)

	sellers := []Seller{{SellerID: "S001", MarketplaceID: "M001"}, {SellerID: "S006", MarketplaceID: "M002"}}
	assert.Len(t, FilterSellers(sellers, "M002"), 1)
	assert.Len(t, FilterSellers(sellers, ""), 2)
}
