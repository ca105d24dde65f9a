// Package dataset holds the seller, order and prediction tables that the
// analytics, training and scoring packages operate on.
//
// Tables are plain ordered slices of typed records. They are re-read from
// storage on every call; nothing here caches or indexes across calls.
package dataset

import (
	"context"
	"errors"
	"math"
	"time"
)

var (
	ErrSellerNotFound = errors.New("seller not found")
)

// RiskLabel is the discretised risk score.
type RiskLabel string

const (
	LabelLow    RiskLabel = "Low"
	LabelMedium RiskLabel = "Medium"
	LabelHigh   RiskLabel = "High"
)

// Payment method that counts toward the COD usage check.
const PaymentCOD = "COD"

// Seller is static reference data.
type Seller struct {
	SellerID      string `json:"seller_id"`
	SellerName    string `json:"seller_name"`
	MarketplaceID string `json:"marketplace_id"`
}

// Order is one historical order row. Numeric fields have already been through
// the coercion policy in coerce.go, so unparseable input shows up as 0.
type Order struct {
	OrderID            string
	ProductCategory    string
	ProductPrice       float64
	DiscountApplied    float64
	DeliveryTimeDays   float64
	CustomerType       string
	PaymentMethod      string
	CustomerReturnRate float64
	ProductRating      float64
	Returned           int
	SellerID           string
	MarketplaceID      string
	OrderTimestamp     time.Time // zero when missing or unparseable
}

// Prediction is one scored order. RiskScore is NaN when the stored value was
// missing; aggregations skip it the same way a null cell would be skipped.
type Prediction struct {
	OrderID         string
	SellerID        string
	MarketplaceID   string
	ProductCategory string
	CustomerType    string
	PaymentMethod   string
	RiskScore       float64
	RiskLabel       RiskLabel
	Timestamp       time.Time // zero when missing or unparseable
}

// HasScore reports whether the prediction carries a usable risk score.
func (p Prediction) HasScore() bool {
	return !math.IsNaN(p.RiskScore)
}

// Date returns the calendar date of the prediction, or "" for a null timestamp.
func (p Prediction) Date() string {
	return DateKey(p.Timestamp)
}

// DateKey formats a timestamp as an ISO calendar date. The zero time maps to "".
func DateKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// Tables bundles the three tables an aggregation call needs.
type Tables struct {
	Sellers     []Seller
	Orders      []Order
	Predictions []Prediction
}

// Store reads the three tables and appends to the prediction log.
type Store interface {
	LoadSellers(ctx context.Context) ([]Seller, error)
	LoadOrders(ctx context.Context) ([]Order, error)
	LoadPredictions(ctx context.Context) ([]Prediction, error)

	// AppendPrediction adds one row to the prediction log. It never
	// deduplicates: scoring the same order twice yields two rows.
	AppendPrediction(ctx context.Context, p Prediction) error

	// SellerMarketplace resolves a seller's marketplace, returning
	// ErrSellerNotFound when the seller is unknown.
	SellerMarketplace(ctx context.Context, sellerID string) (string, error)

	Ping(ctx context.Context) error
}

// Writer replaces whole tables. Used by bulk loaders such as the mock data
// generator.
type Writer interface {
	ReplaceSellers(ctx context.Context, sellers []Seller) error
	ReplaceOrders(ctx context.Context, orders []Order) error
	ReplacePredictions(ctx context.Context, preds []Prediction) error
}

// LoadAll reads orders and predictions, the pair every aggregation consumes.
func LoadAll(ctx context.Context, s Store) (*Tables, error) {
	orders, err := s.LoadOrders(ctx)
	if err != nil {
		return nil, err
	}
	preds, err := s.LoadPredictions(ctx)
	if err != nil {
		return nil, err
	}
	return &Tables{Orders: orders, Predictions: preds}, nil
}

// FilterOrders keeps orders matching the non-empty filters.
func FilterOrders(orders []Order, marketplaceID, sellerID string) []Order {
	if marketplaceID == "" && sellerID == "" {
		return orders
	}
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if marketplaceID != "" && o.MarketplaceID != marketplaceID {
			continue
		}
		if sellerID != "" && o.SellerID != sellerID {
			continue
		}
		out = append(out, o)
	}
	return out
}

// FilterPredictions keeps predictions matching the non-empty filters.
func FilterPredictions(preds []Prediction, marketplaceID, sellerID string) []Prediction {
	if marketplaceID == "" && sellerID == "" {
		return preds
	}
	out := make([]Prediction, 0, len(preds))
	for _, p := range preds {
		if marketplaceID != "" && p.MarketplaceID != marketplaceID {
			continue
		}
		if sellerID != "" && p.SellerID != sellerID {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterSellers keeps sellers in the given marketplace ("" keeps all).
func FilterSellers(sellers []Seller, marketplaceID string) []Seller {
	if marketplaceID == "" {
		return sellers
	}
	out := make([]Seller, 0, len(sellers))
	for _, s := range sellers {
		if s.MarketplaceID == marketplaceID {
			out = append(out, s)
		}
	}
	return out
}
