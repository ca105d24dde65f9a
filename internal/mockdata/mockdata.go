// Package mockdata generates a synthetic seller/order/prediction data set
// for local development and demos.
package mockdata

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/mbd888/sellerrisk/internal/dataset"
)

const (
	DefaultRows = 5000
	DefaultDays = 90
	DefaultSeed = 42
)

// Marketplaces maps each marketplace to its sellers.
var Marketplaces = []struct {
	ID      string
	Sellers []string
}{
	{"M001", []string{"S001", "S002", "S003", "S004", "S005"}},
	{"M002", []string{"S006", "S007", "S008"}},
	{"M003", []string{"S009", "S010"}},
}

var (
	Categories     = []string{"Electronics", "Clothing", "Home", "Beauty", "Grocery", "Footwear"}
	CustomerTypes  = []string{"New", "Returning"}
	PaymentMethods = []string{dataset.PaymentCOD, "UPI", "Card", "Wallet"}
)

// Options controls the size and shape of the generated data.
type Options struct {
	Rows int
	Days int
	Seed uint64
	Now  time.Time
}

// DefaultOptions returns 5000 orders over the last 90 days.
func DefaultOptions() Options {
	return Options{
		Rows: DefaultRows,
		Days: DefaultDays,
		Seed: DefaultSeed,
		Now:  time.Now().UTC(),
	}
}

// Generate builds the three tables. The same options always produce the
// same tables.
func Generate(opts Options) *dataset.Tables {
	if opts.Rows <= 0 {
		opts.Rows = DefaultRows
	}
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5e11e7))

	t := &dataset.Tables{}
	for _, m := range Marketplaces {
		for _, s := range m.Sellers {
			t.Sellers = append(t.Sellers, dataset.Seller{
				SellerID:      s,
				SellerName:    "Seller_" + s,
				MarketplaceID: m.ID,
			})
		}
	}

	start := opts.Now.Add(-time.Duration(opts.Days) * 24 * time.Hour)
	t.Orders = make([]dataset.Order, 0, opts.Rows)
	t.Predictions = make([]dataset.Prediction, 0, opts.Rows)

	for i := range opts.Rows {
		m := Marketplaces[rng.IntN(len(Marketplaces))]
		seller := m.Sellers[rng.IntN(len(m.Sellers))]

		offset := time.Duration(rng.Float64() * float64(opts.Days) * float64(24*time.Hour))
		day := start.Add(offset).Truncate(24 * time.Hour)

		price := round(uniform(rng, 200, 5000), 2)
		o := dataset.Order{
			OrderID:            fmt.Sprintf("ORD%05d", i+1),
			ProductCategory:    pick(rng, Categories),
			ProductPrice:       price,
			DiscountApplied:    round(price*uniform(rng, 0.05, 0.35), 2),
			DeliveryTimeDays:   float64(1 + rng.IntN(7)),
			CustomerType:       pick(rng, CustomerTypes),
			PaymentMethod:      pick(rng, PaymentMethods),
			CustomerReturnRate: round(uniform(rng, 0.01, 0.25), 2),
			ProductRating:      round(uniform(rng, 1, 5), 1),
			SellerID:           seller,
			MarketplaceID:      m.ID,
			OrderTimestamp:     day,
		}
		if rng.Float64() < 0.2 {
			o.Returned = 1
		}
		t.Orders = append(t.Orders, o)

		score, label := risk(rng)
		t.Predictions = append(t.Predictions, dataset.Prediction{
			OrderID:         o.OrderID,
			SellerID:        o.SellerID,
			MarketplaceID:   o.MarketplaceID,
			ProductCategory: o.ProductCategory,
			CustomerType:    o.CustomerType,
			PaymentMethod:   o.PaymentMethod,
			RiskScore:       score,
			RiskLabel:       label,
			Timestamp:       day,
		})
	}
	return t
}

// Load replaces all three tables in w with t.
func Load(ctx context.Context, w dataset.Writer, t *dataset.Tables) error {
	if err := w.ReplaceSellers(ctx, t.Sellers); err != nil {
		return fmt.Errorf("failed to write sellers: %w", err)
	}
	if err := w.ReplaceOrders(ctx, t.Orders); err != nil {
		return fmt.Errorf("failed to write orders: %w", err)
	}
	if err := w.ReplacePredictions(ctx, t.Predictions); err != nil {
		return fmt.Errorf("failed to write predictions: %w", err)
	}
	return nil
}

// risk draws a score from the 35% High / 30% Medium / 35% Low mix.
func risk(rng *rand.Rand) (float64, dataset.RiskLabel) {
	r := rng.Float64()
	switch {
	case r < 0.35:
		return round(uniform(rng, 0.75, 0.98), 4), dataset.LabelHigh
	case r < 0.65:
		return round(uniform(rng, 0.45, 0.75), 4), dataset.LabelMedium
	default:
		return round(uniform(rng, 0.05, 0.45), 4), dataset.LabelLow
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func pick(rng *rand.Rand, xs []string) string {
	return xs[rng.IntN(len(xs))]
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
