package analytics

import (
	"math"
	"sort"

	"github.com/mbd888/sellerrisk/internal/dataset"
)

// MarketplaceStats filters both tables to marketplaceID (empty means all)
// and builds the dashboard summary.
func (e *Engine) MarketplaceStats(orders []dataset.Order, preds []dataset.Prediction, marketplaceID string) *MarketplaceStats {
	orders = dataset.FilterOrders(orders, marketplaceID, "")
	preds = dataset.FilterPredictions(preds, marketplaceID, "")

	stats := &MarketplaceStats{
		TotalOrders:     len(orders),
		TotalSellers:    distinctSellers(orders),
		Trend:           []TrendPoint{},
		CategoryRisk:    []CategoryScore{},
		TopRiskySellers: []SellerScore{},
		Alerts:          []Alert{},
	}

	if len(preds) > 0 {
		stats.Trend = dailyMeans(preds)
		stats.CategoryRisk = categoryMeansByName(preds)
		stats.TopRiskySellers = sellersByRisk(preds)
	}

	stats.HealthScore = e.HealthScore(orders, preds)
	stats.Alerts = e.Alerts(preds)

	var maxRisk float64
	var high int
	for _, p := range preds {
		if !p.HasScore() {
			continue
		}
		if p.RiskScore >= e.policy.HighRiskScore {
			high++
		}
		maxRisk = math.Max(maxRisk, p.RiskScore)
	}
	stats.HighRiskOrders = high
	if len(preds) > 0 {
		stats.HighRiskRatio = round3(float64(high) / float64(len(preds)))
	}
	stats.MaxRisk = round3(maxRisk)

	return stats
}

func distinctSellers(orders []dataset.Order) int {
	seen := make(map[string]struct{})
	for _, o := range orders {
		if o.SellerID == "" {
			continue
		}
		seen[o.SellerID] = struct{}{}
	}
	return len(seen)
}

// categoryMeansByName returns the mean score per category ordered by
// category name.
func categoryMeansByName(preds []dataset.Prediction) []CategoryScore {
	g := newGroups[string, meanAcc]()
	for _, p := range preds {
		if p.ProductCategory == "" {
			continue
		}
		g.get(p.ProductCategory).add(p.RiskScore)
	}
	out := make([]CategoryScore, 0, len(g.keys))
	for _, c := range sortedKeys(g) {
		m := g.m[c].mean()
		if math.IsNaN(m) {
			continue
		}
		out = append(out, CategoryScore{Category: c, RiskScore: m})
	}
	return out
}

// sellersByRisk ranks sellers by mean score, highest first. Ties keep
// seller id order.
func sellersByRisk(preds []dataset.Prediction) []SellerScore {
	g := newGroups[string, meanAcc]()
	for _, p := range preds {
		if p.SellerID == "" {
			continue
		}
		g.get(p.SellerID).add(p.RiskScore)
	}
	out := make([]SellerScore, 0, len(g.keys))
	for _, s := range sortedKeys(g) {
		m := g.m[s].mean()
		if math.IsNaN(m) {
			continue
		}
		out = append(out, SellerScore{SellerID: s, RiskScore: m})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RiskScore > out[j].RiskScore
	})
	return out
}
