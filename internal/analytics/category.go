package analytics

import (
	"math"
	"sort"

	"github.com/mbd888/sellerrisk/internal/dataset"
)

// CategoryRisk ranks categories by mean risk score, highest first. Ties keep
// the order in which categories first appear in the prediction table.
// Orders are accepted for call-site symmetry with the other aggregations;
// categories come from the predictions alone.
func (e *Engine) CategoryRisk(_ []dataset.Order, preds []dataset.Prediction, marketplaceID string) []CategoryRisk {
	preds = dataset.FilterPredictions(preds, marketplaceID, "")
	out := []CategoryRisk{}
	if len(preds) == 0 {
		return out
	}

	g := newGroups[string, meanAcc]()
	for _, p := range preds {
		if p.ProductCategory == "" {
			continue
		}
		g.get(p.ProductCategory).add(p.RiskScore)
	}
	for _, c := range g.keys {
		m := g.m[c].mean()
		if math.IsNaN(m) {
			continue
		}
		out = append(out, CategoryRisk{Category: c, AvgRisk: m})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgRisk > out[j].AvgRisk
	})
	return out
}

type joinKey struct {
	orderID, sellerID, marketplaceID string
}

type dayKey struct {
	category, date string
}

// CategoryTrend builds a daily mean-risk series per category. A prediction
// without a category borrows it from the order with the same order, seller
// and marketplace id; predictions still without one are dropped.
//
// It returns nil when there are no predictions, or when none survive the
// category join. topN <= 0 uses the policy default.
func (e *Engine) CategoryTrend(orders []dataset.Order, preds []dataset.Prediction, marketplaceID string, topN int) *CategoryTrend {
	if topN <= 0 {
		topN = e.policy.TopCategories
	}
	orders = dataset.FilterOrders(orders, marketplaceID, "")
	preds = dataset.FilterPredictions(preds, marketplaceID, "")
	if len(preds) == 0 {
		return nil
	}

	lookup := make(map[joinKey]string, len(orders))
	for _, o := range orders {
		k := joinKey{o.OrderID, o.SellerID, o.MarketplaceID}
		if _, ok := lookup[k]; !ok {
			lookup[k] = o.ProductCategory
		}
	}

	days := newGroups[dayKey, meanAcc]()
	kept := 0
	for _, p := range preds {
		category := p.ProductCategory
		if category == "" {
			category = lookup[joinKey{p.OrderID, p.SellerID, p.MarketplaceID}]
		}
		if category == "" {
			continue
		}
		kept++
		d := p.Date()
		if d == "" {
			continue
		}
		days.get(dayKey{category, d}).add(p.RiskScore)
	}
	if kept == 0 {
		return nil
	}

	keys := append([]dayKey(nil), days.keys...)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].category != keys[j].category {
			return keys[i].category < keys[j].category
		}
		return keys[i].date < keys[j].date
	})

	trend := &CategoryTrend{Series: []CategorySeries{}, TopCategories: []string{}}
	overall := newGroups[string, meanAcc]()
	for _, k := range keys {
		m := days.m[k].mean()
		if math.IsNaN(m) {
			continue
		}
		n := len(trend.Series)
		if n == 0 || trend.Series[n-1].Category != k.category {
			trend.Series = append(trend.Series, CategorySeries{Category: k.category, Points: []SeriesPoint{}})
			n++
		}
		trend.Series[n-1].Points = append(trend.Series[n-1].Points, SeriesPoint{Date: k.date, AvgRisk: m})
		overall.get(k.category).add(m)
	}

	type ranked struct {
		category string
		mean     float64
	}
	ranking := make([]ranked, 0, len(overall.keys))
	for _, c := range overall.keys {
		ranking = append(ranking, ranked{c, overall.m[c].mean()})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].mean > ranking[j].mean
	})
	for i := 0; i < len(ranking) && i < topN; i++ {
		trend.TopCategories = append(trend.TopCategories, ranking[i].category)
	}
	return trend
}
