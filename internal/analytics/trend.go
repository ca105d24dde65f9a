package analytics

import (
	"math"

	"github.com/mbd888/sellerrisk/internal/dataset"
)

type sellerDay struct {
	score meanAcc
	high  int
}

// SellerTrend buckets predictions by calendar date and reports the mean
// score and the number of High-labelled rows per day, oldest first. Callers
// pass predictions already filtered to one seller. Rows with no timestamp
// are dropped, as are days with no usable score.
func (e *Engine) SellerTrend(preds []dataset.Prediction) []SellerTrendPoint {
	out := []SellerTrendPoint{}
	g := newGroups[string, sellerDay]()
	for _, p := range preds {
		d := p.Date()
		if d == "" {
			continue
		}
		day := g.get(d)
		day.score.add(p.RiskScore)
		if p.RiskLabel == dataset.LabelHigh {
			day.high++
		}
	}
	for _, d := range sortedKeys(g) {
		day := g.m[d]
		m := day.score.mean()
		if math.IsNaN(m) {
			continue
		}
		out = append(out, SellerTrendPoint{Date: d, AvgRisk: m, HighCount: day.high})
	}
	return out
}
