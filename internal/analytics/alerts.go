package analytics

import (
	"fmt"

	"github.com/mbd888/sellerrisk/internal/dataset"
)

type alertCounter struct {
	total int
	high  int
}

// Alerts evaluates the seller and category rules over preds. Seller alerts
// come first, then category alerts, each in key order.
func (e *Engine) Alerts(preds []dataset.Prediction) []Alert {
	alerts := []Alert{}
	if len(preds) == 0 {
		return alerts
	}

	sellers := newGroups[string, alertCounter]()
	categories := newGroups[string, alertCounter]()
	for _, p := range preds {
		if p.SellerID != "" {
			e.count(sellers.get(p.SellerID), p)
		}
		if p.ProductCategory != "" {
			e.count(categories.get(p.ProductCategory), p)
		}
	}

	for _, id := range sortedKeys(sellers) {
		c := sellers.m[id]
		if e.SellerAlertFires(c.high, c.total) {
			alerts = append(alerts, Alert{
				Type:    AlertSeller,
				Message: fmt.Sprintf("Seller %s has %d high-risk orders (%.1f%%)", id, c.high, ratio(c)*100),
			})
		}
	}
	for _, name := range sortedKeys(categories) {
		c := categories.m[name]
		if c.total > 0 && ratio(c) >= e.policy.CategoryAlertRatio {
			alerts = append(alerts, Alert{
				Type:    AlertCategory,
				Message: fmt.Sprintf("%s category has %.1f%% high-risk orders", name, ratio(c)*100),
			})
		}
	}
	return alerts
}

// SellerAlertFires reports whether a seller with high high-risk orders out of
// total scored orders crosses both the count and ratio thresholds.
func (e *Engine) SellerAlertFires(high, total int) bool {
	if total <= 0 {
		return false
	}
	return high >= e.policy.SellerAlertMinCount &&
		float64(high)/float64(total) >= e.policy.SellerAlertRatio
}

// count tallies one prediction. Rows without a score don't count toward
// either side of the ratio.
func (e *Engine) count(c *alertCounter, p dataset.Prediction) {
	if !p.HasScore() {
		return
	}
	c.total++
	if p.RiskScore >= e.policy.HighRiskScore {
		c.high++
	}
}

func ratio(c *alertCounter) float64 {
	if c.total == 0 {
		return 0
	}
	return float64(c.high) / float64(c.total)
}
