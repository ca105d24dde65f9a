package analytics

import (
	"math"

	"github.com/mbd888/sellerrisk/internal/dataset"
)

// HealthTerms are the four inputs of the health score, each expected in
// [0,1] (slope in [-1,1]; values outside are clamped).
type HealthTerms struct {
	AvgRisk       float64 `json:"avg_risk"`
	HighRiskRatio float64 `json:"high_risk_ratio"`
	ReturnRate    float64 `json:"return_rate"`
	Slope         float64 `json:"slope"`
}

// HealthScore computes the marketplace health score from already filtered
// tables. With no predictions it returns the policy's neutral score.
func (e *Engine) HealthScore(orders []dataset.Order, preds []dataset.Prediction) int {
	if len(preds) == 0 {
		return e.policy.NeutralHealth
	}
	return e.HealthFromTerms(e.healthTerms(orders, preds))
}

func (e *Engine) healthTerms(orders []dataset.Order, preds []dataset.Prediction) HealthTerms {
	var high int
	for _, p := range preds {
		if p.RiskLabel == dataset.LabelHigh {
			high++
		}
	}

	var returnRate float64
	if len(orders) > 0 {
		var returned int
		for _, o := range orders {
			returned += o.Returned
		}
		returnRate = float64(returned) / float64(len(orders))
	}

	var slope float64
	if days := dailyMeans(preds); len(days) >= 2 {
		slope = days[len(days)-1].RiskScore - days[0].RiskScore
	}

	return HealthTerms{
		AvgRisk:       nanToZero(meanScore(preds)),
		HighRiskRatio: float64(high) / float64(len(preds)),
		ReturnRate:    returnRate,
		Slope:         slope,
	}
}

// HealthFromTerms applies the weighted formula. Each term is clamped to
// [0,1] and the result is rounded half to even and clamped to [0,100].
func (e *Engine) HealthFromTerms(t HealthTerms) int {
	score := (1-unit(t.AvgRisk))*e.policy.WeightAvgRisk +
		(1-unit(t.HighRiskRatio))*e.policy.WeightHighRiskRatio +
		(1-unit(t.ReturnRate))*e.policy.WeightReturnRate +
		(1-unit(t.Slope))*e.policy.WeightSlope

	score = math.RoundToEven(score)
	return int(math.Max(0, math.Min(100, score)))
}

// unit clamps f into [0,1]; NaN counts as 0.
func unit(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}
