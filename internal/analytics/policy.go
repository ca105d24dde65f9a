package analytics

import "github.com/mbd888/sellerrisk/internal/dataset"

// Policy holds every tunable weight and threshold used by the aggregation,
// alerting, explanation and risk-labelling rules.
type Policy struct {
	// Health score weights. They sum to 100 so a perfect marketplace
	// scores 100.
	WeightAvgRisk       float64
	WeightHighRiskRatio float64
	WeightReturnRate    float64
	WeightSlope         float64

	// NeutralHealth is reported when there are no predictions to score.
	NeutralHealth int

	// HighRiskScore is the score at or above which an order counts as
	// high risk in stats and alerts. A single-order score strictly above it
	// is labelled High when the model predicts a return.
	HighRiskScore float64

	// MediumRiskScore is the score strictly above which a single-order
	// score is labelled Medium.
	MediumRiskScore float64

	// NeutralScore is served when a seller has no usable model.
	NeutralScore float64

	// Proxy scores for classifiers without probability estimates.
	ProxyPositive float64
	ProxyNegative float64

	// Seller alerts need both an absolute count and a ratio.
	SellerAlertMinCount int
	SellerAlertRatio    float64

	// Category alerts only need a ratio.
	CategoryAlertRatio float64

	// Explanation thresholds.
	ExplainReturnRate float64
	ExplainCODShare   float64
	ExplainMinRating  float64
	ExplainMeanRisk   float64

	// TopCategories is how many category series are hinted for default
	// rendering in the category trend.
	TopCategories int
}

// DefaultPolicy returns the production weights and thresholds.
func DefaultPolicy() Policy {
	return Policy{
		WeightAvgRisk:       40,
		WeightHighRiskRatio: 25,
		WeightReturnRate:    20,
		WeightSlope:         15,
		NeutralHealth:       60,
		HighRiskScore:       0.75,
		MediumRiskScore:     0.45,
		NeutralScore:        0.5,
		ProxyPositive:       0.9,
		ProxyNegative:       0.1,
		SellerAlertMinCount: 10,
		SellerAlertRatio:    0.25,
		CategoryAlertRatio:  0.30,
		ExplainReturnRate:   0.3,
		ExplainCODShare:     0.5,
		ExplainMinRating:    3,
		ExplainMeanRisk:     0.7,
		TopCategories:       8,
	}
}

// Label maps a single-order score and discrete prediction to a risk label.
// A confident negative prediction is Low even though its score is high.
func (p Policy) Label(score float64, predicted int) dataset.RiskLabel {
	switch {
	case score > p.HighRiskScore && predicted == 1:
		return dataset.LabelHigh
	case score > p.HighRiskScore:
		return dataset.LabelLow
	case score > p.MediumRiskScore:
		return dataset.LabelMedium
	default:
		return dataset.LabelLow
	}
}

// ProxyScore stands in for a probability when the classifier cannot
// estimate one.
func (p Policy) ProxyScore(predicted int) float64 {
	if predicted == 1 {
		return p.ProxyPositive
	}
	return p.ProxyNegative
}
