package analytics

import (
	"math"

	"github.com/mbd888/sellerrisk/internal/dataset"
)

// Explanation reasons, in evaluation order.
const (
	ReasonHighReturnRate = "High return rate"
	ReasonHighCODUsage   = "High COD usage"
	ReasonLowRating      = "Low average product rating"
	ReasonHighPredicted  = "Consistently high predicted risk"
)

// ExplainSellerRisk returns the reasons that apply to sellerID. Order-based
// checks are skipped when the seller has no orders and the prediction check
// is skipped when it has no scored predictions. A seller with nothing
// notable gets an empty list, and so does an empty sellerID.
func (e *Engine) ExplainSellerRisk(orders []dataset.Order, preds []dataset.Prediction, sellerID string) []string {
	reasons := []string{}
	if sellerID == "" {
		return reasons
	}

	orders = dataset.FilterOrders(orders, "", sellerID)
	preds = dataset.FilterPredictions(preds, "", sellerID)

	if n := float64(len(orders)); n > 0 {
		var returned, cod int
		var rating float64
		for _, o := range orders {
			returned += o.Returned
			if o.PaymentMethod == dataset.PaymentCOD {
				cod++
			}
			rating += o.ProductRating
		}
		if float64(returned)/n > e.policy.ExplainReturnRate {
			reasons = append(reasons, ReasonHighReturnRate)
		}
		if float64(cod)/n > e.policy.ExplainCODShare {
			reasons = append(reasons, ReasonHighCODUsage)
		}
		if rating/n < e.policy.ExplainMinRating {
			reasons = append(reasons, ReasonLowRating)
		}
	}

	if m := meanScore(preds); !math.IsNaN(m) && m > e.policy.ExplainMeanRisk {
		reasons = append(reasons, ReasonHighPredicted)
	}

	return reasons
}
