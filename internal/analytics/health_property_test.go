//go:build property
// +build property

package analytics

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestHealthScoreClamped verifies the score never leaves [0,100].
func TestHealthScoreClamped(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	e := NewEngine(DefaultPolicy())

	properties.Property("health score stays within [0,100]", prop.ForAll(
		func(avg, high, ret, slope float64) bool {
			s := e.HealthFromTerms(HealthTerms{AvgRisk: avg, HighRiskRatio: high, ReturnRate: ret, Slope: slope})
			return s >= 0 && s <= 100
		},
		gen.Float64Range(-5, 5),
		gen.Float64Range(-5, 5),
		gen.Float64Range(-5, 5),
		gen.Float64Range(-5, 5),
	))

	properties.TestingRun(t)
}

// TestHealthScoreMonotone verifies raising any one term never raises the
// score.
func TestHealthScoreMonotone(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	e := NewEngine(DefaultPolicy())

	bump := map[string]func(HealthTerms, float64) HealthTerms{
		"avg_risk":        func(h HealthTerms, d float64) HealthTerms { h.AvgRisk += d; return h },
		"high_risk_ratio": func(h HealthTerms, d float64) HealthTerms { h.HighRiskRatio += d; return h },
		"return_rate":     func(h HealthTerms, d float64) HealthTerms { h.ReturnRate += d; return h },
		"slope":           func(h HealthTerms, d float64) HealthTerms { h.Slope += d; return h },
	}

	for name, fn := range bump {
		fn := fn
		properties.Property("health score is non-increasing in "+name, prop.ForAll(
			func(avg, high, ret, slope, delta float64) bool {
				base := HealthTerms{AvgRisk: avg, HighRiskRatio: high, ReturnRate: ret, Slope: slope}
				return e.HealthFromTerms(fn(base, delta)) <= e.HealthFromTerms(base)
			},
			gen.Float64Range(0, 1),
			gen.Float64Range(0, 1),
			gen.Float64Range(0, 1),
			gen.Float64Range(-1, 1),
			gen.Float64Range(0, 1),
		))
	}

	properties.TestingRun(t)
}
