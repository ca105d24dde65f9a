// Package analytics turns order and prediction tables into marketplace
// statistics, trend series, a composite health score, alerts and seller
// risk explanations.
//
// Every function here is pure: it reads the slices it is given and never
// touches storage. Empty or partially null input degrades to zeroed or empty
// results rather than an error.
package analytics

import (
	"math"
	"sort"

	"github.com/mbd888/sellerrisk/internal/dataset"
)

// TrendPoint is the mean risk score on one calendar date.
type TrendPoint struct {
	Date      string  `json:"date"`
	RiskScore float64 `json:"risk_score"`
}

// CategoryScore is the mean risk score of one product category.
type CategoryScore struct {
	Category  string  `json:"Product_Category"`
	RiskScore float64 `json:"risk_score"`
}

// SellerScore is the mean risk score of one seller.
type SellerScore struct {
	SellerID  string  `json:"seller_id"`
	RiskScore float64 `json:"risk_score"`
}

// AlertType distinguishes the two alert rule families.
type AlertType string

const (
	AlertSeller   AlertType = "seller"
	AlertCategory AlertType = "category"
)

// Alert is one triggered alert rule.
type Alert struct {
	Type    AlertType `json:"type"`
	Message string    `json:"message"`
}

// MarketplaceStats is the dashboard summary for one marketplace (or all).
type MarketplaceStats struct {
	TotalOrders     int             `json:"total_orders"`
	TotalSellers    int             `json:"total_sellers"`
	Trend           []TrendPoint    `json:"trend"`
	CategoryRisk    []CategoryScore `json:"category_risk"`
	TopRiskySellers []SellerScore   `json:"top_risky_sellers"`
	HealthScore     int             `json:"health_score"`
	Alerts          []Alert         `json:"alerts"`
	HighRiskOrders  int             `json:"high_risk_orders"`
	HighRiskRatio   float64         `json:"high_risk_ratio"`
	MaxRisk         float64         `json:"max_risk"`
}

// CategoryRisk is one row of the category ranking.
type CategoryRisk struct {
	Category string  `json:"Product_Category"`
	AvgRisk  float64 `json:"avg_risk"`
}

// SellerTrendPoint is one day of a seller's risk trend.
type SellerTrendPoint struct {
	Date      string  `json:"date"`
	AvgRisk   float64 `json:"avg_risk"`
	HighCount int     `json:"high_count"`
}

// SeriesPoint is one day of a category series.
type SeriesPoint struct {
	Date    string  `json:"date"`
	AvgRisk float64 `json:"avg_risk"`
}

// CategorySeries is the daily risk series of one category.
type CategorySeries struct {
	Category string        `json:"category"`
	Points   []SeriesPoint `json:"points"`
}

// CategoryTrend holds every category series plus the categories a consumer
// should render by default.
type CategoryTrend struct {
	Series        []CategorySeries `json:"series"`
	TopCategories []string         `json:"top_categories"`
}

// Engine evaluates the aggregation rules under one Policy.
type Engine struct {
	policy Policy
}

// NewEngine creates an engine using the given policy.
func NewEngine(policy Policy) *Engine {
	if policy.TopCategories <= 0 {
		policy.TopCategories = DefaultPolicy().TopCategories
	}
	return &Engine{policy: policy}
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// -----------------------------------------------------------------------------
// Group-by helpers
// -----------------------------------------------------------------------------

// meanAcc accumulates a mean over non-null values.
type meanAcc struct {
	sum float64
	n   int
}

func (a *meanAcc) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	a.sum += v
	a.n++
}

// mean returns NaN for a group with no non-null values.
func (a *meanAcc) mean() float64 {
	if a.n == 0 {
		return math.NaN()
	}
	return a.sum / float64(a.n)
}

// groups is a key → accumulator map that remembers first-appearance order.
type groups[K comparable, A any] struct {
	keys []K
	m    map[K]*A
}

func newGroups[K comparable, A any]() *groups[K, A] {
	return &groups[K, A]{m: make(map[K]*A)}
}

func (g *groups[K, A]) get(k K) *A {
	if a, ok := g.m[k]; ok {
		return a
	}
	a := new(A)
	g.m[k] = a
	g.keys = append(g.keys, k)
	return a
}

// sortedKeys returns the string keys in ascending order.
func sortedKeys[A any](g *groups[string, A]) []string {
	keys := append([]string(nil), g.keys...)
	sort.Strings(keys)
	return keys
}

// dailyMeans groups predictions by calendar date and returns the mean score
// per date in ascending date order. Rows with a null date are dropped, as
// are dates with no non-null score.
func dailyMeans(preds []dataset.Prediction) []TrendPoint {
	g := newGroups[string, meanAcc]()
	for _, p := range preds {
		d := p.Date()
		if d == "" {
			continue
		}
		g.get(d).add(p.RiskScore)
	}
	points := make([]TrendPoint, 0, len(g.keys))
	for _, d := range sortedKeys(g) {
		m := g.m[d].mean()
		if math.IsNaN(m) {
			continue
		}
		points = append(points, TrendPoint{Date: d, RiskScore: m})
	}
	return points
}

// meanScore is the mean of all non-null scores, or NaN.
func meanScore(preds []dataset.Prediction) float64 {
	var acc meanAcc
	for _, p := range preds {
		acc.add(p.RiskScore)
	}
	return acc.mean()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func nanToZero(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return f
}
