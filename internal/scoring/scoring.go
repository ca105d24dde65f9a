// Package scoring scores a single raw order against its seller's model and
// appends the result to the prediction log.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mbd888/sellerrisk/internal/analytics"
	"github.com/mbd888/sellerrisk/internal/dataset"
	"github.com/mbd888/sellerrisk/internal/idgen"
	"github.com/mbd888/sellerrisk/internal/logging"
	"github.com/mbd888/sellerrisk/internal/metrics"
	"github.com/mbd888/sellerrisk/internal/model"
	"github.com/mbd888/sellerrisk/internal/traces"
)

var (
	ErrMissingSeller = errors.New("seller_id is required")
	ErrMissingOrder  = errors.New("order is required")
)

// Request is the body of a single-order prediction.
type Request struct {
	SellerID string         `json:"seller_id"`
	Order    map[string]any `json:"order"`
}

// Result is the scored order.
type Result struct {
	SellerID       string            `json:"seller_id"`
	OrderID        string            `json:"Order_ID"`
	MarketplaceID  string            `json:"marketplace_id"`
	RiskScore      float64           `json:"risk_score"`
	RiskLabel      dataset.RiskLabel `json:"risk_label"`
	ModelAvailable bool              `json:"model_available"`
}

// BundleSource loads a seller's model bundle.
type BundleSource interface {
	LoadBundle(ctx context.Context, sellerID string) (*model.Bundle, error)
}

// Predictor scores orders and logs the outcome.
type Predictor struct {
	models BundleSource
	tables dataset.Store
	policy analytics.Policy
	logger *slog.Logger
	now    func() time.Time
}

// NewPredictor creates a predictor reading bundles from models and logging
// to tables. Labels, the neutral score and proxy scores come from policy.
func NewPredictor(models BundleSource, tables dataset.Store, policy analytics.Policy, logger *slog.Logger) *Predictor {
	return &Predictor{models: models, tables: tables, policy: policy, logger: logger, now: time.Now}
}

// WithClock overrides the clock used for synthesized order ids and log
// timestamps.
func (p *Predictor) WithClock(now func() time.Time) *Predictor {
	p.now = now
	return p
}

// ScoreVector returns the winning class's probability and the predicted
// class. Without probability estimates it falls back to a proxy score keyed
// off the prediction.
func ScoreVector(policy analytics.Policy, clf model.Classifier, x []float64) (float64, int) {
	predicted := clf.Predict(x)
	proba, err := clf.PredictProba(x)
	if err != nil || len(proba) == 0 {
		return policy.ProxyScore(predicted), predicted
	}
	score := math.Inf(-1)
	for _, v := range proba {
		score = math.Max(score, v)
	}
	return score, predicted
}

// Predict scores one order and appends it to the prediction log. Only a
// malformed request is an error; a missing model yields the neutral result.
func (p *Predictor) Predict(ctx context.Context, req Request) (*Result, error) {
	if req.SellerID == "" {
		return nil, ErrMissingSeller
	}
	if req.Order == nil {
		return nil, ErrMissingOrder
	}

	ctx, span := traces.StartSpan(ctx, "scoring.Predict", traces.SellerID(req.SellerID))
	defer span.End()
	start := p.now()
	logger := p.logger.With(logging.Seller(req.SellerID))
	if id := logging.RequestID(ctx); id != "" {
		logger = logger.With("request_id", id)
	}

	order := OrderFromPayload(req.Order)
	order.SellerID = req.SellerID
	if order.OrderID == "" {
		order.OrderID = idgen.OrderID(start)
	}
	if order.MarketplaceID == "" {
		order.MarketplaceID = p.resolveMarketplace(ctx, logger, req.SellerID)
	}
	span.SetAttributes(traces.OrderID(order.OrderID), traces.MarketplaceID(order.MarketplaceID))

	res := &Result{
		SellerID:      req.SellerID,
		OrderID:       order.OrderID,
		MarketplaceID: order.MarketplaceID,
		RiskScore:     p.policy.NeutralScore,
		RiskLabel:     dataset.LabelMedium,
	}

	if bundle := p.loadBundle(ctx, logger, req.SellerID); bundle != nil {
		x, err := bundle.Vector(order)
		if err != nil {
			logger.Warn("model bundle cannot encode order", "error", err)
		} else {
			score, predicted := ScoreVector(p.policy, bundle.Model, x)
			res.RiskScore = score
			res.RiskLabel = p.policy.Label(score, predicted)
			res.ModelAvailable = true
		}
	}

	availability := "missing"
	if res.ModelAvailable {
		availability = "available"
	}
	metrics.PredictionsTotal.WithLabelValues(string(res.RiskLabel), availability).Inc()
	metrics.PredictionDuration.Observe(p.now().Sub(start).Seconds())

	if err := p.LogPrediction(ctx, order, res); err != nil {
		traces.RecordError(span, err)
		logger.Error("failed to log prediction", "order_id", order.OrderID, "error", err)
	}
	return res, nil
}

// LogPrediction appends one row for the scored order. Repeated calls for the
// same order id append repeated rows.
func (p *Predictor) LogPrediction(ctx context.Context, order dataset.Order, res *Result) error {
	row := dataset.Prediction{
		OrderID:         res.OrderID,
		SellerID:        res.SellerID,
		MarketplaceID:   res.MarketplaceID,
		ProductCategory: order.ProductCategory,
		CustomerType:    order.CustomerType,
		PaymentMethod:   order.PaymentMethod,
		RiskScore:       res.RiskScore,
		RiskLabel:       res.RiskLabel,
		Timestamp:       p.now().UTC(),
	}
	if err := p.tables.AppendPrediction(ctx, row); err != nil {
		return fmt.Errorf("append prediction: %w", err)
	}
	metrics.PredictionsLoggedTotal.Inc()
	return nil
}

func (p *Predictor) loadBundle(ctx context.Context, logger *slog.Logger, sellerID string) *model.Bundle {
	bundle, err := p.models.LoadBundle(ctx, sellerID)
	if err != nil {
		logger.Debug("no usable model, serving neutral score", "error", err)
		return nil
	}
	return bundle
}

func (p *Predictor) resolveMarketplace(ctx context.Context, logger *slog.Logger, sellerID string) string {
	id, err := p.tables.SellerMarketplace(ctx, sellerID)
	if err != nil && !errors.Is(err, dataset.ErrSellerNotFound) {
		logger.Warn("marketplace lookup failed", "error", err)
	}
	return id
}
