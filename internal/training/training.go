// Package training fits one return classifier per seller from the order
// history and persists the bundle and its evaluation stats.
//
// Sellers are trained one at a time. A seller with too little history is
// skipped and a seller whose fit fails is logged; neither stops the batch.
package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/sellerrisk/internal/dataset"
	"github.com/mbd888/sellerrisk/internal/logging"
	"github.com/mbd888/sellerrisk/internal/metrics"
	"github.com/mbd888/sellerrisk/internal/model"
	"github.com/mbd888/sellerrisk/internal/traces"
)

const (
	DefaultMinRows  = 30
	DefaultTestSize = 0.2
)

// Outcome is the result category of one seller's training attempt.
type Outcome string

const (
	OutcomeTrained Outcome = "trained"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result records what happened to one seller.
type Result struct {
	SellerID string
	Outcome  Outcome
	Rows     int
	Stats    *model.Stats
	Err      error
}

// OrderSource supplies the order history.
type OrderSource interface {
	LoadOrders(ctx context.Context) ([]dataset.Order, error)
}

// ArtifactStore persists trained artifacts.
type ArtifactStore interface {
	SaveBundle(ctx context.Context, b *model.Bundle) error
	SaveStats(ctx context.Context, s *model.Stats) error
}

// Trainer runs the per-seller training batch.
type Trainer struct {
	orders   OrderSource
	store    ArtifactStore
	logger   *slog.Logger
	minRows  int
	testSize float64
	forest   model.ForestOptions
	now      func() time.Time
}

// NewTrainer creates a trainer with production defaults.
func NewTrainer(orders OrderSource, store ArtifactStore, logger *slog.Logger) *Trainer {
	return &Trainer{
		orders:   orders,
		store:    store,
		logger:   logger,
		minRows:  DefaultMinRows,
		testSize: DefaultTestSize,
		forest:   model.DefaultForestOptions(),
		now:      time.Now,
	}
}

// WithMinRows overrides the minimum order count needed to train a seller.
func (t *Trainer) WithMinRows(n int) *Trainer {
	if n > 0 {
		t.minRows = n
	}
	return t
}

// WithForestOptions overrides the ensemble settings.
func (t *Trainer) WithForestOptions(opts model.ForestOptions) *Trainer {
	t.forest = opts
	return t
}

// TrainAll trains every seller that appears in the order history, in order
// of first appearance. It only returns an error if the orders can't be
// loaded; per-seller failures are reported in the results.
func (t *Trainer) TrainAll(ctx context.Context) ([]Result, error) {
	orders, err := t.orders.LoadOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	if len(orders) == 0 {
		t.logger.Warn("no orders to train on")
		return nil, nil
	}

	var sellers []string
	seen := make(map[string]bool)
	for _, o := range orders {
		if o.SellerID == "" || seen[o.SellerID] {
			continue
		}
		seen[o.SellerID] = true
		sellers = append(sellers, o.SellerID)
	}

	results := make([]Result, 0, len(sellers))
	for _, id := range sellers {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, t.TrainSeller(ctx, orders, id))
	}
	return results, nil
}

// TrainSeller trains one seller from the full order table.
func (t *Trainer) TrainSeller(ctx context.Context, orders []dataset.Order, sellerID string) (res Result) {
	ctx, span := traces.StartSpan(ctx, "training.TrainSeller", traces.SellerID(sellerID))
	defer span.End()

	logger := t.logger.With(logging.Seller(sellerID))
	rows := dataset.FilterOrders(orders, "", sellerID)
	res = Result{SellerID: sellerID, Rows: len(rows)}
	span.SetAttributes(traces.Rows(len(rows)))

	if len(rows) < t.minRows {
		logger.Warn("skipping seller", "rows", len(rows), "min_rows", t.minRows)
		metrics.TrainingsTotal.WithLabelValues(string(OutcomeSkipped)).Inc()
		res.Outcome = OutcomeSkipped
		return res
	}

	start := t.now()
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("panic during training: %v", r)
		}
		if res.Outcome == OutcomeFailed {
			traces.RecordError(span, res.Err)
			logger.Error("training failed", "rows", len(rows), "error", res.Err)
		}
		metrics.TrainingsTotal.WithLabelValues(string(res.Outcome)).Inc()
	}()

	stats, err := t.fit(ctx, sellerID, rows)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}

	metrics.TrainingDuration.Observe(t.now().Sub(start).Seconds())
	metrics.ModelF1.WithLabelValues(sellerID).Set(stats.F1)
	logger.Info("trained seller model",
		"rows", stats.NRows,
		"accuracy", fmt.Sprintf("%.3f", stats.Accuracy),
		"precision", fmt.Sprintf("%.3f", stats.Precision),
		"recall", fmt.Sprintf("%.3f", stats.Recall),
		"f1", fmt.Sprintf("%.3f", stats.F1),
	)
	res.Outcome = OutcomeTrained
	res.Stats = stats
	return res
}

func (t *Trainer) fit(ctx context.Context, sellerID string, rows []dataset.Order) (*model.Stats, error) {
	enc, err := model.FitEncoder(rows, model.CategoricalColumns)
	if err != nil {
		return nil, err
	}

	X := make([][]float64, len(rows))
	y := make([]int, len(rows))
	for i, o := range rows {
		if X[i], err = model.Vectorize(o, model.FeatureNames, enc); err != nil {
			return nil, err
		}
		if o.Returned != 0 {
			y[i] = 1
		}
	}

	trainIdx, testIdx, err := model.StratifiedSplit(y, t.testSize, t.forest.Seed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	forest, err := model.FitForest(pick(X, trainIdx), pick(y, trainIdx), t.forest)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	yTest := pick(y, testIdx)
	yPred := make([]int, len(testIdx))
	for i, row := range pick(X, testIdx) {
		yPred[i] = forest.Predict(row)
	}
	stats := model.NewStats(sellerID, len(rows), model.Evaluate(yTest, yPred))

	bundle := &model.Bundle{
		SellerID:  sellerID,
		Model:     forest,
		Encoder:   enc,
		Features:  append([]string(nil), model.FeatureNames...),
		TrainedAt: t.now().UTC(),
	}
	if err := t.store.SaveBundle(ctx, bundle); err != nil {
		return nil, fmt.Errorf("save bundle: %w", err)
	}
	if err := t.store.SaveStats(ctx, stats); err != nil {
		return nil, fmt.Errorf("save stats: %w", err)
	}
	return stats, nil
}

func pick[T any](xs []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = xs[j]
	}
	return out
}

// Summary counts results by outcome.
func Summary(results []Result) map[Outcome]int {
	out := make(map[Outcome]int)
	for _, r := range results {
		out[r.Outcome]++
	}
	return out
}

// Errors joins every per-seller failure, or returns nil.
func Errors(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.SellerID, r.Err))
		}
	}
	return errors.Join(errs...)
}
