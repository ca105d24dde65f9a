// Command train fits one return-risk model per seller from the order history
// and writes the bundles and their evaluation stats to the model store.
//
// Usage:
//
//	go run ./cmd/train                         # use DATA_DIR / MODELS_DIR
//	go run ./cmd/train -data ./data -models ./models
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbd888/sellerrisk/internal/config"
	"github.com/mbd888/sellerrisk/internal/dataset"
	"github.com/mbd888/sellerrisk/internal/logging"
	"github.com/mbd888/sellerrisk/internal/modelstore"
	"github.com/mbd888/sellerrisk/internal/training"
)

func main() {
	dataDir := flag.String("data", "", "directory holding orders.csv (overrides DATA_DIR)")
	modelsDir := flag.String("models", "", "directory for model files (overrides MODELS_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *modelsDir != "" {
		cfg.ModelsDir = *modelsDir
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tables, db, err := dataset.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open tables", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer func() { _ = db.Close() }()
	}

	models, closeModels, err := modelstore.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open model store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = closeModels() }()

	trainer := training.NewTrainer(tables, models, logger).WithMinRows(cfg.MinTrainingRows)
	results, err := trainer.TrainAll(ctx)
	if err != nil {
		logger.Error("training aborted", "error", err, "sellers_done", len(results))
		os.Exit(1)
	}

	summary := training.Summary(results)
	logger.Info("training complete",
		"sellers", len(results),
		"trained", summary[training.OutcomeTrained],
		"skipped", summary[training.OutcomeSkipped],
		"failed", summary[training.OutcomeFailed],
	)
	if err := training.Errors(results); err != nil {
		logger.Warn("some sellers failed to train", "error", err)
	}
}
