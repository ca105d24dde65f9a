// Command mockdata writes a synthetic data set (10 sellers across 3
// marketplaces, orders and batch predictions over the last 90 days) into the
// configured table storage.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/mbd888/sellerrisk/internal/config"
	"github.com/mbd888/sellerrisk/internal/dataset"
	"github.com/mbd888/sellerrisk/internal/logging"
	"github.com/mbd888/sellerrisk/internal/mockdata"
)

func main() {
	opts := mockdata.DefaultOptions()
	dataDir := flag.String("data", "", "output directory for the CSV tables (overrides DATA_DIR)")
	flag.IntVar(&opts.Rows, "rows", opts.Rows, "number of orders to generate")
	flag.IntVar(&opts.Days, "days", opts.Days, "spread orders over this many past days")
	flag.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	backend, db, err := dataset.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open tables", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer func() { _ = db.Close() }()
	}

	tables := mockdata.Generate(opts)
	if err := mockdata.Load(ctx, backend, tables); err != nil {
		logger.Error("failed to write mock data", "error", err)
		os.Exit(1)
	}

	logger.Info("mock data written",
		"sellers", len(tables.Sellers),
		"orders", len(tables.Orders),
		"predictions", len(tables.Predictions),
	)
}
