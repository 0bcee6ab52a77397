// Command salesctl prints a month's sales report from the configured store.
package main

import (
	"context"
	"flag"
	"os"

	"salesdash/internal/backend"
	"salesdash/internal/chart"
	"salesdash/internal/cli"
	"salesdash/internal/core"
	applog "salesdash/internal/log"
	"salesdash/internal/seed"
	"salesdash/internal/services"
)

var (
	monthFlag = flag.Int("month", 3, "Month to report on (1-12)")
	pngPath   = flag.String("png", "", "Write the price histogram as a PNG to this path")
	seedFirst = flag.Bool("seed", false, "Import the seed document before reporting")
	forceSeed = flag.Bool("force", false, "With -seed, import even when the store already has records")
)

func main() {
	flag.Parse()

	cfg, logger := cli.Bootstrap()
	if err := core.ValidateMonth(*monthFlag); err != nil {
		cli.Fatal(logger, "Invalid month", applog.FieldError, err, applog.FieldMonth, *monthFlag)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", applog.FieldError, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SeedTimeout+cfg.RequestTimeout)
	defer cancel()

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, backendCfg.Type)
	}
	defer result.Close()

	// The memory backend starts empty, so there is nothing to report without a seed.
	if *seedFirst || result.Type == backend.MemoryBackend {
		importer := seed.NewImporter(result.Store, cfg.SeedURL, seed.WithLogger(logger.WithComponent(applog.ComponentSeed)))
		if _, err := importer.Import(ctx, seed.Request{Force: *forceSeed}); err != nil {
			logger.Error("Seed import failed", applog.FieldError, err)
		}
	}

	aggregates := services.NewAggregationService(result.Store, logger)
	combined, err := aggregates.Combined(ctx, *monthFlag)
	if err != nil {
		logger.Error("Failed to compute report", applog.FieldError, err)
		return
	}
	writeReport(os.Stdout, *monthFlag, combined)

	if *pngPath != "" {
		if err := writePNG(*pngPath, *monthFlag, combined.BarChartData); err != nil {
			logger.Error("Failed to write chart", applog.FieldError, err, "path", *pngPath)
			return
		}
		logger.Info("Chart written", "path", *pngPath)
	}
}

func writePNG(path string, month int, entries []core.HistogramEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := chart.RenderHistogram(f, entries, chart.DefaultOptions(month)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
