package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/TFMV/flightline/config"
	"github.com/TFMV/flightline/fetch"
	"github.com/TFMV/flightline/pipeline"
	"github.com/TFMV/flightline/report"
	"github.com/TFMV/flightline/watch"
)

func main() {
	usage := `Flightline BTS on-time performance ETL.

Usage:
  flightline run --config=<path> [--out=<path>] [--format=<fmt>]
  flightline fetch --start=<year> --end=<year> --dir=<dir>
  flightline watch --config=<path> --dir=<dir>
  flightline (-h | --help)
  flightline --version

Options:
  -h --help         Show this screen.
  --version         Show version.
  --config=<path>   Pipeline configuration file (YAML).
  --out=<path>      Override the configured output path.
  --format=<fmt>    Override the output format (csv|parquet|xlsx).
  --start=<year>    First year to download.
  --end=<year>      Last year to download.
  --dir=<dir>       Data directory.
`
	arguments, err := docopt.ParseDoc(usage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}
	if v, _ := arguments.Bool("--version"); v {
		fmt.Println("Flightline version 1.0.0")
		os.Exit(0)
	}

	// Initialize zap logger.
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Cancel on OS signals so a long fetch or watch shuts down cleanly.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received OS signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	switch {
	case mustBool(arguments, "run"):
		err = runOnce(ctx, arguments, logger)
	case mustBool(arguments, "fetch"):
		err = runFetch(ctx, arguments, logger)
	case mustBool(arguments, "watch"):
		err = runWatch(ctx, arguments, logger)
	}
	if err != nil && err != context.Canceled {
		logger.Fatal("Command failed", zap.Error(err))
	}
}

func mustBool(args docopt.Opts, key string) bool {
	v, _ := args.Bool(key)
	return v
}

func loadConfig(args docopt.Opts) (config.Config, error) {
	path, _ := args.String("--config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if out, err := args.String("--out"); err == nil && out != "" {
		cfg.Output.Path = out
		cfg.Output.Format = config.FormatFromPath(out)
	}
	if format, err := args.String("--format"); err == nil && format != "" {
		cfg.Output.Format = format
	}
	// Inputs are validated in pipeline.Run once known; watch mode supplies
	// them per detected file.
	return cfg, nil
}

func runOnce(ctx context.Context, args docopt.Opts, logger *zap.Logger) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	exposeMetrics(cfg.Metrics.Port)

	result, err := pipeline.Run(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer result.Record.Release()

	text, err := report.Render(result.Record, result.Summary)
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

func runFetch(ctx context.Context, args docopt.Opts, logger *zap.Logger) error {
	start, err := args.Int("--start")
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := args.Int("--end")
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	dir, _ := args.String("--dir")

	fetcher := fetch.NewFetcher(logger)
	summary, err := fetcher.Download(ctx, start, end, dir)
	if err != nil {
		return err
	}
	for _, archive := range summary.Archives {
		if _, err := fetch.ExtractCSV(archive, dir); err != nil {
			logger.Warn("Extraction failed", zap.String("archive", archive), zap.Error(err))
		}
	}
	return nil
}

func runWatch(ctx context.Context, args docopt.Opts, logger *zap.Logger) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	exposeMetrics(cfg.Metrics.Port)
	dir, _ := args.String("--dir")

	monitor, err := watch.NewMonitor(dir, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = monitor.Close()
	}()

	logger.Info("Watching for extracts", zap.String("dir", dir))
	return monitor.Run(ctx, func(path string) {
		runCfg := cfg
		runCfg.Inputs = []string{path}
		result, err := pipeline.Run(ctx, runCfg, logger)
		if err != nil {
			logger.Error("Pipeline run failed", zap.String("input", path), zap.Error(err))
			return
		}
		result.Record.Release()
	})
}

// exposeMetrics serves /metrics when a port is configured.
func exposeMetrics(port int) {
	if port == 0 {
		return
	}
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
	}()
}
