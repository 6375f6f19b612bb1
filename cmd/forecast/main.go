// Command forecast runs one end-to-end Hawaii surf forecast: it loads a
// bundle of raw inputs, fuses and scores them, hands the result to the
// buoy, pressure, and senior specialists, and publishes the finished
// forecast to the configured sink topic.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	httpadapter "github.com/stonezone/surfcast-fusion/internal/adapter/http"
	kafkaadapter "github.com/stonezone/surfcast-fusion/internal/adapter/kafka"
	"github.com/stonezone/surfcast-fusion/internal/bundle"
	"github.com/stonezone/surfcast-fusion/internal/config"
	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stonezone/surfcast-fusion/internal/llm"
	"github.com/stonezone/surfcast-fusion/internal/observability"
	"github.com/stonezone/surfcast-fusion/internal/performance"
	"github.com/stonezone/surfcast-fusion/internal/pipeline"
)

func main() {
	bundleID := flag.String("bundle-id", "", "bundle subdirectory under BUNDLE_DIR to forecast (required)")
	daysAhead := flag.Int("days-ahead", 0, "override DAYS_AHEAD for this run (0 keeps the configured default)")
	lookbackDays := flag.Int("lookback-days", 0, "override LOOKBACK_DAYS for this run (0 keeps the configured default)")
	configFile := flag.String("config", "", "optional KEY=VALUE env file to load before reading configuration")
	region := flag.String("region", "North Pacific", "pressure-chart region label passed to the specialist")
	flag.Parse()

	if *bundleID == "" {
		fmt.Fprintln(os.Stderr, "Error: --bundle-id is required")
		os.Exit(1)
	}

	if *configFile != "" {
		if err := loadEnvFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *daysAhead > 0 {
		cfg.DaysAhead = *daysAhead
	}
	if *lookbackDays > 0 {
		cfg.LookbackDays = *lookbackDays
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	bundleDir := filepath.Join(cfg.BundleDir, *bundleID)
	req, err := bundle.Load(logger, bundleDir, *region)
	if err != nil {
		logger.Error("failed to load bundle", "bundle_id", *bundleID, "error", err)
		os.Exit(1)
	}

	client := llm.NewStubClient()
	perfStore := performance.NewStubStore()
	p := pipeline.New(cfg, logger, metrics, client, "forecast-specialist", perfStore)

	var writer *kafkaadapter.Writer
	if cfg.KafkaPublishing {
		writer = kafkaadapter.NewWriter(cfg, logger)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	result, runErr := p.Run(ctx, req)

	exitCode := 0
	if runErr != nil {
		logger.Error("forecast run failed", "bundle_id", *bundleID, "error", runErr)
		switch {
		case errors.Is(runErr, domain.ErrInsufficientSpecialists), errors.Is(runErr, domain.ErrLLMUnavailable):
			exitCode = 2
		default:
			exitCode = 1
		}
	} else {
		logger.Info("forecast complete",
			"bundle_id", *bundleID,
			"forecast_id", result.Forecast.ForecastID,
			"events", len(result.Forecast.Events),
			"confidence", result.SeniorOutput.Confidence,
		)
		if writer != nil {
			if err := writer.Publish(ctx, result.Forecast); err != nil {
				logger.Error("forecast publish failed", "error", err)
				exitCode = 1
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	os.Exit(exitCode)
}

// loadEnvFile applies KEY=VALUE lines from path to the process environment,
// skipping blank lines and lines starting with '#'. Existing environment
// variables are left untouched so the shell always wins over the file.
func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("set env %s: %w", key, err)
		}
	}
	return scanner.Err()
}
