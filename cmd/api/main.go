package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sentinel-analytics/dqsi-engine/internal/api/rest"
	"github.com/sentinel-analytics/dqsi-engine/internal/infrastructure/cache"
	"github.com/sentinel-analytics/dqsi-engine/internal/infrastructure/config"
	"github.com/sentinel-analytics/dqsi-engine/internal/infrastructure/telemetry"
	dqsisvc "github.com/sentinel-analytics/dqsi-engine/internal/service/dqsi"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dqsi-engine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "path to configuration file")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("dqsi-engine %s\n", version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rules, err := config.LoadQualityRules(cfg.Quality.RulesFile)
	if err != nil {
		return fmt.Errorf("load quality rules: %w", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting dqsi-engine",
		"version", version,
		"environment", cfg.Environment,
		"strategy", rules.Strategy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.Initialize(ctx, &telemetry.Config{
		ServiceName:    "dqsi-engine",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		ExportTimeout:  cfg.Telemetry.ExportTimeout,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("create zap logger: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	service, err := dqsisvc.NewService(rules, zapLogger)
	if err != nil {
		return fmt.Errorf("create scoring service: %w", err)
	}

	var assessments *cache.AssessmentCache
	if cfg.Redis.Enabled {
		assessments, err = cache.NewAssessmentCache(&cfg.Redis, zapLogger)
		if err != nil {
			return fmt.Errorf("connect assessment cache: %w", err)
		}
		defer assessments.Close() //nolint:errcheck
	}

	server := rest.NewServer(cfg, service, assessments, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
