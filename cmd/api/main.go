package main

import (
	"context"
	"flag"
	"log"
	"log/slog"

	"github.com/cosai-tools/risk-navigator/internal/api/rest"
	"github.com/cosai-tools/risk-navigator/internal/domain/riskmap"
	"github.com/cosai-tools/risk-navigator/internal/infrastructure/config"
	"github.com/cosai-tools/risk-navigator/internal/infrastructure/telemetry"
)

func main() {
	var configPath = flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	slog.SetDefault(logger)

	zapLogger, err := telemetry.SetupZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to setup zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// A malformed risk map is a fatal configuration error: the catalogs are
	// the ground truth for every evaluation.
	store, err := riskmap.Load(cfg.RiskMap.DataDir)
	if err != nil {
		log.Fatalf("Failed to load risk map: %v", err)
	}

	logger.Info("risk map loaded",
		"data_dir", cfg.RiskMap.DataDir,
		"risks", len(store.Risks()),
		"controls", len(store.Controls()),
		"personas", len(store.Personas()),
		"questions", len(store.Questions()),
	)

	server, err := rest.NewServer(context.Background(), cfg, store, logger, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
