package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/cosai-tools/risk-navigator/internal/infrastructure/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		action     = flag.String("action", "up", "Migration action: up, down, version, force")
		steps      = flag.Int("steps", 0, "Number of migrations to run (0 = all)")
		version    = flag.Int("version", -1, "Target version (for force action)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if !cfg.Database.Enabled() {
		slog.Error("no database configured, set DATABASE_URL or the PG* environment variables")
		os.Exit(1)
	}

	dir, err := filepath.Abs(cfg.Database.MigrationsDir)
	if err != nil {
		slog.Error("failed to resolve migrations directory", "error", err)
		os.Exit(1)
	}

	m, err := migrate.New("file://"+dir, cfg.Database.URL)
	if err != nil {
		slog.Error("failed to initialize migrator", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	switch *action {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			err = verr
			break
		}
		fmt.Printf("version=%d dirty=%v\n", v, dirty)
	case "force":
		if *version < 0 {
			slog.Error("target version is required for force action")
			os.Exit(1)
		}
		err = m.Force(*version)
	default:
		slog.Error("unknown action", "action", *action)
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("migration failed", "action", *action, "error", err)
		os.Exit(1)
	}

	slog.Info("migration complete", "action", *action)
}
