package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/migrations"
)

func main() {
	if len(os.Args) < 2 {
		slog.Error("usage: migrate [up|down]")
		os.Exit(2)
	}
	direction := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	log := logger.New(logger.Options{Service: "storefront-migrate", Env: cfg.AppEnv, Level: cfg.LogLevel})

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Error("connect to database", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	applied, err := database.Migrate(context.Background(), db, migrations.FS, direction)
	if err != nil {
		log.Error("migration failed", slog.Any("err", err))
		os.Exit(1)
	}

	for _, name := range applied {
		log.Info("applied migration", slog.String("file", name))
	}
	log.Info("migrations complete", slog.Int("count", len(applied)), slog.String("direction", direction))
}
