package main

import (
	"flag"
	"os"

	"AstroTransit/internal/di"
	"AstroTransit/pkg/config"
	applogger "AstroTransit/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	boot := applogger.NewWriter(os.Stderr, "info")

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		boot.Error("config load failed", applogger.Error(err))
		os.Exit(1)
	}

	boot.Info("starting",
		applogger.String("env", cfg.Environment),
		applogger.String("ephemeris", cfg.Ephemeris.Provider),
		applogger.Bool("kafka", cfg.Kafka.Enabled),
		applogger.Bool("clickhouse", cfg.ClickHouse.Enabled),
		applogger.Bool("cache", cfg.Cache.Enabled),
	)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		boot.Error("app initialization failed", applogger.Error(err))
		os.Exit(1)
	}

	// Blocks until SIGINT/SIGTERM.
	if err := app.Run(); err != nil {
		boot.Error("app error", applogger.Error(err))
		os.Exit(1)
	}
}
