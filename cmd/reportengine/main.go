package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	corecfg "github.com/reportengine-lab/reportengine/internal/core/config"
	"github.com/reportengine-lab/reportengine/internal/core/storage/postgres"
	"github.com/reportengine-lab/reportengine/internal/migrations"
	"github.com/reportengine-lab/reportengine/internal/reporting"
	"github.com/reportengine-lab/reportengine/internal/rollup"
	"github.com/reportengine-lab/reportengine/internal/server"
)

func main() {
	configPath := flag.String("config", "reportengine.yaml", "Path to configuration file")
	flag.Parse()

	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"server", cfg.Server,
		"report", cfg.Report,
		"rollup", cfg.Rollup,
	)

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 3. Initialize the report read path
	reportStore := postgres.NewReportAdapter(dbAdapter.DB())
	rollupStore := postgres.NewRollupAdapter(dbAdapter.DB())

	reportSvc := reporting.NewService(reportStore, rollupStore, reporting.Options{
		DefaultLimit: cfg.Report.DefaultLimit,
		MaxLimit:     cfg.Report.MaxLimit,
		UseRollup:    cfg.Report.UseRollup,
	})

	// 4. Initialize the rollup admin API
	adminAPI := rollup.NewAdminAPI(rollupStore, cfg.Admin.Token)

	// 5. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode)
	reportSvc.RegisterRoutes(srv.Engine)
	adminAPI.RegisterRoutes(srv.Engine)

	// 6. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Rollup.Enabled {
		interval, err := time.ParseDuration(cfg.Rollup.RefreshInterval)
		if err != nil {
			// Validate already checked this; guard against config drift anyway.
			slog.Error("Invalid rollup refresh interval", "value", cfg.Rollup.RefreshInterval, "error", err)
			os.Exit(1)
		}
		refresher := rollup.NewRefresher(interval, rollupStore)
		go func() {
			if err := refresher.Start(ctx); err != nil {
				slog.Error("Rollup refresher stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Rollup refresher disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
