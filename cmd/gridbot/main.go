package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"gridbot/internal/bootstrap"
	"gridbot/internal/exchange"
	"gridbot/internal/grid"
	"gridbot/internal/infrastructure/metrics"
	"gridbot/internal/reconciler"
	apperrors "gridbot/pkg/errors"
)

var (
	// Version information (set via build flags)
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/gridbot.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gridbot version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// Credentials may live in a .env file next to the binary; absence is fine
	_ = godotenv.Load()

	app, err := bootstrap.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	logger := app.Logger

	logger.Info("Starting gridbot",
		"version", version,
		"exchange", app.Cfg.Exchange.Name,
		"symbol", app.Cfg.Grid.Symbol,
		"spacing", app.Cfg.Grid.Spacing,
	)

	quantity, err := app.Cfg.Grid.ResolveQuantity()
	if err != nil {
		logger.Fatal("Unusable order quantity", "error", err)
	}

	spacing, err := grid.ParseSpacing(app.Cfg.Grid.Spacing)
	if err != nil {
		logger.Fatal("Invalid spacing mode", "error", err)
	}

	levels, err := grid.ComputeLevels(grid.Config{
		Symbol:        app.Cfg.Grid.Symbol,
		LowerPrice:    app.Cfg.Grid.LowerPriceDec(),
		UpperPrice:    app.Cfg.Grid.UpperPriceDec(),
		LevelCount:    app.Cfg.Grid.LevelCount,
		Spacing:       spacing,
		PriceDecimals: app.Cfg.Grid.PriceDecimals,
	})
	if err != nil {
		logger.Fatal("Failed to compute grid levels", "error", err)
	}
	logger.Info("Grid levels computed",
		"levels", len(levels),
		"lowest", levels[0].Price,
		"highest", levels[len(levels)-1].Price,
		"quantity_per_level", quantity,
	)

	exch, err := exchange.New(app.Cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create exchange", "error", err)
	}

	healthCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	err = exch.CheckHealth(healthCtx)
	cancel()
	if err != nil {
		if apperrors.IsPermanent(err) {
			logger.Fatal("Exchange health check failed", "error", err)
		}
		logger.Warn("Exchange health check failed (will continue)", "error", err)
	} else {
		logger.Info("Exchange health check passed", "exchange", exch.GetName())
	}

	if app.Cfg.Telemetry.EnableMetrics {
		metricsServer := metrics.NewServer(app.Cfg.Telemetry.MetricsPort, logger)
		metricsServer.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Stop(ctx)
		}()
	}

	rec := reconciler.New(exch, levels, reconciler.Config{
		Symbol:           app.Cfg.Grid.Symbol,
		Interval:         time.Duration(app.Cfg.Grid.CheckIntervalSeconds) * time.Second,
		CallTimeout:      time.Duration(app.Cfg.Exchange.RequestTimeoutSeconds) * time.Second,
		PriceDecimals:    app.Cfg.Grid.PriceDecimals,
		QuantityPerLevel: quantity,
		CancelOnExit:     app.Cfg.System.CancelOnExit,
	}, logger)

	if err := app.Run(rec); err != nil {
		os.Exit(1)
	}
}
