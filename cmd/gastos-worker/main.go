package main

import (
	"context"
	"errors"
	"os"
	"time"

	"gastos/internal/cli"
	"gastos/internal/log"
	"gastos/internal/sheets"
	gsheet "gastos/internal/sheets/google"
	"gastos/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting gastos-worker")

	res := cli.OpenBackend(context.Background(), logger, cfg)
	app, err := cli.NewApp(cfg, res)
	if err != nil {
		logger.Error("Failed to initialize services", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	var exporter sheets.SnapshotExporter
	if cfg.SheetsExportEnabled() {
		exp, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
			_ = res.Cleanup()
			os.Exit(1)
		}
		exporter = exp
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	snapshots := worker.NewSnapshotWorker(app.Analysis, res.Store, exporter, cfg.SnapshotConcurrency)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	scheduler, err := snapshots.Schedule(ctx, cfg.SnapshotSchedule)
	if err != nil {
		logger.Error("Failed to schedule snapshot refresh", log.FieldError, err, "schedule", cfg.SnapshotSchedule)
		_ = res.Cleanup()
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Snapshot refresh scheduled", "schedule", cfg.SnapshotSchedule, "concurrency", cfg.SnapshotConcurrency)

	if err := snapshots.RefreshAll(ctx); err != nil {
		logger.Error("Startup snapshot refresh failed", log.FieldError, err)
	}

	if res.Events != nil {
		go func() {
			err := res.Events.ConsumeTransactionChanged(ctx, snapshots.HandleTransactionChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
		logger.Info("Consuming transaction events", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Skipping AMQP message consumption - no broker configured")
	}

	cli.WaitForShutdown(ctx, done)

	logger.Info("Shutting down worker...")
	<-scheduler.Stop().Done()
	if err := res.Cleanup(); err != nil {
		logger.Error("Backend cleanup error", log.FieldError, err)
	}
	logger.Info("Worker shutdown complete")
}
