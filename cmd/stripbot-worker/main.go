package main

import (
	"context"
	"errors"
	"os"
	"time"
	_ "time/tzdata"

	"stripbot/internal/amqp"
	"stripbot/internal/cli"
	"stripbot/internal/config"
	applog "stripbot/internal/log"
	"stripbot/internal/services"
	"stripbot/internal/sheets"
	gsheet "stripbot/internal/sheets/google"
	mem "stripbot/internal/sheets/memory"
	"stripbot/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting stripbot-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	// Without a spreadsheet rows go to an in-memory writer, which keeps the
	// sync bookkeeping exercised in local runs.
	var writer sheets.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleLedgerSheetName)
		if err != nil {
			return err
		}
		writer = client
		logger.Info("Google Sheets client initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleLedgerSheetName)
	} else {
		writer = mem.New()
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, using memory writer")
	}

	syncWorker := worker.NewSyncWorker(repo, writer, cfg.SyncBatchSize)

	// On startup, export any entries that might have been missed
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	})
	if err := processor.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := processor.Stop(stopCtx); err != nil {
			logger.Warn("Sync processor stop", "error", err)
		}
	}()

	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - relying on periodic sync only", "interval", cfg.SyncInterval)
		<-ctx.Done()
		return nil
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPIngestQueue)
	if err != nil {
		return err
	}
	defer amqpClient.Close()

	err = amqpClient.ConsumeLedgerSync(ctx, syncWorker.HandleSyncMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
