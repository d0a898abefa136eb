package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"stripbot/internal/amqp"
	"stripbot/internal/bot"
	"stripbot/internal/cli"
	"stripbot/internal/config"
	"stripbot/internal/core"
	apphttp "stripbot/internal/http"
	applog "stripbot/internal/log"
	"stripbot/internal/services"
	"stripbot/internal/session"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("stripbot stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("stripbot stopped gracefully")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	catalog, scanner, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// AMQP is optional: without it messages are collected inline and
	// ledger rows wait for the worker's periodic sync.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPIngestQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client, continuing without it", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	var (
		publisher services.SyncPublisher
		ingest    bot.IngestPublisher
	)
	if amqpClient != nil {
		publisher = amqpClient
		ingest = amqpClient
	}

	sessions := session.NewStoreWithConfig(session.StoreConfig{
		MaxSessions: cfg.SessionMax,
		IdleTTL:     cfg.SessionIdleTTL,
	})
	pipeline := core.NewPipeline(scanner, core.NewClassifier(cfg.Threshold()))
	reports := services.NewReportService(sessions, pipeline)
	ledger := services.NewLedgerService(repo, publisher, sessions, catalog, scanner, cfg.Location())

	srv := apphttp.NewServer(":"+cfg.Port, reports, ledger, logger.WithComponent(applog.ComponentHTTP))
	srv.AddReadinessCheck("sqlite", repo.Ping)
	if amqpClient != nil {
		srv.AddReadinessCheck("amqp", amqpClient.Ping)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.TelegramBotToken != "" {
		api, err := bot.NewAPI(cfg.TelegramBotToken, bot.ProxyConfig{
			Server:   cfg.TelegramProxy,
			User:     cfg.TelegramProxyUser,
			Password: cfg.TelegramProxyPass,
		})
		if err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
		handler := bot.NewHandler(api, reports, ledger, ingest)

		g.Go(func() error {
			return bot.Run(ctx, api, handler)
		})
		if amqpClient != nil {
			g.Go(func() error {
				err := amqpClient.ConsumeIngest(ctx, handler.HandleIngest)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	} else {
		logger.Info("Telegram bot disabled - no TELEGRAM_BOT_TOKEN provided")
	}

	return g.Wait()
}
