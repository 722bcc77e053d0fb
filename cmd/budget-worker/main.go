package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budget/internal/amqp"
	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sheetsClient, err := backend.NewSheetsClient(context.Background(), backend.Config{
		Type:                     backend.SheetsBackend,
		GoogleSpreadsheetID:      cfg.GoogleSpreadsheetID,
		GoogleTransactionsSheet:  cfg.GoogleTransactionsSheet,
		GoogleBillsSheet:         cfg.GoogleBillsSheet,
		GoogleServiceAccountFile: cfg.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: cfg.GoogleServiceAccountJSON,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, sheetsClient, cfg.SyncBatchSize)
	processor := services.NewSyncProcessor(syncWorker, repo, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Sync processor shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting sync worker",
		"queue", cfg.AMQPQueue,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"batch_size", cfg.SyncBatchSize,
		"poll_interval", cfg.SyncInterval,
		log.FieldOperation, log.OpStartup)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeRowsAppended(gctx, syncWorker.HandleRowsAppended)
	})
	g.Go(func() error {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		processor.Wait()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Sync worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	<-done
	logger.Info("Sync worker stopped")
}
