package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/cli"
	"budget/internal/ledger"
	"budget/internal/log"
	gsheet "budget/internal/sheets/google"
	"budget/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(log.ComponentWorker)

	if !cfg.MirrorEnabled() {
		logger.Error("Mirror disabled: GOOGLE_SPREADSHEET_ID and service account credentials are required")
		os.Exit(1)
	}
	if cfg.DataBackend == "sheets" {
		logger.Error("Nothing to mirror: the ledger already lives in Google Sheets")
		os.Exit(1)
	}

	logger.Info("Starting budget-mirror",
		log.FieldOperation, log.OpStartup,
		log.FieldBackend, cfg.DataBackend,
		"interval", cfg.MirrorInterval.String())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	be := cli.OpenBackend(ctx, logger, cfg)
	if be.Cleanup != nil {
		defer be.Cleanup()
	}
	source := ledger.NewStore(be.Backend, nil, logger)

	credsFile := cfg.GoogleServiceAccountFile
	if credsFile == "" {
		credsFile = cfg.GoogleApplicationCredFile
	}
	mirror, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: credsFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
		os.Exit(1)
	}

	w := worker.NewMirrorWorker(source, mirror, worker.Config{Interval: cfg.MirrorInterval}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := w.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return w.Stop(stopCtx)
	})

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on periodic sync", log.FieldError, err.Error())
		} else {
			defer client.Close()
			g.Go(func() error {
				err := client.ConsumeLedgerChanged(gctx, w.HandleLedgerChanged)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("Mirror stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)

	stats := w.Stats()
	logger.Info("Mirror stopped",
		"syncs", stats.Syncs,
		"failures", stats.Failures)
}
