package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/cli"
	"budget/internal/core"
	apphttp "budget/internal/http"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/savings"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	logger.Info("Starting budget",
		log.FieldOperation, log.OpStartup,
		log.FieldBackend, cfg.DataBackend,
		"port", cfg.Port)

	ctx := context.Background()
	be := cli.OpenBackend(ctx, logger, cfg)

	snapshots := cache.NewLRUCache[[]core.Transaction](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(snapshots)
	if cfg.CacheTTL > 0 {
		cacheManager.StartCleanup(cfg.CacheTTL)
	}

	store := ledger.NewStore(be.Backend, snapshots, logger)

	var manual map[string]core.Money
	if cfg.SavingsFile != "" {
		balances, err := savings.LoadBalances(cfg.SavingsFile)
		if err != nil {
			logger.Error("Failed to load savings balances",
				log.FieldComponent, log.ComponentSavings,
				log.FieldError, err.Error(),
				"path", cfg.SavingsFile)
			os.Exit(1)
		}
		manual = balances
	}
	calc, err := savings.New(savings.Mode(cfg.SavingsMode), manual)
	if err != nil {
		logger.Error("Invalid savings configuration", log.FieldError, err.Error())
		os.Exit(1)
	}

	// Change notifications are optional; without a broker the mirror relies
	// on its periodic sync.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, change notifications disabled",
				log.FieldComponent, log.ComponentAMQP,
				log.FieldError, err.Error())
		} else {
			publisher = amqpClient
		}
	}

	svc := services.NewLedgerService(store, publisher, calc, logger)
	if amqpClient != nil {
		svc.OnClose(amqpClient.Close)
	}
	if be.Cleanup != nil {
		svc.OnClose(be.Cleanup)
	}
	svc.OnClose(func() error {
		cacheManager.Stop()
		return nil
	})

	// Fail fast on a corrupt ledger rather than on the first page view.
	if _, err := svc.LoadLedger(ctx); err != nil {
		logger.Error("Failed to load ledger",
			log.NewFields().
				WithError(err).
				WithOperation(log.OpLoad).
				ToSlice()...)
		if core.IsCorrupt(err) {
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:       logger,
		RateLimitRPM: cfg.RateLimitRPM,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if err := svc.Close(); err != nil {
			logger.Error("Cleanup error", log.FieldError, err.Error())
		}
	})

	logger.Info("Listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
