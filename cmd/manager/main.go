package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"manager/internal/amqp"
	"manager/internal/cache"
	"manager/internal/config"
	apphttp "manager/internal/http"
	applog "manager/internal/log"
	"manager/internal/services"
	"manager/internal/storage"
	storagemem "manager/internal/storage/memory"
)

func main() {
	// Load .env for local development, ignore errors in production
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var (
		fixed    services.FixedExpenseStore
		receipts services.ReceiptStore
		projects services.ProjectStore
		closeDB  func() error
	)

	switch cfg.DataBackend {
	case "memory":
		store := storagemem.New()
		fixed, receipts, projects = store, store, store
		logger.Info("Initialized memory backend")
	default:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		fixed, receipts, projects = repo, repo, repo
		closeDB = repo.Close
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	}
	if closeDB != nil {
		defer func() {
			if err := closeDB(); err != nil {
				logger.Error("Failed to close database", "error", err)
			}
		}()
	}

	// AMQP is optional; without it receipts are swept by the worker's
	// periodic scan instead of being pushed.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, receipt export falls back to periodic sweep", "error", err)
		} else {
			amqpClient = client
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	names := cache.NewLRU[map[int64]string](cfg.CacheSize, cfg.CacheTTL)
	totals := cache.NewLRU[services.TotalExpensesReport](cfg.CacheSize, cfg.CacheTTL)

	cacheManager := cache.NewManager()
	cacheManager.Register(names)
	cacheManager.Register(totals)
	cacheManager.StartCleanup(cfg.CacheTTL)
	defer cacheManager.Stop()

	cashflow := services.NewCashFlowService(fixed, receipts, projects, names)
	receiptSvc := services.NewReceiptService(receipts, amqpClient)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		CashFlow:    cashflow,
		Receipts:    receiptSvc,
		Fixed:       fixed,
		Projects:    projects,
		JWTSecret:   []byte(cfg.JWTSecret),
		TotalsCache: totals,
	})
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting manager server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
