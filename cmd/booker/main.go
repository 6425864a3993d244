package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/rs/cors"

	cfg "github.com/fincubator/booker/config"
	"github.com/fincubator/booker/internal/handlers"
	"github.com/fincubator/booker/internal/usecases"
	"github.com/fincubator/booker/internal/usecases/mocked"
	"github.com/fincubator/booker/internal/usecases/repository"
	"github.com/fincubator/booker/internal/workers"
	"github.com/fincubator/booker/pkg/database"
)

// Server timeout constants.
const (
	readTimeoutSeconds     = 15
	writeTimeoutSeconds    = 15
	idleTimeoutSeconds     = 60
	shutdownTimeoutSeconds = 5
)

func main() {
	time.Local = time.UTC

	config, err := cfg.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	opts := &slog.HandlerOptions{
		Level: config.Log.Level,
	}
	if config.App.Debug {
		opts.Level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	logger.Info("Starting booker",
		"environment", config.App.Environment,
		"debug", config.App.Debug,
		"server_port", config.HTTP.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the database
	pg, err := database.New(config,
		database.MaxPoolSize(config.DB.PoolMax),
		database.ConnTimeout(config.DB.ConnectTimeout),
		database.HealthCheckPeriod(config.DB.HealthCheckPeriod),
		database.Isolation(pgx.ReadCommitted),
	)
	if err != nil {
		logger.Error("postgres connection failed", slog.String("error", err.Error()))
		return
	}
	defer pg.Close()

	// Run schema migrations
	migrationsPath := findMigrationsPath()
	logger.Info("Running database migrations", "path", migrationsPath)
	if err = database.RunMigrations(logger, config.DB.DatabaseURL, migrationsPath); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		log.Fatal(err)
	}

	// Repositories
	transactionsRepository := repository.NewTransactionsRepository(logger, pg)
	ordersRepository := repository.NewOrdersRepository(logger, pg, transactionsRepository)

	// Services
	orderService := usecases.NewOrderService(ordersRepository)
	transactionService := usecases.NewTransactionService(transactionsRepository)

	// Handlers
	websocketManager := handlers.NewWebSocketManager(logger)
	httpHandler := handlers.NewHTTPHandler(logger, orderService, transactionService)
	wsHandler := handlers.NewWebSocketHandler(logger, websocketManager)

	// Workers
	initAndRunWorkers(ctx, logger, config, orderService, websocketManager)

	router := mux.NewRouter()
	wsHandler.RegisterRoutes(router)
	httpHandler.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:         ":" + config.HTTP.Port,
		Handler:      c.Handler(router),
		ReadTimeout:  readTimeoutSeconds * time.Second,
		WriteTimeout: writeTimeoutSeconds * time.Second,
		IdleTimeout:  idleTimeoutSeconds * time.Second,
	}

	go func() {
		logger.Info("Starting server", "address", server.Addr)
		if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeoutSeconds*time.Second)
	defer shutdownCancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server exited properly")
}

func initAndRunWorkers(
	ctx context.Context,
	logger *slog.Logger,
	config *cfg.Config,
	orderService *usecases.OrderService,
	websocketManager *handlers.Manager,
) {
	// The dry-run sender is the only in-tree payout gateway; real chain
	// clients live outside this service.
	if !config.Worker.PayoutDryRun {
		logger.Warn("No payout gateway configured, payout dispatcher disabled")
	} else {
		dispatcher := workers.NewPayoutDispatcher(
			logger,
			orderService,
			mocked.NewPayoutSender(logger),
			websocketManager,
			time.Duration(config.Worker.PayoutInterval)*time.Second,
			config.Worker.PayoutBatchSize,
		)

		go func() {
			logger.Info("Starting payout dispatcher worker")
			dispatcher.Start(ctx)
		}()
	}

	orderCleaner := workers.NewOrderCleaner(
		logger,
		orderService,
		time.Duration(config.Worker.OrderRetention)*time.Minute,
		time.Duration(config.Worker.CleanupInterval)*time.Minute,
	)

	go func() {
		logger.Info("Starting order cleaner worker")
		orderCleaner.Start(ctx)
	}()

	logger.Info("All workers initialized and started")
}

// findMigrationsPath locates the migrations directory relative to the
// working directory, falling back one level up for `go run ./cmd/booker`.
func findMigrationsPath() string {
	migrationsPath := "./migrations"
	if workDir, err := os.Getwd(); err == nil {
		if _, err = os.Stat(filepath.Join(workDir, "migrations")); !os.IsNotExist(err) {
			migrationsPath = filepath.Join(workDir, "migrations")
		} else if _, err = os.Stat(filepath.Join(workDir, "..", "migrations")); !os.IsNotExist(err) {
			migrationsPath = filepath.Join(workDir, "..", "migrations")
		}
	}
	return migrationsPath
}
