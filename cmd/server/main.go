package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appinv "github.com/erp/backoffice/internal/application/inventory"
	importapp "github.com/erp/backoffice/internal/application/import"
	tradeapp "github.com/erp/backoffice/internal/application/trade"
	"github.com/erp/backoffice/internal/infrastructure/cache"
	"github.com/erp/backoffice/internal/infrastructure/config"
	csvimport "github.com/erp/backoffice/internal/infrastructure/import"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/migration"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/scheduler"
	"github.com/erp/backoffice/internal/infrastructure/storage"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting back office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
	)

	ctx := context.Background()

	otelProviders, err := telemetry.Start(ctx, telemetry.Settings{
		ServiceName:     cfg.Telemetry.ServiceName,
		Endpoint:        cfg.Telemetry.CollectorEndpoint,
		Insecure:        cfg.Telemetry.Insecure,
		Traces:          cfg.Telemetry.Enabled,
		SamplingRatio:   cfg.Telemetry.SamplingRatio,
		Metrics:         cfg.Telemetry.MetricsEnabled,
		MetricsInterval: cfg.Telemetry.MetricsInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	metrics, err := telemetry.NewReceivingMetrics(otelProviders.Meter("backoffice/receiving"))
	if err != nil {
		log.Fatal("Failed to register receiving metrics", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	dbSystem := "sqlite"
	if cfg.Database.Driver == config.DriverPostgres {
		dbSystem = "postgresql"
	}
	dbTracing := telemetry.DefaultDBTracingConfig(dbSystem)
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if err := migrateSchema(ctx, db, cfg, log); err != nil {
		log.Fatal("Failed to prepare schema", zap.Error(err))
	}

	keyStore := persistence.NewGormIdempotencyStore(db.DB)
	receiptStore, err := cache.NewIdempotencyStoreFactory(cfg.Idempotency, cfg.Redis,
		cache.WithLogger(log),
		cache.WithDatabaseStore(keyStore),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() { _ = receiptStore.Close() }()

	var purger *scheduler.KeyPurger
	if cfg.Idempotency.Backend == config.IdempotencyBackendDatabase && cfg.Idempotency.PurgeInterval > 0 {
		purger, err = scheduler.NewKeyPurger(scheduler.KeyPurgerConfig{Interval: cfg.Idempotency.PurgeInterval}, keyStore, log)
		if err != nil {
			log.Fatal("Failed to create key purger", zap.Error(err))
		}
		purger.Start(ctx)
	}

	batchRepo := persistence.NewGormExpiryBatchRepository(db.DB)
	recordRepo := persistence.NewGormInventoryRecordRepository(db.DB)
	catalogRepo := persistence.NewGormCatalogRepository(db.DB)
	orderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	ledger := appinv.NewExpiryLedgerService(batchRepo, recordRepo, catalogRepo, txScope, log)
	reconciler := appinv.NewReconciler(txScope, log)
	reconciler.SetIdempotencyStore(receiptStore, cfg.Idempotency.TTL)
	reconciler.SetMetrics(metrics)

	orderService := tradeapp.NewPurchaseOrderService(orderRepo, ledger, reconciler, log)
	orderService.SetMetrics(metrics)

	importService := importapp.NewBatchImportService(
		importapp.NewBatchImportValidator(catalogRepo, batchRepo, recordRepo, log),
		ledger, txScope, cfg.Import.MaxRows, log,
	)
	importService.SetMetrics(metrics)

	engine, err := router.NewEngine(router.EngineConfig{
		Env:       cfg.App.Env,
		HTTP:      cfg.HTTP,
		Telemetry: cfg.Telemetry,
		Logger:    log,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	importHandler := handler.NewBatchImportHandler(importService, cfg.Import.MaxUploadBytes)
	if cfg.Storage.Enabled {
		objects, err := storage.NewS3Store(&cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to create object storage", zap.Error(err))
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare import archive bucket", zap.Error(err))
		}
		importHandler.SetArchive(storage.NewImportArchive(objects, cfg.Storage.Prefix))
		log.Info("Import archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	router.NewRouter(engine).Register(
		handler.NewHealthHandler(cfg.App.Name, db),
		handler.NewPurchaseOrderHandler(orderService,
			csvimport.NewPurchaseOrderItemTemplate(cfg.Import.MaxRows), cfg.Import.MaxUploadBytes),
		handler.NewExpiryBatchHandler(ledger),
		importHandler,
	).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if purger != nil {
		if err := purger.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop key purger", zap.Error(err))
		}
	}
	if err := otelProviders.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateSchema prepares the schema: GORM AutoMigrate for throwaway databases
// when database.auto_migrate is set, the embedded SQL migrations otherwise.
func migrateSchema(ctx context.Context, db *persistence.Database, cfg *config.Config, log *zap.Logger) error {
	if cfg.Database.AutoMigrate {
		log.Info("Auto-migrating schema from models")
		return db.AutoMigrate(ctx)
	}

	dialect, err := migration.DialectFor(cfg.Database.Driver)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	// Not closed: the sqlite3 driver would close the shared pool with it.
	m, err := migration.New(sqlDB, dialect, log)
	if err != nil {
		return err
	}
	return m.Up()
}
