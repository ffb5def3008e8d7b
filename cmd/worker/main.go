package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	bomapp "github.com/storebridge/backend/internal/application/bom"
	appsync "github.com/storebridge/backend/internal/application/sync"
	domain "github.com/storebridge/backend/internal/domain/sync"
	"github.com/storebridge/backend/internal/infrastructure/cache"
	"github.com/storebridge/backend/internal/infrastructure/config"
	"github.com/storebridge/backend/internal/infrastructure/event"
	"github.com/storebridge/backend/internal/infrastructure/logger"
	"github.com/storebridge/backend/internal/infrastructure/persistence"
	"github.com/storebridge/backend/internal/infrastructure/platform"
	"github.com/storebridge/backend/internal/infrastructure/scheduler"
	"github.com/storebridge/backend/internal/infrastructure/scoring"
	"github.com/storebridge/backend/internal/infrastructure/search"
	"github.com/storebridge/backend/internal/infrastructure/telemetry"
	"github.com/storebridge/backend/internal/infrastructure/validation"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting StoreBridge worker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	syncMetrics, err := telemetry.NewSyncMetrics(meterProvider.Meter("storebridge-worker"))
	if err != nil {
		log.Fatal("Failed to initialize sync metrics", zap.Error(err))
	}

	// Database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Redis: one client shared by the lock service and the job handles
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	locks := cache.NewRedisLockServiceWithClient(redisClient)
	log.Info("Redis connected")

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	variationRepo := persistence.NewGormVariationRepository(db.DB)
	reviewRepo := persistence.NewGormReviewRepository(db.DB)
	cursorRepo := persistence.NewGormSyncCursorRepository(db.DB)
	bomRepo := persistence.NewGormBOMRepository(db.DB)
	movementRepo := persistence.NewGormStockMovementRepository(db.DB)

	// Remote platform client with per-tenant store credentials
	platformClient := platform.NewClient(cfg.Platform, log)
	for _, store := range cfg.Platform.Stores {
		tenantID, err := uuid.Parse(store.TenantID)
		if err != nil {
			log.Fatal("Invalid tenant ID in platform.stores",
				zap.String("tenant_id", store.TenantID),
			)
		}
		if err := platformClient.SetStoreConfig(tenantID, &platform.StoreConfig{
			BaseURL:        store.BaseURL,
			ConsumerKey:    store.ConsumerKey,
			ConsumerSecret: store.ConsumerSecret,
		}); err != nil {
			log.Fatal("Invalid store configuration",
				zap.String("tenant_id", store.TenantID),
				zap.Error(err),
			)
		}
	}
	log.Info("Platform stores configured", zap.Int("stores", len(cfg.Platform.Stores)))

	// Shared sync collaborators
	validator := validation.NewSchemaValidator()
	scores := scoring.NewCalculator()
	embeddings := search.NewNoopEmbeddingGenerator()

	var searchIndex domain.SearchIndex
	if cfg.Search.Endpoint != "" {
		searchIndex = search.NewHTTPSearchIndex(cfg.Search, log)
		log.Info("Search index enabled", zap.String("endpoint", cfg.Search.Endpoint))
	} else {
		searchIndex = search.NewNoopSearchIndex()
	}

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Stock consumption reacts to order sync events
	consumption := bomapp.NewConsumptionService(
		bomRepo,
		movementRepo,
		productRepo,
		variationRepo,
		platformClient,
		locks,
		bomapp.ConsumptionConfig{
			DedupTTL: cfg.BOM.DedupTTL,
			LockTTL:  cfg.BOM.LockTTL,
		},
		log,
	)
	eventBus.Subscribe(consumption)
	log.Info("Consumption engine subscribed", zap.Strings("event_types", consumption.EventTypes()))

	// Entity sync engines
	engineCfg := appsync.EngineConfig{
		PageSize:             cfg.Sync.PageSize,
		ChunkSize:            cfg.Sync.ChunkSize,
		RecentOrderWindow:    cfg.Sync.RecentOrderWindow,
		VariationConcurrency: cfg.Sync.VariationConcurrency,
		MatchLookback:        cfg.Sync.MatchLookback,
	}

	aggregates := appsync.NewCustomerAggregateService(customerRepo, locks, log)

	orderProcessor := appsync.NewOrderEngine(
		orderRepo, customerRepo, validator, searchIndex, eventBus, aggregates, engineCfg, log,
	)
	productProcessor := appsync.NewProductEngine(
		productRepo, variationRepo, validator, searchIndex, scores, embeddings, platformClient, engineCfg, log,
	)
	reviewProcessor := appsync.NewReviewEngine(
		reviewRepo, orderRepo, customerRepo, validator, engineCfg, log,
	)

	engines := map[domain.EntityType]scheduler.Executor{
		domain.EntityTypeOrders:   appsync.NewEngine(orderProcessor, platformClient, cursorRepo, engineCfg, log),
		domain.EntityTypeProducts: appsync.NewEngine(productProcessor, platformClient, cursorRepo, engineCfg, log),
		domain.EntityTypeReviews:  appsync.NewEngine(reviewProcessor, platformClient, cursorRepo, engineCfg, log),
	}

	// Scheduler and periodic trigger
	sched, err := scheduler.NewSyncScheduler(
		scheduler.Config{
			PoolSize:   cfg.Worker.PoolSize,
			QueueSize:  scheduler.DefaultConfig().QueueSize,
			JobTimeout: cfg.Worker.JobTimeout,
		},
		engines,
		locks,
		scheduler.NewRedisHandleFactory(redisClient),
		log,
	)
	if err != nil {
		log.Fatal("Failed to create sync scheduler", zap.Error(err))
	}
	sched.SetMetrics(syncMetrics)

	if err := sched.Start(ctx); err != nil {
		log.Fatal("Failed to start sync scheduler", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sched.Stop(stopCtx); err != nil {
			log.Error("Error stopping sync scheduler", zap.Error(err))
		}
	}()

	trigger := scheduler.NewPeriodicTrigger(
		scheduler.DefaultTriggerConfig(),
		sched,
		platformClient,
		log,
	)
	if err := trigger.Start(ctx); err != nil {
		log.Fatal("Failed to start sync trigger", zap.Error(err))
	}
	defer trigger.Stop()

	// Maintenance sweeper retries deferred customer count recomputes
	sweeper := appsync.NewMaintenanceSweeper(aggregates, locks, cfg.Sync.SweepInterval, log)
	go sweeper.Start(ctx)

	log.Info("StoreBridge worker started")
	<-ctx.Done()
	log.Info("Shutdown signal received")
}
