package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appsale "github.com/poscore/backend/internal/application/sale"
	"github.com/poscore/backend/internal/infrastructure/cache"
	"github.com/poscore/backend/internal/infrastructure/config"
	"github.com/poscore/backend/internal/infrastructure/event"
	"github.com/poscore/backend/internal/infrastructure/logger"
	"github.com/poscore/backend/internal/infrastructure/persistence"
	"github.com/poscore/backend/internal/infrastructure/sequence"
	"github.com/poscore/backend/internal/infrastructure/strategy/allocation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting pos core",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database", zap.Error(err))
		}
	}()
	log.Info("database connected")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("error closing redis client", zap.Error(err))
		}
	}()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		// The allocator degrades to the durable counter path on its own,
		// so an unreachable cache is worth a warning, not a refusal to start.
		log.Warn("redis unreachable, sequence allocation will use the durable fallback", zap.Error(err))
	}
	cancelPing()

	// Event bus with out-of-band listeners
	eventBus := event.NewAsyncEventBus(log, 2)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	eventBus.Subscribe(event.NewStockCacheInvalidationHandler(redisClient, log))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Error("error stopping event bus", zap.Error(err))
		}
	}()

	// Sequence allocation: redis fast path over the durable counter table
	counterCache := cache.NewRedisCounterCache(redisClient, "seq:")
	counterRepo := persistence.NewGormCounterRepository(db.DB)
	allocator := sequence.NewAllocator(counterCache, counterRepo, log)

	// Transactional core
	scope := persistence.NewGormTransactionScope(db.DB)
	planners := allocation.NewRegistry()

	// The transport layer is external and embeds these services; the
	// binary owns their lifecycle and the shared infrastructure.
	core := coreServices{
		Coordinator: appsale.NewCoordinator(scope, allocator, planners, eventBus, log, appsale.CoordinatorConfig{
			MaxAttempts:    cfg.Sale.MaxAttempts,
			RetryBaseDelay: cfg.Sale.RetryBaseDelay,
			WriteTimeout:   cfg.Sale.WriteTimeout,
			PadWidth:       cfg.Sequence.PadWidth,
			Period:         cfg.Sequence.Period,
		}),
		Compensator: appsale.NewCompensationEngine(scope, eventBus, log),
	}

	log.Info("core services ready",
		zap.Bool("coordinator", core.Coordinator != nil),
		zap.Bool("compensator", core.Compensator != nil),
		zap.Int("sale_max_attempts", cfg.Sale.MaxAttempts),
		zap.Duration("sale_write_timeout", cfg.Sale.WriteTimeout),
		zap.Int("sequence_pad_width", cfg.Sequence.PadWidth),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
}

// coreServices is the wired transactional core handed to whatever
// transport embeds this process.
type coreServices struct {
	Coordinator *appsale.Coordinator
	Compensator *appsale.CompensationEngine
}
