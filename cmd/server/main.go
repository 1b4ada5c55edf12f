package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/application/stock"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockledger"
	"github.com/wms/backend/internal/domain/stockrequest"
	"github.com/wms/backend/internal/infrastructure/cache"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/event"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"github.com/wms/backend/internal/interfaces/http/handler"
	"github.com/wms/backend/internal/interfaces/http/middleware"
	"github.com/wms/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

// gateAdapter narrows the infrastructure gate to the application interface
type gateAdapter struct {
	gate *event.Gate
}

func (a gateAdapter) Begin(ctx context.Context, key string) (stock.DedupTicket, error) {
	return a.gate.Begin(ctx, key)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting WMS backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Redis backs the dedup store, the stock key mutex and the request
	// notifier. Outside production a missing Redis falls back to the
	// in-process implementations so the service still comes up.
	var (
		redisClient *redis.Client
		dedupStore  shared.IdempotencyStore
		stockMutex  shared.KeyedMutex
		notifier    stockrequest.Notifier
	)
	redisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	err = redisClient.Ping(pingCtx).Err()
	cancelPing()
	if err != nil {
		if cfg.App.Env == "production" {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Warn("Redis unreachable, using in-process fallbacks", zap.Error(err))
		_ = redisClient.Close()
		redisClient = nil
		dedupStore = cache.NewInMemoryDedupStore()
		stockMutex = cache.NewInMemoryKeyedMutex()
		notifier = stockrequest.NopNotifier{}
	} else {
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		dedupStore = cache.NewRedisDedupStore(redisClient)
		stockMutex = cache.NewRedisKeyedMutex(redisClient)
		notifier = cache.NewRedisRequestNotifier(redisClient, log)
	}
	defer func() {
		_ = dedupStore.Close()
		_ = notifier.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	// Event plumbing: serializer, in-process bus, transactional outbox
	serializer := event.NewSerializer()
	event.RegisterDomainEvents(serializer)
	bus := event.NewInMemoryEventBus(log)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	publisher := event.NewOutboxPublisher(serializer)

	gate := event.NewGate(dedupStore, shared.DedupConfig{
		Enabled: cfg.Dedup.Enabled,
		TTL:     cfg.Dedup.TTL,
	}, log)

	// Repositories and domain services
	requestRepo := persistence.NewGormStockRequestRepository(db.DB, publisher)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	resolver := stockledger.NewResolver(ledgerRepo)

	requestService := stock.NewRequestService(requestRepo, notifier, log)
	shipmentService := stock.NewShipmentService(ledgerRepo, stockMutex, cfg.StockLock.Wait, cfg.StockLock.Lease, log)

	// Transition handlers
	gateway := gateAdapter{gate: gate}
	bus.Subscribe(stock.NewIncomingAcceptHandler(requestRepo, ledgerRepo, gateway, log))
	bus.Subscribe(stock.NewMovingReserveHandler(requestRepo, ledgerRepo, resolver, warehouseRepo, gateway, log))
	bus.Subscribe(stock.NewTransferCompletedHandler(requestRepo, ledgerRepo, resolver, warehouseRepo, gateway, log))
	bus.Subscribe(stock.NewMovingCancelHandler(requestRepo, ledgerRepo, resolver, warehouseRepo, gateway, log))
	bus.Subscribe(stock.NewOrderEditedHandler(requestRepo, stock.NopOrderReader{}, notifier, gateway, log))

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	if err := bus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	processorCfg := event.DefaultProcessorConfig()
	processorCfg.BatchSize = cfg.Event.BatchSize
	processorCfg.PollInterval = cfg.Event.PollInterval
	processorCfg.CleanupEnabled = cfg.Event.CleanupEnabled
	processorCfg.CleanupRetention = cfg.Event.CleanupRetention
	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, processorCfg, log)
	if cfg.Event.ProcessorEnabled {
		if err := processor.Start(rootCtx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorCfg.BatchSize),
			zap.Duration("poll_interval", processorCfg.PollInterval),
		)
	}

	// HTTP surface
	engine := router.NewEngine(log, middleware.DefaultCORSConfig())
	handler.NewSystemHandler(db, version).RegisterRoot(engine)

	router.NewRouter(engine).
		Register(handler.NewStockRequestHandler(requestService)).
		Register(handler.NewStockTotalHandler(ledgerRepo, shipmentService)).
		Register(handler.NewWarehouseHandler(warehouseRepo)).
		Register(handler.NewOutboxHandler(outboxRepo)).
		Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if cfg.Event.ProcessorEnabled {
		if err := processor.Stop(ctx); err != nil {
			log.Error("Outbox processor stop failed", zap.Error(err))
		}
	}
	if err := bus.Stop(ctx); err != nil {
		log.Error("Event bus stop failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
