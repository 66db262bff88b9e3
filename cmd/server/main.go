package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"order-pipeline/internal/catalog"
	"order-pipeline/internal/config"
	"order-pipeline/internal/controller"
	"order-pipeline/internal/idempotency"
	"order-pipeline/internal/logger"
	"order-pipeline/internal/metrics"
	"order-pipeline/internal/middleware"
	"order-pipeline/internal/rabbit"
	"order-pipeline/internal/repository"
	"order-pipeline/internal/service"
	"order-pipeline/internal/telemetry"
)

type stores struct {
	carts    service.CartRepository
	orders   service.OrderRepository
	tracking service.TrackingRepository
	close    func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "order-pipeline"}).Error(context.Background(), "loading config", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: cfg.ServiceName,
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})
	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "server stopped", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn(context.Background(), "shutting down tracer", err)
		}
	}()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			log.Warn(context.Background(), "closing store", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollectors(registry)

	var publisher service.EventPublisher
	var broker *rabbit.Broker
	if cfg.EventsEnabled() {
		broker, err = rabbit.Dial(cfg.RabbitURL)
		if err != nil {
			return err
		}
		defer broker.Close()
		publisher = broker.Publisher()
		log.Info(ctx, "publishing domain events to rabbitmq")
	}

	catalogClient := catalog.NewClient(cfg.CatalogURL, cfg.CatalogTimeout)
	cartService := service.NewCartService(st.carts, catalogClient, log, m)
	orderService := service.NewOrderService(st.carts, st.orders, publisher, log, m)
	deliveryService := service.NewDeliveryService(st.tracking, publisher, log, m, cfg.StageAdvanceAttempts)

	if broker != nil && cfg.AutoStartTracking {
		if err := broker.SetupConsumers(ctx, deliveryService, log); err != nil {
			return err
		}
	}

	var idem idempotency.Store
	switch {
	case cfg.IdempotencyEnabled():
		redisStore, err := idempotency.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		idem = redisStore
	case cfg.StoreDriver == config.StoreMemory:
		idem = idempotency.NewMemoryStore()
	}

	var auth *service.AuthService
	if cfg.AuthEnabled() {
		auth = service.NewAuthService(cfg.AuthJWTSecret)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled() {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(middleware.RequestLogger(log), middleware.Metrics(m))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	controller.Controllers{
		Cart:     controller.NewCartController(cartService),
		Order:    controller.NewOrderController(orderService),
		Delivery: controller.NewDeliveryController(deliveryService),
		Health:   controller.NewHealthController(cfg.ServiceName),
	}.Register(r, auth, middleware.Idempotency(idem, cfg.IdempotencyTTL, log))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Zerolog(ctx).Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("order pipeline listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn(ctx, "using in-memory store; data is lost on restart", nil)
		return &stores{
			carts:    repository.NewMemoryCartRepository(),
			orders:   repository.NewMemoryOrderRepository(),
			tracking: repository.NewMemoryTrackingRepository(),
			close:    func(context.Context) error { return nil },
		}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	db := client.Database(cfg.MongoDBName)
	if err := repository.EnsureIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &stores{
		carts:    repository.NewMongoCartRepository(db),
		orders:   repository.NewMongoOrderRepository(db),
		tracking: repository.NewMongoTrackingRepository(db),
		close:    client.Disconnect,
	}, nil
}
