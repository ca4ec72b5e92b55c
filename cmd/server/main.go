package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/client"
	"storefront/internal/pricing"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/watch"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront")

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	policy, err := pricing.ParsePolicy(cfg.Checkout.TaxRate, cfg.Checkout.ShippingFee, cfg.Checkout.FreeShippingOver)
	if err != nil {
		log.Fatalf("Invalid pricing configuration: %v", err)
	}

	backend, err := store.OpenBackend(cfg.Storage.Driver, store.BackendOptions{
		DatabaseURL:   cfg.Database.URL,
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	kv := store.NewStore(backend, cfg.Storage.Prefix)
	defer kv.Close()
	logger.Info("Storage ready", zap.String("driver", cfg.Storage.Driver), zap.String("prefix", cfg.Storage.Prefix))

	authClient := client.NewAuthClient(cfg.Upstream.AuthURL, cfg.Upstream.Timeout)
	catalogClient := client.NewCatalogClient(cfg.Upstream.CatalogURL, cfg.Upstream.Timeout)
	usersClient := client.NewUsersClient(cfg.Upstream.AuthURL, cfg.Upstream.Timeout)
	orderClient := client.NewOrderClient(cfg.Upstream.OrderURL, cfg.Upstream.Timeout)

	poller := watch.NewPoller(kv, cfg.Sync.PollInterval)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var publisher service.EventPublisher
	var syncWorker *worker.SyncWorker
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, replicaGroup(cfg.Kafka.ConsumerGroup))
		syncWorker = worker.NewSyncWorker(consumer, poller)
		go func() {
			if err := syncWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Sync worker error: %v", err)
			}
		}()
	} else {
		publisher = broker.NewLocalPublisher(worker.NewRefreshHandler(poller))
		log.Println("Kafka disabled, events delivered in process")
	}

	go poller.Run(workerCtx)

	orders := service.NewOrderBook(kv, publisher)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	handler := api.NewHandler(api.Deps{
		Store:    kv,
		AuthAPI:  authClient,
		Policy:   policy,
		Checkout: service.NewCheckoutService(orderClient, orders, kv, publisher, cfg.Checkout.OnBackendFailure),
		Orders:   orders,
		Catalog:  service.NewCatalogService(catalogClient, kv, publisher),
		Users:    service.NewUserAdminService(usersClient),
		Poller:   poller,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:     router,
		BaseContext: func(net.Listener) context.Context { return workerCtx },
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// stop streams and the poller before the server waits on open connections
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if syncWorker != nil {
		syncWorker.Stop()
	}

	log.Println("Server exited")
}

// replicaGroup gives each replica its own consumer group so every replica
// receives every notification
func replicaGroup(base string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return base
	}
	return base + "-" + host
}
