package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"localcart/internal/config"
	"localcart/internal/db"
	"localcart/internal/eligibility"
	"localcart/internal/events"
	"localcart/internal/httpserver"
	"localcart/internal/locality"
	"localcart/internal/metrics"
	"localcart/internal/reconcile"
	overriderepo "localcart/internal/repository/override"
	anonymoussvc "localcart/internal/service/anonymous"
	cartsvc "localcart/internal/service/cart"
	customersvc "localcart/internal/service/customer"
	productsvc "localcart/internal/service/product"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	stores, err := db.OpenStores(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatalf("open stores: %v", err)
	}
	defer stores.Close()
	logger.Printf("store backend=%s", stores.Backend)

	codes := cfg.LocalPostalCodes
	if len(codes) == 0 {
		codes = locality.DefaultPostalCodes
	}
	area, err := locality.NewArea(codes)
	if err != nil {
		logger.Fatalf("local area: %v", err)
	}
	logger.Printf("local area postal_codes=%d", area.Len())

	var overrides overriderepo.Repository
	redisClient, err := db.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatalf("connect redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		overrides = overriderepo.NewRedis(redisClient, cfg.OverrideTTL, logger)
		logger.Printf("zip overrides in redis ttl=%s", cfg.OverrideTTL)
	} else {
		overrides = overriderepo.NewMemory(cfg.OverrideTTL)
		logger.Printf("zip overrides in memory ttl=%s", cfg.OverrideTTL)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// The reconciler depends on the eligibility service, which publishes the
	// events the reconciler consumes; handle is bound once both exist.
	var reconciler *reconcile.Reconciler
	handle := func(ctx context.Context, evt events.LocalityChanged) error {
		return reconciler.HandleLocalityChanged(ctx, evt)
	}

	var publisher events.Publisher
	var mq *events.RabbitMQ
	if cfg.AMQPURL != "" {
		mq, err = events.DialRabbitMQ(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Fatalf("connect rabbitmq: %v", err)
		}
		defer mq.Close()
		publisher = mq
	} else {
		publisher = events.NewInline(handle, logger)
		logger.Printf("AMQP_URL not set; reconciling carts inline")
	}

	eligibilityService := eligibility.New(locality.NewEvaluator(area), stores.Products, stores.Customers, overrides, publisher, m, logger)
	reconciler = reconcile.New(stores.Carts, eligibilityService, m, logger)

	if mq != nil {
		if err := mq.Consume(ctx, "localcart-api", handle); err != nil {
			logger.Fatalf("consume locality events: %v", err)
		}
	}

	productService := productsvc.New(stores.Products)
	cartService := cartsvc.New(stores.Carts, stores.Products, logger)
	customerService := customersvc.New(stores.Customers, stores.Tokens, publisher, logger)
	anonymousService := anonymoussvc.New(stores.Tokens)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, stores, httpserver.Deps{
		ProductSvc:         productService,
		CartSvc:            cartService,
		CustomerSvc:        customerService,
		AnonymousSvc:       anonymousService,
		EligibilitySvc:     eligibilityService,
		Reconciler:         reconciler,
		Gatherer:           prometheus.DefaultGatherer,
		IPPostalHeader:     cfg.IPPostalHeader,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
