package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hellOoSaksit/PixelShop/internal/cart"
	"github.com/hellOoSaksit/PixelShop/internal/checkout"
	"github.com/hellOoSaksit/PixelShop/internal/config"
	"github.com/hellOoSaksit/PixelShop/internal/events"
	"github.com/hellOoSaksit/PixelShop/internal/gateway"
	h "github.com/hellOoSaksit/PixelShop/internal/http"
	"github.com/hellOoSaksit/PixelShop/internal/repository"
	"github.com/hellOoSaksit/PixelShop/internal/storage"
	"github.com/hellOoSaksit/PixelShop/internal/telemetry"
	"github.com/hellOoSaksit/PixelShop/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	ctx := context.Background()

	tp, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, cfg.Version)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize tracer provider")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Error("tracer provider shutdown failed")
		}
	}()

	cartStorage, closeStorage, err := openCartStorage(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open cart storage")
	}
	defer closeStorage()

	opts := []checkout.Option{checkout.WithLogger(log), checkout.WithIdleTTL(cfg.IdleTTL)}

	if cfg.JournalDriver != config.JournalNone {
		repo, err := repository.NewRepository(cfg.JournalDriver, cfg.JournalDSN)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to checkout journal")
		}
		defer repo.Close()

		if err := repo.RunMigrations(); err != nil {
			log.WithError(err).Fatal("failed to run migrations")
		}
		log.WithField("driver", cfg.JournalDriver).Info("checkout journal ready")
		opts = append(opts, checkout.WithJournal(repo))
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers...))
		defer publisher.Close()
		opts = append(opts, checkout.WithPublisher(publisher))
		log.WithField("brokers", cfg.KafkaBrokers).Info("publishing checkout events")
	}

	api := gateway.NewClient(cfg.APIURL, cfg.RequestTimeout, log)
	carts := cart.NewRegistry(cartStorage, log, cart.WithIdleTTL(cfg.IdleTTL), cart.WithLoadTimeout(cfg.RequestTimeout))
	manager := checkout.NewManager(api, opts...)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	go carts.Run(workerCtx, cfg.SweepInterval)
	go manager.Run(workerCtx, cfg.SweepInterval)

	if len(cfg.KafkaBrokers) > 0 {
		reader := events.NewKafkaReader(consumerGroupID(), cfg.KafkaBrokers...)
		consumer := events.NewCartInvalidationConsumer(reader, carts, log)
		defer consumer.Close()
		go consumer.Run(workerCtx)
	}

	router := h.NewRouter(
		h.RouterConfig{
			RequestTimeout:     cfg.RequestTimeout,
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		},
		h.NewCartHandler(carts, api, cfg.RequestTimeout, cfg.HydrateConcurrency, log),
		h.NewCheckoutHandler(carts, manager, cfg.RequestTimeout, log),
		log,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	stopWorkers()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("server exited")
}

// consumerGroupID is unique per replica so every replica sees every checkout event.
func consumerGroupID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = uuid.NewString()
	}
	return "storefront-" + host
}

func openCartStorage(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (storage.Storage, func(), error) {
	switch cfg.CartStorage {
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		log.WithField("addr", cfg.RedisAddr).Info("redis ping succeeded")
		return storage.NewRedisStorage(client, cfg.CartTTL), func() { _ = client.Close() }, nil

	case config.StorageMongo:
		client, db, err := storage.ConnectMongo(ctx, storage.MongoConfig{
			URI:                    cfg.MongoURI,
			Database:               cfg.MongoDBName,
			MaxPoolSize:            cfg.MongoPool.MaxSize,
			MinPoolSize:            cfg.MongoPool.MinSize,
			ConnectTimeout:         cfg.MongoPool.ConnectTimeout,
			ServerSelectionTimeout: cfg.MongoPool.ServerSelectionTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		s := storage.NewMongoStorage(db)
		if err := s.CreateIndexes(ctx); err != nil {
			log.WithError(err).Warn("failed to create cart indexes")
		}
		log.WithField("database", cfg.MongoDBName).Info("connected to MongoDB")
		return s, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		log.Info("using in-memory cart storage")
		return storage.NewMemoryStorage(), func() {}, nil
	}
}
