package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/coupon"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/recommend"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New(logging.Config{})
		l.Fatal().Err(err).Msg("load config")
	}

	logger := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "storefront-service",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// carts and suggestions fail per request until Redis is back
		logger.Warn().Err(err).Msg("redis not reachable at startup")
	}

	products := catalog.NewPostgresRepository(pool)
	cat := catalog.NewCachedCatalog(products, cfg.CatalogCacheSize, cfg.CatalogCacheTTL)
	coupons := coupon.NewPostgresRepository(pool)
	orders := order.NewPostgresRepository(pool)
	sessions := session.NewRedisStore(rdb, cfg.SessionTTL)
	recommender := recommend.New(rdb, cat, cfg.AggregateTTL, logger)

	var publisher checkout.Publisher
	if cfg.ConsumeEvents {
		closeEvents := startEvents(ctx, cfg.RabbitMQURL, orders, recommender, &publisher, logger)
		defer closeEvents()
	} else {
		logger.Info().Msg("rabbitmq disabled, orders are not published and co-purchases are not recorded")
	}

	svc := checkout.NewService(cat, coupons, orders, sessions, publisher, logger)
	router := httpapi.NewRouter(
		httpapi.NewCartHandler(cat, products, coupons, sessions, svc, logger),
		httpapi.NewRecommendationHandler(recommender, cfg.SuggestLimit, httpapi.BreakerConfig{
			Failures: cfg.BreakerFailures,
			Timeout:  cfg.BreakerTimeout,
		}, logger),
		httpapi.SessionConfig{CookieName: cfg.SessionCookie, TTL: cfg.SessionTTL},
		logger,
	)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("storefront-service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Fatal().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

// startEvents connects to RabbitMQ, sets the OrderCreated publisher and
// subscribes the payment consumer. The returned func closes all of it.
func startEvents(
	ctx context.Context,
	url string,
	orders *order.PostgresRepository,
	recommender *recommend.Recommender,
	publisher *checkout.Publisher,
	logger zerolog.Logger,
) func() {
	conn, err := events.Dial(url)
	if err != nil {
		logger.Fatal().Err(err).Msg("dial rabbitmq")
	}

	pub, err := events.NewPublisher(conn)
	if err != nil {
		logger.Fatal().Err(err).Msg("create publisher")
	}
	*publisher = pub

	consumer, err := events.NewConsumer(conn, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create consumer")
	}
	handler := events.PaymentSucceededHandler(orders, recommender, logger)
	if err := consumer.Subscribe(ctx, events.PaymentSucceededRoutingKey, handler); err != nil {
		logger.Fatal().Err(err).Msg("subscribe payment events")
	}

	return func() {
		if err := pub.Close(); err != nil {
			logger.Warn().Err(err).Msg("publisher close")
		}
		if err := consumer.Close(); err != nil {
			logger.Warn().Err(err).Msg("consumer close")
		}
		if err := conn.Close(); err != nil {
			logger.Warn().Err(err).Msg("rabbitmq close")
		}
	}
}
