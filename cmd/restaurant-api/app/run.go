package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/lavanya11112/SEPROJECT/configs"
	"github.com/lavanya11112/SEPROJECT/internal/adapter/cache"
	"github.com/lavanya11112/SEPROJECT/internal/adapter/gateway"
	"github.com/lavanya11112/SEPROJECT/internal/adapter/http"
	"github.com/lavanya11112/SEPROJECT/internal/adapter/http/middleware"
	"github.com/lavanya11112/SEPROJECT/internal/adapter/kafka"
	"github.com/lavanya11112/SEPROJECT/internal/adapter/queue"
	"github.com/lavanya11112/SEPROJECT/internal/adapter/repo"
	"github.com/lavanya11112/SEPROJECT/internal/logging"
	"github.com/lavanya11112/SEPROJECT/internal/security"
	"github.com/lavanya11112/SEPROJECT/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Router *gin.Engine
}

// InitWithConfig connects every backing service, starts the background
// workers under ctx and returns the HTTP router. cleanup stops the workers
// and closes connections in reverse order.
func InitWithConfig(ctx context.Context, cfg configs.Config) (*App, func(), error) {
	log := logging.New("app")
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// init database
	db, err := openMySQL(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() { _ = db.Close() })
	log.Info("restaurant-api: Starting up...")

	// init redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	closers = append(closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fail(fmt.Errorf("redis ping: %w", err))
	}

	// init rabbitmq: one channel publishes, one consumes
	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		return fail(fmt.Errorf("rabbitmq dial: %w", err))
	}
	closers = append(closers, func() { _ = conn.Close() })
	pubCh, err := conn.Channel()
	if err != nil {
		return fail(fmt.Errorf("rabbitmq channel: %w", err))
	}
	subCh, err := conn.Channel()
	if err != nil {
		return fail(fmt.Errorf("rabbitmq channel: %w", err))
	}
	publisher, err := queue.NewRabbitPublisher(pubCh, cfg.Rabbit.Exchange,
		queue.Binding{Queue: cfg.Rabbit.StatusQueue, RoutingKey: usecase.ChannelPaymentStatusChanged})
	if err != nil {
		return fail(err)
	}

	signer, err := security.NewSigner(cfg.Gateway.WebhookSecret)
	if err != nil {
		return fail(err)
	}
	rules, err := cfg.PricingRules()
	if err != nil {
		return fail(err)
	}

	// infra
	cartRepo := repo.NewMySQLCartRepo(db)
	menuRepo := repo.NewMySQLMenuRepo(db)
	orderRepo := repo.NewMySQLOrderRepo(db)
	paymentRepo := repo.NewMySQLPaymentRepo(db)
	outboxRepo := repo.NewMySQLOutboxRepo(db)
	idem := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL, "idemp")
	ledger := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.LedgerTTL, "ledger")
	statusCache := cache.NewRedisPaymentStatusCache(rdb, cfg.Redis.StatusTTL)
	gw := gateway.NewClient(gateway.Options{
		BaseURL:   cfg.Gateway.BaseURL,
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
		Timeout:   cfg.Gateway.Timeout,
	})

	// use cases
	sessions := usecase.NewCartSessions(cartRepo, menuRepo, cfg.Checkout.CartTTL)
	checkout := usecase.NewCheckout(orderRepo, idem, rules)
	payments := usecase.NewPayments(gw, paymentRepo, orderRepo, statusCache, usecase.PaymentsConfig{
		Currency: cfg.Checkout.Currency,
		KeyID:    cfg.Gateway.KeyID,
	})
	webhook := usecase.NewPaymentWebhook(paymentRepo, orderRepo, gw, ledger, statusCache, publisher)
	fulfillment := usecase.NewFulfillment(orderRepo)
	projector := usecase.NewPaymentStatusProjector(statusCache)

	// background workers
	wctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	closers = append(closers, func() {
		cancel()
		wg.Wait()
	})

	router := setupQueue(subCh, cfg, projector)
	if err := router.Start(wctx); err != nil {
		return fail(fmt.Errorf("start queue router: %w", err))
	}
	closers = append(closers, router.Stop)

	relay := queue.NewOutboxRelay(outboxRepo, publisher, queue.RelayOptions{
		Interval:   cfg.Outbox.Interval,
		BatchSize:  cfg.Outbox.BatchSize,
		MaxRetries: cfg.Outbox.MaxRetries,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		relay.Run(wctx)
	}()

	group, err := setupKafkaListener(wctx, &wg, cfg, fulfillment)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() { _ = group.Close() })

	// init handlers + routers + middleware
	timeout := cfg.HTTP.RequestTimeout
	handlers := http.Handlers{
		Cart:     http.NewCartHandler(sessions, timeout),
		Checkout: http.NewCheckoutHandler(checkout, sessions, timeout),
		Payment:  http.NewPaymentHandler(payments, cfg.Gateway.Timeout+timeout),
		Webhook:  http.NewWebhookHandler(webhook, cfg.Gateway.Timeout+timeout),
	}
	auth := middleware.NewAuthz(middleware.AuthzConfig{
		JWTSecret: cfg.Security.JWTSecret,
		Issuer:    cfg.Security.Issuer,
		Audience:  cfg.Security.Audience,
	})
	engine := http.NewRouter(handlers, auth, middleware.NewWebhookSignature(signer), http.RouterOptions{
		AllowOrigins: cfg.CORS.AllowOrigins,
		Logger:       logging.New("http"),
	})

	return &App{Router: engine}, cleanup, nil
}

func openMySQL(ctx context.Context, cfg configs.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, err
	}
	lifetime := cfg.MySQL.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 30 * time.Minute
	}
	db.SetConnMaxLifetime(lifetime)
	if cfg.MySQL.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	}
	if cfg.MySQL.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	}

	pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}

func setupQueue(ch *amqp.Channel, cfg configs.Config, projector *usecase.PaymentStatusProjector) *queue.Router {
	router := queue.NewRouter(ch, queue.WithPrefetch(cfg.Rabbit.Prefetch), queue.WithLogger(logging.New("rmq-router")))
	router.Register(cfg.Rabbit.StatusQueue, queue.NewPaymentStatusHandler(projector))
	return router
}

func setupKafkaListener(ctx context.Context, wg *sync.WaitGroup, cfg configs.Config, uc *usecase.Fulfillment) (sarama.ConsumerGroup, error) {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Version)
	if err != nil {
		return nil, fmt.Errorf("kafka group: %w", err)
	}

	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.FulfillmentTopic}, kafka.NewFulfillmentHandler(uc))

	// Run in background; ends with ctx
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.New("kafka-consumer").Error("fulfillment consumer stopped", "err", err)
		}
	}()
	return grp, nil
}
