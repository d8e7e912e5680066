package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/flashbid/flashbid/internal/adapters/api"
	"github.com/flashbid/flashbid/internal/adapters/arbitration"
	"github.com/flashbid/flashbid/internal/adapters/database"
	"github.com/flashbid/flashbid/internal/adapters/events"
	"github.com/flashbid/flashbid/internal/config"
	"github.com/flashbid/flashbid/internal/domain/auction"
	"github.com/flashbid/flashbid/internal/writebehind"
	pkgdb "github.com/flashbid/flashbid/pkg/database"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load environment variables (local overrides .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Unable to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Postgres Connection Pool
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Unable to parse database config", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	// 2. Initialize Redis (arbitration store)
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()

	if pingErr := rdb.Ping(ctx).Err(); pingErr != nil {
		logger.Error("Unable to ping redis", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Redis Connected")

	store, err := arbitration.NewStore(ctx, rdb, cfg.ArbitrationTimeout)
	if err != nil {
		logger.Error("Unable to load arbitration script", "error", err)
		os.Exit(1)
	}

	// 3. RabbitMQ is optional: without a broker the core still runs, it just
	// publishes no events.
	var publisher writebehind.EventPublisher
	if cfg.RabbitURL != "" {
		amqpConn, dialErr := amqp091.Dial(cfg.RabbitURL)
		if dialErr != nil {
			logger.Error("Failed to connect to RabbitMQ", "error", dialErr)
			os.Exit(1)
		}
		defer amqpConn.Close()

		rabbitPublisher, pubErr := events.NewRabbitMQPublisher(amqpConn)
		if pubErr != nil {
			logger.Error("Failed to create RabbitMQ publisher", "error", pubErr)
			os.Exit(1)
		}
		defer rabbitPublisher.Close()
		publisher = rabbitPublisher
		logger.Info("RabbitMQ Connected")
	}

	// 4. Initialize Repositories (Infrastructure Layer)
	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.DBLockTimeout)
	itemRepo := database.NewPostgresItemRepository(pool)
	bidLogRepo := database.NewPostgresBidLogRepository(pool)

	// 5. Write-behind pipeline
	recorder := writebehind.NewRecorder(txManager, itemRepo, bidLogRepo, publisher, logger)
	wbPool := writebehind.NewPool(recorder, cfg.WriteBehindWorkers, cfg.WriteBehindQueueSize, cfg.WriteBehindJobTimeout, logger)

	go func() {
		logger.Info("Starting write-behind workers", "workers", cfg.WriteBehindWorkers)
		if runErr := wbPool.Run(ctx); runErr != nil {
			logger.Error("Write-behind pool stopped", "error", runErr)
		}
	}()

	// 6. Initialize Service (Domain Layer)
	auctionService := auction.NewService(store, wbPool, txManager, itemRepo, bidLogRepo, logger)

	// 7. Initialize API Handler
	handler := api.NewHandler(auctionService, store, logger)

	mux := http.NewServeMux()
	handler.Register(mux)

	// 8. Start Server
	logger.Info("Starting FlashBid API", "addr", cfg.HTTPAddr)

	// Use h2c for HTTP/2 without TLS (common for internal services / local dev)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
