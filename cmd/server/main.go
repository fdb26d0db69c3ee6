package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/assetverse/asset-system/internal/api"
	"github.com/assetverse/asset-system/internal/core/service"
	"github.com/assetverse/asset-system/internal/infrastructure/config"
	mongodb "github.com/assetverse/asset-system/internal/infrastructure/db/mongo"
	redisdb "github.com/assetverse/asset-system/internal/infrastructure/db/redis"
	"github.com/assetverse/asset-system/internal/infrastructure/queue"
	"github.com/assetverse/asset-system/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- MongoDB ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := ensureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	// --- Redis (optional: listing cache runs without it) ---
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, catalog cache disabled")
		rdb = nil
	}

	// --- Notification pipeline (optional) ---
	var notifier service.DecisionNotifier
	if cfg.AMQP.URL != "" {
		publisher, err := queue.NewAMQPPublisher(cfg.AMQP.URL, log)
		if err != nil {
			log.Warn().Err(err).Msg("amqp unavailable, decision notifications disabled")
		} else {
			dispatcher := queue.NewDispatcher(cfg.AMQP.Workers, publisher, log)
			dispatcher.Start(ctx)
			notifier = dispatcher
		}
	}

	e := api.NewRouter(db, rdb, notifier, cfg.JWTSecret, log)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := mongodb.NewUserRepository(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := mongodb.NewAssetRepository(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	return mongodb.NewRequestRepository(db).EnsureIndexes(ctx)
}
