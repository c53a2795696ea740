package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/planning-data/entity-search/internal/config"
	httpDelivery "github.com/planning-data/entity-search/internal/delivery/http"
	"github.com/planning-data/entity-search/internal/delivery/http/handler"
	"github.com/planning-data/entity-search/internal/pkg/logger"
	"github.com/planning-data/entity-search/internal/repository/cache"
	"github.com/planning-data/entity-search/internal/repository/postgres"
	"github.com/planning-data/entity-search/internal/usecase"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Planning Entity Search")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
	)

	// 3. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	// 4. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// 5. Health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Health(ctx); err != nil {
		log.Fatal("PostgreSQL health check failed", zap.Error(err))
	}
	if err := redisClient.Health(ctx); err != nil {
		log.Fatal("Redis health check failed", zap.Error(err))
	}

	log.Info("All connections healthy")

	// 6. Initialize repositories
	entityRepo := postgres.NewEntityRepository(db)
	datasetRepo := postgres.NewDatasetRepository(db, cfg.Cache.DatasetTTL)
	redirectRepo := postgres.NewRedirectRepository(db)
	cacheRepo := cache.NewCacheRepository(redisClient)

	log.Info("Repositories initialized")

	// 7. Initialize use cases
	searchUC := usecase.NewSearchUseCase(
		entityRepo,
		datasetRepo,
		cacheRepo,
		log,
		cfg.Cache.SearchTTL,
		cfg.Search,
	)
	entityUC := usecase.NewEntityUseCase(entityRepo, redirectRepo, log)
	datasetUC := usecase.NewDatasetUseCase(datasetRepo, log)

	log.Info("Use cases initialized")

	// 8. Initialize HTTP handlers and server
	entityHandler := handler.NewEntityHandler(searchUC, entityUC, log)
	datasetHandler := handler.NewDatasetHandler(datasetUC, log)

	server := httpDelivery.NewServer(
		cfg,
		log,
		entityHandler,
		datasetHandler,
		map[string]httpDelivery.HealthChecker{
			"database": db,
			"redis":    redisClient,
		},
	)

	// 9. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
