package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/shortlink/internal/config"
	"github.com/SergeiKhy/shortlink/internal/handler"
	"github.com/SergeiKhy/shortlink/internal/logger"
	"github.com/SergeiKhy/shortlink/internal/middleware"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.App.Env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("Server failed", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализация хранилища
	repo, closeRepo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	// Инициализация сервиса
	shortener := service.NewURLShortener(repo, logger)

	// Инициализация middleware
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	defer rateLimiter.Stop()

	var apiKeyMiddleware gin.HandlerFunc
	if len(cfg.Auth.APIKeys) > 0 {
		apiKeyMiddleware = middleware.RequireAPIKey(cfg.Auth.APIKeys)
		logger.Info("API key authentication enabled", zap.Int("keys_count", len(cfg.Auth.APIKeys)))
	} else {
		logger.Warn("API_KEYS is empty, POST /shorten is open")
	}

	// Настройка роутера
	router := handler.NewRouter(shortener, rateLimiter, apiKeyMiddleware, cfg.CORS.AllowOrigins, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting",
			zap.String("port", cfg.App.Port),
			zap.String("storage", cfg.Storage.Backend),
			zap.Bool("cache", cfg.Cache.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	// Graceful Shutdown
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newRepository подключает выбранное хранилище и, если включено, кэш поверх него
func newRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.MappingRepository, func(), error) {
	var (
		repo    repository.MappingRepository
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var redisDB *repository.RedisDB
	connectRedis := func() error {
		if redisDB != nil {
			return nil
		}
		db, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		redisDB = db
		closers = append(closers, func() { _ = db.Close() })
		logger.Info("Connected to Redis")
		return nil
	}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		repo = repository.NewMemoryRepository()
		logger.Warn("Using in-memory storage, mappings are lost on restart")

	case config.BackendPostgres:
		if cfg.DB.Migrate {
			if err := repository.RunMigrations(cfg.DB.DSN()); err != nil {
				return nil, closeAll, err
			}
			logger.Info("Migrations applied")
		}
		db, err := repository.NewPostgresDB(cfg.DB)
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, db.Close)
		logger.Info("Connected to PostgreSQL")
		repo = repository.NewPostgresRepository(db)

	case config.BackendRedis:
		if err := connectRedis(); err != nil {
			return nil, closeAll, err
		}
		repo = repository.NewRedisRepository(redisDB)

	case config.BackendDynamoDB:
		client, err := repository.NewDynamoDBClient(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, closeAll, err
		}
		if cfg.DynamoDB.CreateTable {
			if err := repository.EnsureDynamoDBTable(ctx, client, cfg.DynamoDB.Table); err != nil {
				return nil, closeAll, err
			}
		}
		logger.Info("Using DynamoDB", zap.String("table", cfg.DynamoDB.Table))
		repo = repository.NewDynamoDBRepository(client, cfg.DynamoDB.Table)

	default:
		return nil, closeAll, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Cache.Enabled {
		if err := connectRedis(); err != nil {
			return nil, closeAll, err
		}
		repo = repository.NewCachedRepository(repo, redisDB, cfg.Cache.TTL, logger)
		logger.Info("Read-through cache enabled", zap.Duration("ttl", cfg.Cache.TTL))
	}

	return repo, closeAll, nil
}
