package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	echoapi "github.com/credlink/tokenvault/api/echo"
	"github.com/credlink/tokenvault/cache"
	rediscache "github.com/credlink/tokenvault/cache/redis"
	"github.com/credlink/tokenvault/config"
	"github.com/credlink/tokenvault/domain"
	"github.com/credlink/tokenvault/internal/federation"
	"github.com/credlink/tokenvault/internal/scheduler"
	"github.com/credlink/tokenvault/log"
	"github.com/credlink/tokenvault/mongodb"
	"github.com/credlink/tokenvault/services"
	"github.com/credlink/tokenvault/tracing"
)

const recordCacheTTL = time.Minute

var (
	appLogger      log.Logger
	tracerProvider *sdktrace.TracerProvider
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	appLogger = log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting tokenvault server...", map[string]interface{}{
		"http_port":     cfg.HTTPPort,
		"mongo_db_name": cfg.MongoDBName,
		"log_level":     cfg.LogLevel,
		"providers":     len(cfg.Providers),
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
	}
	tracerProvider = tp

	if initErr := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); initErr != nil {
		appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", initErr)
	}
	db := mongodb.GetDB()

	mongoTokens, err := mongodb.NewTokenRepositoryMongo(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TokenRepository", err)
	}
	legacyRepo := mongodb.NewLegacyIdentityRepositoryMongo(db)

	var tokenRepo domain.TokenRepository = mongoTokens
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		recordCache := rediscache.NewRecordCache(redisClient, "tokenvault", recordCacheTTL)
		tokenRepo = cache.NewCachingTokenRepository(mongoTokens, recordCache, appLogger)
		appLogger.Info(ctx, "Redis record cache enabled", map[string]interface{}{"addr": cfg.RedisAddr})
	} else {
		memCache := cache.NewMemoryRecordCache(recordCacheTTL)
		tokenRepo = cache.NewCachingTokenRepository(mongoTokens, memCache, appLogger)
	}

	registry := federation.NewRegistry(cfg)
	defer registry.Stop()

	engine := services.NewTokenLifecycleService(tokenRepo, legacyRepo, registry, cfg, appLogger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	echoapi.NewVaultAPI(engine, registry, cfg, cfg.RedirectBaseURL).RegisterRoutes(e)

	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{"port": cfg.HTTPPort})
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(ctx, "Failed to start HTTP server", err)
		}
	}()

	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	refresher := scheduler.NewRefresher(
		engine,
		time.Duration(cfg.RefreshIntervalMin)*time.Minute,
		cfg.RefreshSkipFailed,
		appLogger,
	)
	go refresher.Run(schedulerCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})

	stopScheduler()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
	}
	mongodb.CloseMongoDB(shutdownCtx)

	appLogger.Info(shutdownCtx, "Server gracefully stopped.")
}
