package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/medfolio/backend/internal/ai"
	"github.com/medfolio/backend/internal/api/handlers"
	"github.com/medfolio/backend/internal/metrics"
	"github.com/medfolio/backend/internal/middleware/ratelimit"
	"github.com/medfolio/backend/internal/middleware/security"
	"github.com/medfolio/backend/internal/middleware/validation"
	"github.com/medfolio/backend/internal/search"
	"github.com/medfolio/backend/internal/search/cache"
	"github.com/medfolio/backend/internal/storage/sqlite"
	"github.com/medfolio/backend/pkg/config"
	appLogger "github.com/medfolio/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Medfolio Search API Server")

	metrics.Init()

	store, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer store.Close()

	err = store.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	// The result cache is constructed here and injected; the engine never
	// owns a cache singleton.
	resultCache := buildResultCache(cfg)

	generator := ai.NewClient(
		cfg.AI.APIKey,
		cfg.AI.Model,
		cfg.AI.Temperature,
		cfg.AI.MaxTokens,
		cfg.AI.TimeoutSec,
	)

	engine := search.NewEngine(store, resultCache, generator, search.Config{
		MinExactMatches: cfg.Search.MinExactMatches,
		MaxResults:      cfg.Search.MaxResults,
		AISliceLimit:    cfg.Search.AISliceLimit,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-User-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 60,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	searchHandler := handlers.NewSearchHandler(engine)
	documentHandler := handlers.NewDocumentHandler(store, engine)

	api := app.Group("/api/v1")

	api.Post("/search", searchHandler.HandleSearch)
	api.Get("/search/cache/stats", searchHandler.CacheStats)

	api.Post("/documents", documentHandler.CreateDocument)
	api.Put("/documents/:id", documentHandler.UpdateDocument)
	api.Delete("/documents/:id", documentHandler.DeleteDocument)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

func buildResultCache(cfg *config.Config) cache.ResultCache {
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	if cfg.Cache.Backend == "redis" {
		redisCache, err := cache.NewRedis(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Cache.MaxEntries,
			ttl,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Redis cache", zap.Error(err))
		}
		return redisCache
	}

	return cache.NewMemory(cfg.Cache.MaxEntries, ttl)
}
