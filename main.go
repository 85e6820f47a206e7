package main

import (
	"context"
	"net"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/auditflow/backend/internal/client"
	"github.com/auditflow/backend/internal/config"
	"github.com/auditflow/backend/internal/db"
	"github.com/auditflow/backend/internal/handler"
	"github.com/auditflow/backend/internal/logger"
	"github.com/auditflow/backend/internal/service"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	database := &db.Postgres{Pool: pool}
	if err := database.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database schema")
	}
	log.Info().Msg("database schema initialized")

	bus := client.NewEventBus(cfg.Redis)
	defer bus.Close()

	authService, err := service.NewAuthService(database, cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid auth configuration")
	}
	apiKeyService := service.NewApiKeyService(database)
	eventService := service.NewEventService(database, bus)
	alertService := service.NewAlertService(database)
	limiter := service.NewRateLimiter(cfg.RateLimit)

	router := gin.Default()
	router.Use(handler.CORSMiddleware(cfg.Server.CORSOriginList()))

	registerRoutes(router, authService, limiter,
		handler.NewAuthHandler(authService),
		handler.NewApiKeyHandler(apiKeyService),
		handler.NewEventHandler(eventService),
		handler.NewAlertHandler(alertService),
		handler.NewStreamHandler(bus),
	)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("starting AuditFlow API")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func registerRoutes(
	router *gin.Engine,
	authService *service.AuthService,
	limiter *service.RateLimiter,
	authHandler *handler.AuthHandler,
	keyHandler *handler.ApiKeyHandler,
	eventHandler *handler.EventHandler,
	alertHandler *handler.AlertHandler,
	streamHandler *handler.StreamHandler,
) {
	router.GET("/health", handler.Health)
	router.GET("/", handler.Root)

	auth := router.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", handler.AuthMiddleware(authService), authHandler.Me)
	}

	keys := router.Group("/api/keys", handler.AuthMiddleware(authService))
	{
		keys.POST("", keyHandler.Create)
		keys.GET("", keyHandler.List)
		keys.GET("/:id", keyHandler.Get)
		keys.DELETE("/:id", keyHandler.Delete)
		keys.POST("/:id/regenerate", keyHandler.Regenerate)
	}

	// Ingestion: rate limit first, then key auth, then business logic.
	router.POST("/api/events",
		handler.RateLimitMiddleware(limiter),
		handler.APIKeyMiddleware(authService),
		eventHandler.Create,
	)

	events := router.Group("/api/events", handler.AuthMiddleware(authService))
	{
		events.GET("", eventHandler.List)
		events.GET("/stats", eventHandler.Stats)
		events.GET("/:id", eventHandler.Get)
	}

	alerts := router.Group("/api/alerts", handler.AuthMiddleware(authService))
	{
		alerts.GET("", alertHandler.List)
		alerts.GET("/stats", alertHandler.Stats)
		alerts.GET("/:id", alertHandler.Get)
		alerts.PATCH("/:id", alertHandler.Update)
		alerts.POST("/:id/acknowledge", alertHandler.Acknowledge)
		alerts.POST("/:id/resolve", alertHandler.Resolve)
	}

	router.GET("/api/stream/info", handler.AuthMiddleware(authService), streamHandler.Info)
}
