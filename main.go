package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"grimoire/config"
	"grimoire/handlers"
	"grimoire/middleware"
	"grimoire/models"
	"grimoire/routes"
	"grimoire/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	gin.SetMode(cfg.GinMode)

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Game{},
		&models.Quest{},
		&models.Hint{},
	); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	var cache services.StatsCache
	if redisClient := config.InitRedis(cfg); redisClient != nil {
		defer redisClient.Close()
		cache = services.NewRedisStatsCache(redisClient, cfg.Redis.StatsTTL, logger)
		logger.Info("stats cache enabled", zap.String("redis", cfg.Redis.Addr()))
	}

	statsService := services.NewStatsService(db, cache, logger)
	authService := services.NewAuthService(db, cfg.JWTSecret, cfg.JWTTTL, logger)
	gameService := services.NewGameService(db, statsService, logger)
	questService := services.NewQuestService(db, statsService, logger)
	hintService := services.NewHintService(db, statsService, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := services.NewHub(gameService, questService, authService, services.StubHintGenerator{}, services.StubAnalyzer{}, logger)
	go hub.Run(ctx)

	authHandler := handlers.NewAuthHandler(authService)
	gameHandler := handlers.NewGameHandler(gameService, statsService, hub)
	questHandler := handlers.NewQuestHandler(questService)
	hintHandler := handlers.NewHintHandler(hintService, statsService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	routes.SetupRoutes(router, authHandler, gameHandler, questHandler, hintHandler, hub, authService, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}
