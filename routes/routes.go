package routes

import (
	"net/http"

	"grimoire/handlers"
	"grimoire/middleware"
	"grimoire/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS_ORIGINS governs REST only
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	gameHandler *handlers.GameHandler,
	questHandler *handlers.QuestHandler,
	hintHandler *handlers.HintHandler,
	hub *services.Hub,
	verifier middleware.TokenVerifier,
	logger *zap.Logger,
) {
	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(verifier))
		{
			protected.GET("/auth/profile", authHandler.GetProfile)

			games := protected.Group("/games")
			{
				games.GET("", gameHandler.ListGames)
				games.POST("", gameHandler.CreateGame)
				games.GET("/:id", gameHandler.GetGame)
				games.PATCH("/:id", gameHandler.UpdateGame)
				games.DELETE("/:id", gameHandler.DeleteGame)
				games.GET("/:id/stats", gameHandler.GetGameStats)
			}

			quests := protected.Group("/quests")
			{
				quests.GET("/game/:gameId", questHandler.ListQuests)
				quests.POST("", questHandler.CreateQuest)
				quests.GET("/:id", questHandler.GetQuest)
				quests.PATCH("/:id", questHandler.UpdateQuest)
				quests.DELETE("/:id", questHandler.DeleteQuest)
				quests.POST("/:id/start", questHandler.StartQuest)
				quests.POST("/:id/complete", questHandler.CompleteQuest)
			}

			hints := protected.Group("/hints")
			{
				hints.GET("/quest/:questId", hintHandler.ListHints)
				hints.GET("/game/:gameId/stats", hintHandler.GetHintStats)
				hints.POST("", hintHandler.CreateHint)
				hints.GET("/:id", hintHandler.GetHint)
				hints.POST("/:id/rate", hintHandler.RateHint)
				hints.DELETE("/:id", hintHandler.DeleteHint)
			}
		}
	}

	// Sessions authenticate with their first message, not on upgrade.
	router.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		hub.ServeConn(conn)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
