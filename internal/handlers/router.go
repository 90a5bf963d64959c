package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"encrypted-quest-backend/internal/metrics"
	"encrypted-quest-backend/internal/middleware"
	"encrypted-quest-backend/internal/services"
)

type RouterConfig struct {
	Engine      *services.QuestEngine
	Auth        *services.AuthService
	JWT         *services.JWTService
	RateLimiter *middleware.IPRateLimiter
	Logger      *logrus.Logger
}

// NewRouter wires every HTTP route. The websocket hub is subscribed to the
// engine's receipts.
func NewRouter(cfg RouterConfig) *gin.Engine {
	authHandler := NewAuthHandler(cfg.Auth)
	userHandler := NewUserHandler(cfg.Engine)
	gameHandler := NewGameHandler(cfg.Engine)
	relayerHandler := NewRelayerHandler(cfg.Engine.Gateway())
	wsHandler := NewWebSocketHandler(cfg.Logger)
	cfg.Engine.SetBroadcaster(wsHandler)

	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ops": cfg.Engine.OpCount()})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	limited := router.Group("")
	if cfg.RateLimiter != nil {
		limited.Use(middleware.RateLimitMiddleware(cfg.RateLimiter))
	}

	auth := limited.Group("/auth")
	{
		auth.GET("/challenge", authHandler.Challenge)
		auth.POST("/login", authHandler.Login)
	}

	relayer := limited.Group("/relayer/v1")
	{
		relayer.GET("/keyurl", relayerHandler.KeyURL)
		relayer.POST("/input-proof", relayerHandler.InputProof)
		relayer.POST("/user-decrypt", relayerHandler.UserDecrypt)
	}

	public := limited.Group("/api/v1")
	{
		public.GET("/deployment", gameHandler.GetDeployment)
		public.GET("/tasks", gameHandler.GetTasks)
		public.GET("/receipts/:hash", gameHandler.GetReceipt)

		players := public.Group("/players/:address")
		{
			players.GET("", gameHandler.GetPlayer)
			players.GET("/joined", gameHandler.HasJoined)
			players.GET("/mask", gameHandler.GetTaskMask)
			players.GET("/balance", gameHandler.GetBalance)
		}
	}

	protected := limited.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg.JWT))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.GET("/ws", wsHandler.HandleWebSocket)

		game := protected.Group("/v1/game")
		{
			game.POST("/join", gameHandler.JoinGame)
			game.POST("/claim", gameHandler.ClaimTask)
		}
	}

	return router
}
