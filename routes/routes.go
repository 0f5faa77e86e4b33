package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/config"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/handlers"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/middleware"
	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/websocket"
)

func SetupRouter(cfg *config.Config, chat *websocket.ChatHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public routes
	router.GET("/api/vapid-public-key", handlers.GetVapidPublicKey)

	// Websocket endpoint authenticates inside the handshake (query token),
	// so it sits outside the middleware group.
	router.GET("/ws", func(c *gin.Context) {
		chat.HandleWS(c.Writer, c.Request)
	})

	protected := router.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware(cfg.Auth.JWTSecret))

	protected.GET("/chat/conversations", handlers.GetConversations)
	protected.GET("/chat/messages", handlers.GetMessages)
	protected.POST("/chat/upload", handlers.UploadAttachments)
	protected.GET("/chat/doctors/search", handlers.SearchDoctors)
	protected.GET("/chat/patients/search", handlers.SearchPatients)
	protected.POST("/chat/subscribe", handlers.SubscribePush)

	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"message": "Endpoint not found",
				"path":    c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
