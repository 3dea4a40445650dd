package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deepchat/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	userH *UserHandler,
	chatH *ChatHandler,
	sessionH *SessionHandler,
	knowledgeH *KnowledgeHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", userH.Register)
	auth.POST("/login", userH.Login)
	auth.POST("/refresh", userH.Refresh)
	auth.POST("/logout", userH.Logout)
	auth.POST("/forgot-password", userH.ForgotPassword)
	auth.POST("/reset-password", userH.ResetPassword)
	auth.GET("/me", JWTAuthMiddleware(jwtSvc), userH.Me)

	protected := api.Group("", JWTAuthMiddleware(jwtSvc))

	chat := protected.Group("/chat")
	chat.POST("/send", chatH.Send)
	chat.GET("/messages/:sessionId", chatH.GetMessages)
	chat.DELETE("/messages/:messageId", chatH.DeleteMessage)

	sessions := protected.Group("/sessions")
	sessions.GET("", sessionH.List)
	sessions.POST("", sessionH.Create)
	sessions.GET("/search/:query", sessionH.Search)
	sessions.GET("/:sessionId", sessionH.Get)
	sessions.PUT("/:sessionId", sessionH.Update)
	sessions.DELETE("/:sessionId", sessionH.Delete)
	sessions.DELETE("/:sessionId/messages", sessionH.Clear)
	sessions.GET("/:sessionId/export", sessionH.Export)

	knowledge := protected.Group("/knowledge")
	knowledge.GET("/documents", knowledgeH.List)
	knowledge.POST("/documents", knowledgeH.Create)
	knowledge.GET("/documents/:id", knowledgeH.Get)
	knowledge.PUT("/documents/:id", knowledgeH.Update)
	knowledge.DELETE("/documents/:id", knowledgeH.Delete)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
