package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ndyy2/chatbot-axelon/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	authH *AuthHandler,
	chatH *ChatHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.POST("/users", authH.Register)

	auth := r.Group("/auth")
	auth.POST("/login", authH.Login)
	auth.POST("/oauth", authH.OAuthLogin)
	auth.POST("/refresh", authH.Refresh)
	auth.POST("/logout", authH.Logout)

	// El chat funciona con o sin token: sin credenciales utilizables el
	// llamador resuelve a invitado.
	chat := r.Group("/", OptionalJWTMiddleware(jwtSvc))
	chat.POST("/chat", chatH.PostChat)
	chat.GET("/chat", chatH.GetChat)

	authed := r.Group("/", JWTAuthMiddleware(jwtSvc))
	authed.GET("/conversations", chatH.ListConversations)
	authed.GET("/chats/:id/export", chatH.ExportChat)
	authed.DELETE("/chats/:id", chatH.DeleteChat)

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

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
