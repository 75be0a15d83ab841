package handler

import (
	"github.com/aitypeset/typeset-go/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers 路由依赖
type Handlers struct {
	API            *APIHandler
	Typeset        *TypesetHandler
	Settings       *SettingsHandler
	WebSocket      *WebSocketHandler
	AllowedOrigins []string
}

// NewRouter 注册全部路由
func NewRouter(h Handlers, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(h.AllowedOrigins))

	api := r.Group("/api")
	{
		api.POST("/typeset", h.Typeset.Typeset)

		api.GET("/settings", h.Settings.Get)
		api.PUT("/settings", h.Settings.Update)
		api.DELETE("/settings", h.Settings.Reset)
		api.GET("/page/check", h.Settings.PageCheck)

		api.GET("/health", h.API.Health)
	}

	r.GET("/ws", h.WebSocket.HandleWebSocket)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
