package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIHandler 健康检查等通用接口
type APIHandler struct {
	serviceName string
	clients     func() int
	ping        func(ctx context.Context) error
	logger      *zap.Logger
}

// NewAPIHandler 创建 API 处理器，ping 为 nil 时不检查存储
func NewAPIHandler(serviceName string, clients func() int, ping func(ctx context.Context) error, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		serviceName: serviceName,
		clients:     clients,
		ping:        ping,
		logger:      logger,
	}
}

// Health 健康检查
func (h *APIHandler) Health(c *gin.Context) {
	status := "UP"
	code := http.StatusOK
	storage := "memory"

	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.logger.Warn("设置存储不可用", zap.Error(err))
			status, storage, code = "DEGRADED", "DOWN", http.StatusServiceUnavailable
		} else {
			storage = "UP"
		}
	}

	online := 0
	if h.clients != nil {
		online = h.clients()
	}

	c.JSON(code, gin.H{
		"status":         status,
		"service":        h.serviceName,
		"storage":        storage,
		"online_clients": online,
	})
}
