package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/aitypeset/typeset-go/internal/model"
	"github.com/aitypeset/typeset-go/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxMessageBytes 单个请求体或 WebSocket 帧的上限
const maxMessageBytes = 8 << 20

// ActionService 处理扩展消息
type ActionService interface {
	HandleAction(ctx context.Context, req model.ActionRequest) (model.ActionResponse, *model.Notification)
}

// Notifier 推送通知
type Notifier interface {
	Broadcast(n *model.Notification) int
}

// TypesetHandler 排版接口
type TypesetHandler struct {
	actions  ActionService
	notifier Notifier
	logger   *zap.Logger
}

// NewTypesetHandler 创建排版处理器
func NewTypesetHandler(actions ActionService, notifier Notifier, logger *zap.Logger) *TypesetHandler {
	return &TypesetHandler{
		actions:  actions,
		notifier: notifier,
		logger:   logger,
	}
}

// Typeset POST /api/typeset，请求体 {action, content}
func (h *TypesetHandler) Typeset(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMessageBytes)

	var req model.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, model.ActionResponse{Success: false, Error: "Request too large"})
			return
		}
		c.JSON(http.StatusBadRequest, model.ActionResponse{Success: false, Error: "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	resp, n := h.actions.HandleAction(ctx, req)

	// 推送不阻塞响应
	if n != nil && h.notifier != nil {
		log := logger.FromContext(ctx, h.logger)
		go func() {
			sent := h.notifier.Broadcast(n)
			log.Debug("通知已推送",
				zap.String("type", n.Type),
				zap.Int("clients", sent))
		}()
	}

	c.JSON(http.StatusOK, resp)
}
