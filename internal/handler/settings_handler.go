package handler

import (
	"context"
	"net/http"

	"github.com/aitypeset/typeset-go/internal/settings"
	apperrors "github.com/aitypeset/typeset-go/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SettingsManager 读写扩展设置
type SettingsManager interface {
	Resolve(ctx context.Context) (settings.Config, error)
	Update(ctx context.Context, values map[string]string) error
	Reset(ctx context.Context) error
}

// SettingsHandler 设置接口
type SettingsHandler struct {
	manager SettingsManager
	logger  *zap.Logger
}

// NewSettingsHandler 创建设置处理器
func NewSettingsHandler(manager SettingsManager, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{manager: manager, logger: logger}
}

// Get 返回解析后的设置，密钥已打码
func (h *SettingsHandler) Get(c *gin.Context) {
	cfg, err := h.manager.Resolve(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": cfg.Masked()})
}

// Update 保存设置，只接受已识别的键
func (h *SettingsHandler) Update(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMessageBytes)

	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
		return
	}

	if err := h.manager.Update(c.Request.Context(), values); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Reset 清除设置，恢复默认值
func (h *SettingsHandler) Reset(c *gin.Context) {
	if err := h.manager.Reset(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PageCheck 判断页面是否为可排版的编辑页
func (h *SettingsHandler) PageCheck(c *gin.Context) {
	cfg, err := h.manager.Resolve(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	pageURL := c.Query("url")
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"editorPage": cfg.IsEditorPage(pageURL),
		"editorUrl":  cfg.EditorPageURL(),
	})
}

func (h *SettingsHandler) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch apperrors.KindOf(err) {
	case apperrors.KindInvalidInput:
		code = http.StatusBadRequest
	case apperrors.KindSettingsUnavailable:
		code = http.StatusServiceUnavailable
	}
	h.logger.Warn("设置请求失败", zap.Int("status", code), zap.Error(err))
	c.JSON(code, gin.H{"success": false, "error": err.Error()})
}
