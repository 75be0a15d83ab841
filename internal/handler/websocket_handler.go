package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aitypeset/typeset-go/internal/middleware"
	"github.com/aitypeset/typeset-go/internal/model"
	"github.com/aitypeset/typeset-go/internal/service"
	"github.com/aitypeset/typeset-go/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler 扩展消息通道：收 {action, content}，回 RESULT 与 NOTIFICATION
type WebSocketHandler struct {
	upgrader       websocket.Upgrader
	sessionService *service.SessionService
	actions        ActionService
	logger         *zap.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器
func NewWebSocketHandler(sessionService *service.SessionService, actions ActionService, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.AllowOrigin(origin, allowed)
			},
		},
		sessionService: sessionService,
		actions:        actions,
		logger:         logger,
	}
}

// HandleWebSocket WebSocket 连接入口
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket 升级失败", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	session := &model.ClientSession{
		SessionID: uuid.New().String(),
		ClientIP:  c.ClientIP(),
		Origin:    c.GetHeader("Origin"),
		Conn:      conn,
	}
	h.sessionService.Register(session)
	defer h.sessionService.Remove(session.SessionID)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	for {
		var req model.ActionRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket 读取错误",
					zap.String("sessionId", session.SessionID),
					zap.Error(err))
			}
			break
		}

		if req.Action == model.ActionHeartbeat {
			h.sessionService.UpdateHeartbeat(session.SessionID)
			h.write(session, model.WSMessage{
				MessageID: uuid.New().String(),
				ReplyTo:   req.MessageID,
				Type:      model.MessageTypeHeartbeat,
				Timestamp: time.Now(),
			})
			continue
		}

		// 排版耗时较长，异步处理以免阻塞心跳
		go h.handleAction(ctx, session, req)
	}
}

func (h *WebSocketHandler) handleAction(ctx context.Context, session *model.ClientSession, req model.ActionRequest) {
	requestID := req.MessageID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx = logger.WithRequestID(ctx, requestID)

	resp, n := h.actions.HandleAction(ctx, req)

	h.write(session, model.WSMessage{
		MessageID: uuid.New().String(),
		ReplyTo:   req.MessageID,
		Type:      model.MessageTypeResult,
		Response:  &resp,
		Timestamp: time.Now(),
	})

	if n != nil {
		h.write(session, model.WSMessage{
			MessageID:    uuid.New().String(),
			ReplyTo:      req.MessageID,
			Type:         model.MessageTypeNotification,
			Notification: n,
			Timestamp:    time.Now(),
		})
	}
}

func (h *WebSocketHandler) write(session *model.ClientSession, msg model.WSMessage) {
	if err := session.WriteMessage(msg); err != nil {
		h.logger.Warn("WebSocket 写入失败",
			zap.String("sessionId", session.SessionID),
			zap.String("type", msg.Type),
			zap.Error(err))
	}
}
