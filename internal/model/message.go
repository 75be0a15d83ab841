package model

import "time"

// 扩展消息中的 action
const (
	ActionTypeset          = "typeset"
	ActionAITypeset        = "aiTypeset"
	ActionOneClickTypeset  = "oneClickTypeset"
	ActionShowNotification = "showNotification"
	ActionHeartbeat        = "heartbeat"
)

// 通知类型
const (
	NotificationSuccess = "success"
	NotificationError   = "error"
	NotificationInfo    = "info"
)

// WebSocket 消息类型
const (
	MessageTypeResult       = "RESULT"
	MessageTypeNotification = "NOTIFICATION"
	MessageTypeHeartbeat    = "HEARTBEAT"
)

// ActionRequest 扩展发来的请求
type ActionRequest struct {
	MessageID string `json:"messageId,omitempty"`
	Action    string `json:"action"`
	Content   string `json:"content,omitempty"`

	// showNotification 使用
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
}

// IsTypeset 是否为排版类 action
func (r ActionRequest) IsTypeset() bool {
	switch r.Action {
	case ActionTypeset, ActionAITypeset, ActionOneClickTypeset:
		return true
	}
	return false
}

// ActionResponse 返回给扩展的结果
type ActionResponse struct {
	Success          bool   `json:"success"`
	FormattedContent string `json:"formattedContent,omitempty"`
	Error            string `json:"error,omitempty"`
	Kind             string `json:"kind,omitempty"`
	Backend          string `json:"backend,omitempty"`
	ElapsedMs        int64  `json:"elapsedMs,omitempty"`
}

// Notification 桌面通知
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// WSMessage WebSocket 下行消息
type WSMessage struct {
	MessageID    string          `json:"messageId"`
	ReplyTo      string          `json:"replyTo,omitempty"`
	Type         string          `json:"type"`
	Response     *ActionResponse `json:"response,omitempty"`
	Notification *Notification   `json:"notification,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}
