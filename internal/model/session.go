package model

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WriteTimeout 单条消息写入超时，客户端不读取时写入会在此之后失败
var WriteTimeout = 10 * time.Second

// ClientSession 扩展的 WebSocket 连接
type ClientSession struct {
	SessionID   string
	ClientIP    string
	Origin      string
	Conn        *websocket.Conn
	ConnectedAt time.Time

	lastHeartbeat atomic.Int64 // unix nano
	mu            sync.Mutex   // 串行化写入
}

// UpdateHeartbeat 更新心跳时间
func (s *ClientSession) UpdateHeartbeat() {
	s.Touch(time.Now())
}

// Touch 将心跳时间设为 t
func (s *ClientSession) Touch(t time.Time) {
	s.lastHeartbeat.Store(t.UnixNano())
}

// LastSeen 最近一次心跳时间，不受进行中的写入影响
func (s *ClientSession) LastSeen() time.Time {
	return time.Unix(0, s.lastHeartbeat.Load())
}

// WriteMessage 写入消息（线程安全），超过 WriteTimeout 返回错误
func (s *ClientSession) WriteMessage(message interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Conn.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
		return err
	}
	return s.Conn.WriteJSON(message)
}
