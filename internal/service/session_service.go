package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/aitypeset/typeset-go/internal/model"
	"github.com/aitypeset/typeset-go/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionService 管理扩展的 WebSocket 连接，用于推送通知
type SessionService struct {
	sessions map[string]*model.ClientSession // sessionId -> session
	mu       sync.RWMutex
	timeout  time.Duration
	logger   *zap.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionService 创建会话管理服务，超过 heartbeatTimeout 未收到心跳的连接会被关闭
func NewSessionService(heartbeatTimeout time.Duration, logger *zap.Logger) *SessionService {
	s := &SessionService{
		sessions: make(map[string]*model.ClientSession),
		timeout:  heartbeatTimeout,
		logger:   logger,
		stop:     make(chan struct{}),
	}

	if heartbeatTimeout > 0 {
		go s.heartbeatChecker(heartbeatTimeout / 2)
	}
	return s
}

// Register 注册连接
func (s *SessionService) Register(session *model.ClientSession) {
	session.ConnectedAt = time.Now()
	session.UpdateHeartbeat()

	s.mu.Lock()
	s.sessions[session.SessionID] = session
	s.mu.Unlock()

	metrics.WebSocketConnections.Inc()
	s.logger.Info("扩展连接已注册",
		zap.String("sessionId", session.SessionID),
		zap.String("clientIp", session.ClientIP))
}

// Remove 移除连接
func (s *SessionService) Remove(sessionID string) {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if ok {
		metrics.WebSocketConnections.Dec()
		s.logger.Info("扩展连接已移除", zap.String("sessionId", sessionID))
	}
}

// UpdateHeartbeat 更新心跳时间
func (s *SessionService) UpdateHeartbeat(sessionID string) bool {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return false
	}
	session.UpdateHeartbeat()
	return true
}

// Broadcast 向所有连接推送通知，返回成功推送的数量
func (s *SessionService) Broadcast(n *model.Notification) int {
	if n == nil {
		return 0
	}

	msg := model.WSMessage{
		MessageID:    uuid.New().String(),
		Type:         model.MessageTypeNotification,
		Notification: n,
		Timestamp:    time.Now(),
	}

	s.mu.RLock()
	sessions := make([]*model.ClientSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	// 并发写入，单个不读取的客户端只会拖住自己的写入
	var sent atomic.Int64
	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(session *model.ClientSession) {
			defer wg.Done()
			if err := session.WriteMessage(msg); err != nil {
				s.logger.Warn("通知推送失败",
					zap.String("sessionId", session.SessionID),
					zap.Error(err))
				s.Remove(session.SessionID)
				if session.Conn != nil {
					session.Conn.Close()
				}
				return
			}
			sent.Add(1)
		}(session)
	}
	wg.Wait()
	return int(sent.Load())
}

// Count 当前连接数
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close 停止心跳检测
func (s *SessionService) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// heartbeatChecker 关闭心跳超时的连接
func (s *SessionService) heartbeatChecker(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictStale(time.Now())
		}
	}
}

func (s *SessionService) evictStale(now time.Time) {
	s.mu.Lock()
	var stale []*model.ClientSession
	for id, session := range s.sessions {
		if now.Sub(session.LastSeen()) > s.timeout {
			stale = append(stale, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range stale {
		metrics.WebSocketConnections.Dec()
		s.logger.Info("清理心跳超时连接", zap.String("sessionId", session.SessionID))
		if session.Conn != nil {
			session.Conn.Close()
		}
	}
}
