package service

import (
	"context"
	"time"

	"github.com/aitypeset/typeset-go/internal/model"
	"github.com/aitypeset/typeset-go/internal/settings"
	apperrors "github.com/aitypeset/typeset-go/pkg/errors"
	"github.com/aitypeset/typeset-go/pkg/logger"
	"github.com/aitypeset/typeset-go/pkg/metrics"
	"go.uber.org/zap"
)

// Backend 排版后端
type Backend interface {
	Name() string
	Typeset(ctx context.Context, cfg settings.Config, html string) (string, error)
}

// SettingsResolver 提供设置快照
type SettingsResolver interface {
	Resolve(ctx context.Context) (settings.Config, error)
}

// Result 一次排版的结果
type Result struct {
	OK            bool
	FormattedHTML string
	ErrorMessage  string
	Kind          apperrors.Kind
	Backend       string
	Elapsed       time.Duration
}

// TypesetService 排版协调服务
type TypesetService struct {
	resolver SettingsResolver
	backends map[string]Backend
	timeout  time.Duration
	logger   *zap.Logger
}

// NewTypesetService 创建排版服务，timeout 为 0 时不额外限时
func NewTypesetService(resolver SettingsResolver, hiagent, openai Backend, timeout time.Duration, logger *zap.Logger) *TypesetService {
	return &TypesetService{
		resolver: resolver,
		backends: map[string]Backend{
			settings.MethodHiAgent: hiagent,
			settings.MethodOpenAI:  openai,
		},
		timeout: timeout,
		logger:  logger,
	}
}

// Typeset 读取设置后排版
func (s *TypesetService) Typeset(ctx context.Context, rawHTML string) Result {
	if rawHTML == "" {
		return invalidContent()
	}

	cfg, err := s.resolver.Resolve(ctx)
	if err != nil {
		return failure(err, "", 0)
	}
	return s.Format(ctx, rawHTML, cfg)
}

// Format 使用给定设置排版。
// hiagent 收到 <div> 包裹后的内容，openai 收到原始内容；任何失败都不重试。
func (s *TypesetService) Format(ctx context.Context, rawHTML string, cfg settings.Config) Result {
	if rawHTML == "" {
		return invalidContent()
	}

	method := cfg.Method()
	log := logger.FromContext(ctx, s.logger).With(zap.String("backend", method))

	input := rawHTML
	switch method {
	case settings.MethodHiAgent:
		if cfg.HiAgentAppKey == "" {
			return failure(apperrors.New(apperrors.KindMissingCredential,
				"HiAgent App Key is not configured, set it in the extension settings"), method, 0)
		}
		input = "<div>" + rawHTML + "</div>"
	default:
		if cfg.OpenAIAPIKey == "" {
			return failure(apperrors.New(apperrors.KindMissingCredential,
				"OpenAI API Key is not configured, set it in the extension settings"), method, 0)
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log.Info("开始排版", zap.Int("contentLength", len(rawHTML)))
	start := time.Now()

	formatted, err := s.backends[method].Typeset(ctx, cfg, input)
	elapsed := time.Since(start)
	if err != nil {
		res := failure(err, method, elapsed)
		metrics.RecordTypeset(method, string(res.Kind), elapsed.Seconds())
		log.Warn("排版失败",
			zap.String("kind", string(res.Kind)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return res
	}

	metrics.RecordTypeset(method, "", elapsed.Seconds())
	log.Info("排版完成",
		zap.Int("resultLength", len(formatted)),
		zap.Duration("elapsed", elapsed))

	return Result{
		OK:            true,
		FormattedHTML: formatted,
		Backend:       method,
		Elapsed:       elapsed,
	}
}

// HandleAction 按扩展消息的 action 分发，返回响应以及需要展示的通知
func (s *TypesetService) HandleAction(ctx context.Context, req model.ActionRequest) (model.ActionResponse, *model.Notification) {
	switch {
	case req.Action == "":
		return model.ActionResponse{Success: false, Error: "Invalid request"}, nil

	case req.IsTypeset():
		res := s.Typeset(ctx, req.Content)
		return res.Response(), res.Notification()

	case req.Action == model.ActionShowNotification:
		n := &model.Notification{Title: req.Title, Message: req.Message, Type: req.Type}
		if n.Type == "" {
			n.Type = model.NotificationInfo
		}
		return model.ActionResponse{Success: true}, n

	default:
		return model.ActionResponse{Success: false, Error: "Unknown action"}, nil
	}
}

// Response 转为扩展消息响应
func (r Result) Response() model.ActionResponse {
	resp := model.ActionResponse{
		Success:   r.OK,
		Backend:   r.Backend,
		ElapsedMs: r.Elapsed.Milliseconds(),
	}
	if r.OK {
		resp.FormattedContent = r.FormattedHTML
	} else {
		resp.Error = r.ErrorMessage
		resp.Kind = string(r.Kind)
	}
	return resp
}

// Notification 排版结束后的通知
func (r Result) Notification() *model.Notification {
	if r.OK {
		return &model.Notification{
			Title:   "Typeset complete",
			Message: "The content has been typeset",
			Type:    model.NotificationSuccess,
		}
	}
	return &model.Notification{
		Title:   "Typeset failed",
		Message: r.ErrorMessage,
		Type:    model.NotificationError,
	}
}

func invalidContent() Result {
	return Result{
		OK:           false,
		ErrorMessage: "invalid content",
		Kind:         apperrors.KindInvalidInput,
	}
}

func failure(err error, backend string, elapsed time.Duration) Result {
	return Result{
		OK:           false,
		ErrorMessage: err.Error(),
		Kind:         apperrors.KindOf(err),
		Backend:      backend,
		Elapsed:      elapsed,
	}
}
