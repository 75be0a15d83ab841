package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aitypeset/typeset-go/internal/settings"
	apperrors "github.com/aitypeset/typeset-go/pkg/errors"
	"github.com/aitypeset/typeset-go/pkg/metrics"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient OpenAI 兼容接口客户端，无状态，单次 chat/completions 调用
type OpenAIClient struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOpenAIClient 创建 OpenAI 兼容客户端
func NewOpenAIClient(httpClient *http.Client, logger *zap.Logger) *OpenAIClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIClient{
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name 后端名称
func (c *OpenAIClient) Name() string {
	return settings.MethodOpenAI
}

// Typeset 以系统提示词 + 用户内容调用 chat/completions
func (c *OpenAIClient) Typeset(ctx context.Context, cfg settings.Config, html string) (string, error) {
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	clientConfig.HTTPClient = c.httpClient
	api := openai.NewClientWithConfig(clientConfig)

	resp, err := api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: cfg.PromptSystem},
			{Role: openai.ChatMessageRoleUser, Content: html},
		},
	})
	if err != nil {
		typed := classifyOpenAIError(err)
		metrics.BackendCallsTotal.WithLabelValues(c.Name(), "chat_completions", statusLabel(typed)).Inc()
		c.logger.Error("OpenAI 请求失败",
			zap.String("model", cfg.Model),
			zap.String("kind", string(apperrors.KindOf(typed))),
			zap.Error(err))
		return "", typed
	}
	metrics.BackendCallsTotal.WithLabelValues(c.Name(), "chat_completions", "200").Inc()

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", apperrors.New(apperrors.KindMalformedResponse, "invalid response from chat completions API")
	}

	c.logger.Debug("OpenAI 排版完成",
		zap.String("model", resp.Model),
		zap.Int("promptTokens", resp.Usage.PromptTokens),
		zap.Int("completionTokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError 将 go-openai 错误映射为排版错误类型
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.Is(err, openai.ErrChatCompletionInvalidModel):
		return apperrors.Wrap(apperrors.KindInvalidInput, "model not supported by chat completions", err)
	case errors.As(err, &apiErr):
		return apperrors.Remote(apiErr.HTTPStatusCode, reasonPhrase(apiErr.HTTPStatusCode, apiErr.HTTPStatus))
	case errors.As(err, &reqErr):
		return apperrors.Remote(reqErr.HTTPStatusCode, reasonPhrase(reqErr.HTTPStatusCode, reqErr.HTTPStatus))
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperrors.Wrap(apperrors.KindMalformedResponse, "invalid JSON from chat completions API", err)
	default:
		return apperrors.Wrap(apperrors.KindTransportError, "request failed", err)
	}
}

func statusLabel(err error) string {
	var te *apperrors.TypesetError
	if errors.As(err, &te) && te.Status != 0 {
		return strconv.Itoa(te.Status)
	}
	return strings.ToLower(string(apperrors.KindOf(err)))
}
