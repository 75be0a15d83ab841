package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aitypeset/typeset-go/internal/settings"
	apperrors "github.com/aitypeset/typeset-go/pkg/errors"
	"github.com/aitypeset/typeset-go/pkg/metrics"
	"go.uber.org/zap"
)

// HiAgentClient HiAgent 智能体客户端。
// 每次排版新建一个会话并只查询一次，会话不复用也不清理。
type HiAgentClient struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHiAgentClient 创建 HiAgent 客户端
func NewHiAgentClient(httpClient *http.Client, logger *zap.Logger) *HiAgentClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HiAgentClient{
		httpClient: httpClient,
		logger:     logger,
	}
}

// CreateConversationRequest 创建会话请求
type CreateConversationRequest struct {
	UserID string            `json:"UserID"`
	Inputs map[string]string `json:"Inputs"`
}

// CreateConversationResponse 创建会话响应
type CreateConversationResponse struct {
	Conversation *struct {
		AppConversationID string `json:"AppConversationID"`
	} `json:"Conversation"`
}

// ChatQueryRequest 会话查询请求
type ChatQueryRequest struct {
	UserID            string `json:"UserID"`
	AppConversationID string `json:"AppConversationID"`
	Query             string `json:"Query"`
	ResponseMode      string `json:"ResponseMode"`
}

// ChatQueryResponse 会话查询响应
type ChatQueryResponse struct {
	Answer *string `json:"answer"`
}

// Name 后端名称
func (c *HiAgentClient) Name() string {
	return settings.MethodHiAgent
}

// Typeset 创建会话后提交内容，返回排版后的 HTML
func (c *HiAgentClient) Typeset(ctx context.Context, cfg settings.Config, html string) (string, error) {
	conversationID, err := c.CreateConversation(ctx, cfg)
	if err != nil {
		return "", apperrors.WithPrefix("create conversation failed", err)
	}

	answer, err := c.ChatQuery(ctx, cfg, conversationID, html)
	if err != nil {
		return "", apperrors.WithPrefix("chat query failed", err)
	}
	return answer, nil
}

// CreateConversation 创建会话，返回 AppConversationID
func (c *HiAgentClient) CreateConversation(ctx context.Context, cfg settings.Config) (string, error) {
	reqBody := CreateConversationRequest{
		UserID: cfg.HiAgentUserID,
		Inputs: map[string]string{"var": "variable"},
	}

	var resp CreateConversationResponse
	if err := c.post(ctx, cfg, "create_conversation", reqBody, &resp); err != nil {
		return "", err
	}

	if resp.Conversation == nil || resp.Conversation.AppConversationID == "" {
		return "", apperrors.New(apperrors.KindMalformedResponse, "invalid response from create conversation API")
	}

	c.logger.Debug("会话已创建", zap.String("conversationId", resp.Conversation.AppConversationID))
	return resp.Conversation.AppConversationID, nil
}

// ChatQuery 以阻塞模式查询会话
func (c *HiAgentClient) ChatQuery(ctx context.Context, cfg settings.Config, conversationID, query string) (string, error) {
	reqBody := ChatQueryRequest{
		UserID:            cfg.HiAgentUserID,
		AppConversationID: conversationID,
		Query:             query,
		ResponseMode:      "blocking",
	}

	var resp ChatQueryResponse
	if err := c.post(ctx, cfg, "chat_query_v2", reqBody, &resp); err != nil {
		return "", err
	}

	if resp.Answer == nil || *resp.Answer == "" {
		return "", apperrors.New(apperrors.KindMalformedResponse, "invalid response from chat query API")
	}
	return *resp.Answer, nil
}

func (c *HiAgentClient) post(ctx context.Context, cfg settings.Config, endpoint string, body, out interface{}) error {
	url := strings.TrimRight(cfg.HiAgentBaseURL, "/") + "/" + endpoint

	jsonData, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "marshal request failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransportError, "create request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Apikey", cfg.HiAgentAppKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendCallsTotal.WithLabelValues(c.Name(), endpoint, "transport_error").Inc()
		c.logger.Error("HiAgent 请求失败", zap.String("endpoint", endpoint), zap.Error(err))
		return apperrors.Wrap(apperrors.KindTransportError, "request failed", err)
	}
	defer resp.Body.Close()

	metrics.BackendCallsTotal.WithLabelValues(c.Name(), endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("HiAgent 返回错误状态",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode))
		return apperrors.Remote(resp.StatusCode, reasonPhrase(resp.StatusCode, resp.Status))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransportError, "read response failed", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(apperrors.KindMalformedResponse,
			fmt.Sprintf("invalid JSON from %s", endpoint), err)
	}
	return nil
}
