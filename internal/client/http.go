package client

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// NewHTTPClient 创建调用模型服务的 HTTP 客户端，timeout 为 0 表示不限时
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// reasonPhrase 取服务端返回的状态描述，如 "502 Upstream Gateway Down" 取 "Upstream Gateway Down"，
// 为空时退回标准描述
func reasonPhrase(code int, status string) string {
	reason := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if reason == "" {
		return http.StatusText(code)
	}
	return reason
}
