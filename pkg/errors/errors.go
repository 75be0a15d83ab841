// Package errors 定义排版请求的错误分类
package errors

import (
	"errors"
	"fmt"
)

// Kind 错误类型
type Kind string

const (
	KindInvalidInput        Kind = "InvalidInput"
	KindMissingCredential   Kind = "MissingCredential"
	KindSettingsUnavailable Kind = "SettingsUnavailable"
	KindTransportError      Kind = "TransportError"
	KindRemoteError         Kind = "RemoteError"
	KindMalformedResponse   Kind = "MalformedResponse"
)

// TypesetError 排版错误
type TypesetError struct {
	Kind    Kind
	Message string
	// Status 仅 RemoteError 使用
	Status int
	Err    error
}

// Error 实现 error 接口
func (e *TypesetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *TypesetError) Unwrap() error {
	return e.Err
}

// New 创建错误
func New(kind Kind, message string) *TypesetError {
	return &TypesetError{Kind: kind, Message: message}
}

// Wrap 包装底层错误
func Wrap(kind Kind, message string, err error) *TypesetError {
	return &TypesetError{Kind: kind, Message: message, Err: err}
}

// Remote 远端返回非 2xx
func Remote(status int, statusText string) *TypesetError {
	return &TypesetError{
		Kind:    KindRemoteError,
		Message: fmt.Sprintf("HTTP %d - %s", status, statusText),
		Status:  status,
	}
}

// WithPrefix 为消息加上阶段前缀，保留类型
func WithPrefix(prefix string, err error) error {
	var te *TypesetError
	if errors.As(err, &te) {
		return &TypesetError{
			Kind:    te.Kind,
			Message: prefix + ": " + te.Message,
			Status:  te.Status,
			Err:     te.Err,
		}
	}
	return fmt.Errorf("%s: %w", prefix, err)
}

// KindOf 返回错误类型，未分类错误视为 TransportError
func KindOf(err error) Kind {
	var te *TypesetError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindTransportError
}

// Is 判断错误类型
func Is(err error, kind Kind) bool {
	var te *TypesetError
	return errors.As(err, &te) && te.Kind == kind
}
