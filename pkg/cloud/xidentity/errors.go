package xidentity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig 表示凭据配置不完整或不合法。
	ErrInvalidConfig = errors.New("xidentity: invalid config")

	// ErrInvalidCredentials 表示身份服务拒绝了凭据。
	ErrInvalidCredentials = errors.New("xidentity: invalid credentials")

	// ErrUnreachableIdentityService 表示身份服务不可达（连接失败、超时或 5xx）。
	ErrUnreachableIdentityService = errors.New("xidentity: identity service unreachable")

	// ErrMalformedCatalogResponse 表示身份服务的响应无法解析。
	ErrMalformedCatalogResponse = errors.New("xidentity: malformed identity response")

	// ErrInvalidToken 表示 Token 值为空或已过期。
	ErrInvalidToken = errors.New("xidentity: invalid token")
)

// IdentityError 描述身份服务返回的非 2xx 响应。
// Err 为 ErrInvalidCredentials 或 ErrUnreachableIdentityService。
type IdentityError struct {
	StatusCode int
	Title      string
	Message    string
	Err        error
}

func (e *IdentityError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Title
	}
	if msg == "" {
		return fmt.Sprintf("%v: status %d", e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d: %s", e.Err, e.StatusCode, msg)
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

// classifyStatus 将身份服务状态码映射为哨兵错误。
func classifyStatus(code int) error {
	if code >= 500 {
		return ErrUnreachableIdentityService
	}
	return ErrInvalidCredentials
}

// IsAuthError 判断错误是否来自认证阶段（任意一类认证失败）。
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrUnreachableIdentityService) ||
		errors.Is(err, ErrMalformedCatalogResponse)
}
