package xsession

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// 配置与生命周期错误
// =============================================================================

var (
	// ErrNilAuthenticator 表示未提供认证策略。
	ErrNilAuthenticator = errors.New("xsession: nil authenticator")

	// ErrSessionClosed 表示会话已关闭。
	ErrSessionClosed = errors.New("xsession: session closed")

	// ErrNilRequest 表示传入的请求为 nil。
	ErrNilRequest = errors.New("xsession: nil request")

	// ErrInvalidRequest 表示请求缺少必要字段（如相对路径请求未指定服务类型）。
	ErrInvalidRequest = errors.New("xsession: invalid request")
)

// =============================================================================
// 认证错误
// =============================================================================

var (
	// ErrAuthRejected 表示服务端拒绝了令牌（默认 401）。
	// 已使用过一次强制刷新后仍被拒绝时，*APIError 通过 Is 匹配此错误。
	ErrAuthRejected = errors.New("xsession: authentication rejected")

	// ErrIdentityBreakerOpen 表示身份服务熔断器处于打开状态，刷新被直接拒绝。
	ErrIdentityBreakerOpen = errors.New("xsession: identity breaker open")

	// ErrMalformedAuthResult 表示认证策略返回了空结果或空目录。
	ErrMalformedAuthResult = errors.New("xsession: malformed auth result")
)

// APIError 表示服务端返回的状态码 >= 400 的响应。
// 状态码、响应头原样保留，Body 为响应体前 64KB。
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string

	// Rejected 表示该响应被判定为认证拒绝。
	Rejected bool
}

func (e *APIError) Error() string {
	status := http.StatusText(e.StatusCode)
	if status == "" {
		status = "unknown status"
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("xsession: %s %s: %d %s", e.Method, e.URL, e.StatusCode, status)
	}
	return fmt.Sprintf("xsession: %s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, status, excerpt(e.Body, 256))
}

// Is 使被判定为认证拒绝的 APIError 匹配 ErrAuthRejected。
func (e *APIError) Is(target error) bool {
	return e.Rejected && target == ErrAuthRejected
}

// IsAPIError 判断错误是否为 *APIError，并返回它。
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func excerpt(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
