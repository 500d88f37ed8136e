package xtransport

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection 表示请求未能到达服务端。
	// *ConnectionError 通过 Is 匹配此哨兵错误。
	ErrConnection = errors.New("xtransport: connection failed")

	// ErrNilRequest 表示传入的请求为 nil。
	ErrNilRequest = errors.New("xtransport: nil request")

	// ErrNilHTTPClient 表示注入的 HTTP 客户端为 nil。
	ErrNilHTTPClient = errors.New("xtransport: nil http client")
)

// ConnectionError 表示连接阶段的失败，请求从未得到服务端响应。
type ConnectionError struct {
	Method string
	URL    string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("xtransport: %s %s: connection failed: %v", e.Method, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrConnection) 成立。
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// IsConnectionError 判断错误是否为连接失败。
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}
