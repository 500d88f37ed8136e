package xtransport

//go:generate mockgen -source=transport.go -destination=mock_transport.go -package=xtransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBodySize 读取错误响应体的上限（64KB）。
const maxErrorBodySize = 64 * 1024

// Transport 定义发送请求的能力。
// 实现必须并发安全；连接池等资源由实现方持有，会话层只借用。
type Transport interface {
	// Send 发送请求并返回响应。
	// 收到任何 HTTP 响应都返回 nil error；调用方负责关闭 Response.Body。
	// 未能收到响应时返回 *ConnectionError。
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Func 将普通函数适配为 Transport。
type Func func(ctx context.Context, req *Request) (*Response, error)

// Send 调用 f 本身。
func (f Func) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Request 描述一次待发送的请求。
type Request struct {
	// Method HTTP 方法。
	Method string

	// URL 完整请求地址。
	URL string

	// Header 请求头，Send 不会修改它。
	Header http.Header

	// GetBody 返回请求体，每次发送调用一次，nil 表示无请求体。
	// 重试时会再次调用，因此必须返回一个新的 Reader。
	GetBody func() (io.Reader, error)
}

// Body 创建本次发送使用的请求体。
func (r *Request) Body() (io.Reader, error) {
	if r == nil || r.GetBody == nil {
		return nil, nil
	}
	body, err := r.GetBody()
	if err != nil {
		return nil, fmt.Errorf("xtransport: get request body: %w", err)
	}
	return body, nil
}

// BytesBody 返回一个可重放的 GetBody 函数。nil 或空切片返回 nil。
func BytesBody(b []byte) func() (io.Reader, error) {
	if len(b) == 0 {
		return nil
	}
	return func() (io.Reader, error) {
		return bytes.NewReader(b), nil
	}
}

// Response 描述收到的响应，Body 以流的形式交给调用方。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Close 读尽并关闭响应体，以便连接复用。nil 安全。
func (r *Response) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, maxErrorBodySize)) //nolint:errcheck // 尽力而为
	return r.Body.Close()
}

// ReadAll 读取至多 limit 字节的响应体并关闭它。limit <= 0 时不限制。
func (r *Response) ReadAll(limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, nil
	}
	defer func() { _ = r.Body.Close() }() //nolint:errcheck // Close 错误无法传播

	var reader io.Reader = r.Body
	if limit > 0 {
		reader = io.LimitReader(r.Body, limit)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("xtransport: read response body: %w", err)
	}
	return data, nil
}

// ReadErrorBody 读取错误响应体的前 64KB。
func (r *Response) ReadErrorBody() []byte {
	data, _ := r.ReadAll(maxErrorBodySize) //nolint:errcheck // 错误响应体只用于诊断
	return data
}
