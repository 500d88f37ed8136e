package xtransport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/omeyang/xstack/pkg/observability/xmetrics"
)

// 可观测性常量。
const (
	MetricsComponent = "xtransport"
	MetricsOpSend    = "send"
)

// =============================================================================
// HTTP 传输
// =============================================================================

// HTTPTransport 基于 net/http 的 Transport 实现，持有连接池。
type HTTPTransport struct {
	client   *http.Client
	logger   *slog.Logger
	observer xmetrics.Observer

	retryAttempts uint
	retryDelay    time.Duration
	retryMaxDelay time.Duration
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport 创建 HTTP 传输。
// 未通过 WithHTTPClient 注入客户端时，按 cfg 构建带连接池的 http.Client。
func NewHTTPTransport(cfg HTTPConfig, opts ...Option) (*HTTPTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	o := applyOptions(opts)

	client := o.httpClient
	if client == nil {
		tlsConfig, err := cfg.TLS.BuildTLSConfig()
		if err != nil {
			return nil, err
		}
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSClientConfig:     tlsConfig,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: cfg.Timeout,
		}
	}

	return &HTTPTransport{
		client:        client,
		logger:        o.logger,
		observer:      o.observer,
		retryAttempts: uint(o.retryAttempts), //nolint:gosec // retryAttempts >= 1
		retryDelay:    o.retryDelay,
		retryMaxDelay: o.retryMaxDelay,
	}, nil
}

// NewDefaultHTTPTransport 使用默认配置创建 HTTP 传输。
func NewDefaultHTTPTransport(opts ...Option) *HTTPTransport {
	t, err := NewHTTPTransport(HTTPConfig{}, opts...)
	if err != nil {
		// 默认配置不会校验失败，也不读取证书文件
		panic(err)
	}
	return t
}

// Send 发送请求。
// 仅当请求从未收到响应（*ConnectionError）且请求体可重放时，按配置重试。
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (resp *Response, err error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := xmetrics.Start(ctx, t.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpSend,
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String(xmetrics.KeyHTTPMethod, req.Method),
			xmetrics.String("url.path", sanitizeURL(req.URL)),
		},
	})
	var attempts uint
	defer func() {
		result := xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.Int(xmetrics.KeyAttempts, int(attempts))}}
		if resp != nil {
			result.Attrs = append(result.Attrs, xmetrics.HTTPStatus(resp.StatusCode))
		}
		span.End(result)
	}()

	if t.retryAttempts <= 1 {
		attempts = 1
		return t.sendOnce(ctx, req)
	}

	resp, err = retry.NewWithData[*Response](
		retry.Context(ctx),
		retry.Attempts(t.retryAttempts),
		retry.Delay(t.retryDelay),
		retry.MaxDelay(t.retryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsConnectionError),
		retry.OnRetry(func(n uint, retryErr error) {
			t.logger.WarnContext(ctx, "xtransport: retrying after connection failure",
				slog.String("method", req.Method),
				slog.String("url", sanitizeURL(req.URL)),
				slog.Uint64("attempt", uint64(n)+1),
				slog.Any("error", retryErr),
			)
		}),
	).Do(func() (*Response, error) {
		attempts++
		return t.sendOnce(ctx, req)
	})
	return resp, err
}

// sendOnce 执行一次 HTTP 往返。
func (t *HTTPTransport) sendOnce(ctx context.Context, req *Request) (*Response, error) {
	body, err := req.Body()
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("xtransport: create request: %w", err)
	}
	for key, values := range req.Header {
		httpReq.Header[key] = append([]string(nil), values...)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ConnectionError{Method: req.Method, URL: sanitizeURL(req.URL), Err: err}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       httpResp.Body,
	}, nil
}

// CloseIdleConnections 关闭连接池中的空闲连接。
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

// sanitizeURL 移除 URL 中的查询参数，避免日志泄露与指标高基数。
func sanitizeURL(rawURL string) string {
	if path, _, found := strings.Cut(rawURL, "?"); found {
		return path
	}
	return rawURL
}
