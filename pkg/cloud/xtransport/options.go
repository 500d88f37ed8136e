package xtransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/omeyang/xstack/pkg/observability/xmetrics"
)

const (
	// DefaultRetryDelay 连接重试的默认初始间隔。
	DefaultRetryDelay = 200 * time.Millisecond

	// DefaultRetryMaxDelay 连接重试的最大间隔。
	DefaultRetryMaxDelay = 5 * time.Second
)

// options 定义 HTTPTransport 的可选配置。
type options struct {
	httpClient    *http.Client
	logger        *slog.Logger
	observer      xmetrics.Observer
	retryAttempts int
	retryDelay    time.Duration
	retryMaxDelay time.Duration
}

// Option 定义配置 HTTPTransport 的函数类型。
type Option func(*options)

func defaultOptions() *options {
	return &options{
		logger:        slog.Default(),
		observer:      xmetrics.NoopObserver{},
		retryAttempts: 1,
		retryDelay:    DefaultRetryDelay,
		retryMaxDelay: DefaultRetryMaxDelay,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithHTTPClient 注入自定义 HTTP 客户端。
// 注入后 HTTPConfig 中的 TLS、超时与连接池设置不再生效。
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger 设置日志记录器，nil 时使用 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置可观测性接口。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithConnectionRetry 设置连接失败时的总尝试次数（包含首次）与初始退避间隔。
// attempts <= 1 表示不重试；delay <= 0 使用 DefaultRetryDelay。
// 只有 ConnectionError 会被重试，已收到的响应（包括 5xx）原样返回。
func WithConnectionRetry(attempts int, delay time.Duration) Option {
	return func(o *options) {
		if attempts < 1 {
			attempts = 1
		}
		o.retryAttempts = attempts
		if delay > 0 {
			o.retryDelay = delay
		}
	}
}

// WithRetryMaxDelay 设置连接重试退避的上限。
func WithRetryMaxDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryMaxDelay = d
		}
	}
}
