package xidentity

import (
	"log/slog"
	"time"

	"github.com/omeyang/xstack/pkg/observability/xmetrics"
)

// options 定义认证策略的可选配置。
type options struct {
	logger   *slog.Logger
	observer xmetrics.Observer
	now      func() time.Time
}

// Option 定义配置认证策略的函数类型。
type Option func(*options)

func defaultOptions() *options {
	return &options{
		logger:   slog.Default(),
		observer: xmetrics.NoopObserver{},
		now:      time.Now,
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

// WithClock 设置时间来源，用于校验身份服务返回的过期时间。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
