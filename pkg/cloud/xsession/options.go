package xsession

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xstack/pkg/cloud/xcatalog"
	"github.com/omeyang/xstack/pkg/cloud/xtransport"
	"github.com/omeyang/xstack/pkg/observability/xmetrics"
)

const (
	// DefaultExpirySkew 令牌提前视为过期的时间。
	DefaultExpirySkew = 30 * time.Second

	// DefaultRefreshTimeout 单次刷新（身份服务调用）的超时时间。
	DefaultRefreshTimeout = 30 * time.Second
)

// =============================================================================
// Options
// =============================================================================

// options 定义会话的可选配置。
type options struct {
	transport      xtransport.Transport
	logger         *slog.Logger
	observer       xmetrics.Observer
	expirySkew     time.Duration
	refreshTimeout time.Duration
	now            func() time.Time
	breaker        *BreakerConfig
	classifier     RejectionClassifier
	overrides      map[string]string
	interfaces     []xcatalog.Interface
	region         string
	requestID      func() string
}

// Option 定义配置会话的函数类型。
type Option func(*options)

func defaultOptions() *options {
	return &options{
		logger:         slog.Default(),
		observer:       xmetrics.NoopObserver{},
		expirySkew:     DefaultExpirySkew,
		refreshTimeout: DefaultRefreshTimeout,
		now:            time.Now,
		classifier:     DefaultRejectionClassifier,
		overrides:      map[string]string{},
		interfaces:     []xcatalog.Interface{xcatalog.InterfacePublic},
		requestID:      newRequestID,
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

// newRequestID 生成 X-OpenStack-Request-ID，格式 req-<uuid>。
func newRequestID() string {
	return "req-" + uuid.NewString()
}

// WithTransport 设置传输层。未设置时会话创建并持有默认 HTTP 传输。
// 注入的传输由调用方持有，Close 不会释放它。
func WithTransport(t xtransport.Transport) Option {
	return func(o *options) {
		if t != nil {
			o.transport = t
		}
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

// WithExpirySkew 设置令牌提前过期时间，默认 30 秒。负值视为 0。
func WithExpirySkew(d time.Duration) Option {
	return func(o *options) {
		o.expirySkew = max(d, 0)
	}
}

// WithRefreshTimeout 设置刷新超时，默认 30 秒。
func WithRefreshTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.refreshTimeout = d
		}
	}
}

// WithClock 设置时间来源（测试用）。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIdentityBreaker 启用身份服务熔断器。
// 默认关闭：每次刷新失败后，下一次访问都会重新尝试。
func WithIdentityBreaker(cfg BreakerConfig) Option {
	return func(o *options) {
		o.breaker = &cfg
	}
}

// WithRejectionClassifier 设置认证拒绝判定，nil 时使用 DefaultRejectionClassifier。
func WithRejectionClassifier(c RejectionClassifier) Option {
	return func(o *options) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithEndpointOverride 为服务类型指定固定地址，绕过目录解析。
func WithEndpointOverride(serviceType, url string) Option {
	return func(o *options) {
		if serviceType != "" && url != "" {
			o.overrides[serviceType] = url
		}
	}
}

// WithEndpointOverrides 批量设置固定地址。
func WithEndpointOverrides(overrides map[string]string) Option {
	return func(o *options) {
		for k, v := range overrides {
			if k != "" && v != "" {
				o.overrides[k] = v
			}
		}
	}
}

// WithDefaultInterfaces 设置请求未指定接口时的偏好顺序，默认 [public]。
func WithDefaultInterfaces(ifaces ...xcatalog.Interface) Option {
	return func(o *options) {
		if len(ifaces) > 0 {
			o.interfaces = append([]xcatalog.Interface(nil), ifaces...)
		}
	}
}

// WithDefaultRegion 设置请求未指定 Region 时使用的 Region。
func WithDefaultRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithRequestIDGenerator 设置请求 ID 生成函数（测试用）。
func WithRequestIDGenerator(gen func() string) Option {
	return func(o *options) {
		if gen != nil {
			o.requestID = gen
		}
	}
}
