package xcloudconfig

import (
	"log/slog"
	"os"

	"github.com/omeyang/xstack/pkg/cloud/xsession"
	"github.com/omeyang/xstack/pkg/observability/xmetrics"
)

// options 定义加载与构造会话的可选配置。
type options struct {
	searchDirs  []string
	configFile  string
	secureFile  string
	lookupEnv   func(string) (string, bool)
	logger      *slog.Logger
	observer    xmetrics.Observer
	sessionOpts []xsession.Option
}

// Option 定义配置函数类型。
type Option func(*options)

func defaultOptions() *options {
	return &options{
		lookupEnv: os.LookupEnv,
		logger:    slog.Default(),
		observer:  xmetrics.NoopObserver{},
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.searchDirs == nil {
		o.searchDirs = defaultSearchDirs()
	}
	return o
}

// WithSearchDirs 替换默认的查找目录（当前目录、用户配置目录、/etc/openstack）。
func WithSearchDirs(dirs ...string) Option {
	return func(o *options) {
		o.searchDirs = append([]string{}, dirs...)
	}
}

// WithConfigFile 指定 clouds 文件路径，优先于 $OS_CLIENT_CONFIG_FILE 与目录查找。
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithSecureFile 指定 secure 文件路径，优先于 $OS_CLIENT_SECURE_FILE 与目录查找。
func WithSecureFile(path string) Option {
	return func(o *options) {
		o.secureFile = path
	}
}

// WithLookupEnv 设置环境变量读取函数，默认 os.LookupEnv。
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(o *options) {
		if lookup != nil {
			o.lookupEnv = lookup
		}
	}
}

// WithLogger 设置日志记录器，同时传递给传输层、认证策略与会话。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置可观测性接口，同时传递给传输层、认证策略与会话。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithSessionOptions 追加 NewSession 使用的会话选项，在配置派生的选项之后应用。
func WithSessionOptions(opts ...xsession.Option) Option {
	return func(o *options) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// env 返回非空的环境变量值。
func (o *options) env(name string) string {
	if v, ok := o.lookupEnv(name); ok {
		return v
	}
	return ""
}
