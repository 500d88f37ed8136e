package xcloudconfig

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/omeyang/xstack/pkg/cloud/xcatalog"
	"github.com/omeyang/xstack/pkg/cloud/xidentity"
	"github.com/omeyang/xstack/pkg/cloud/xsession"
	"github.com/omeyang/xstack/pkg/cloud/xtransport"
)

// DefaultDomain 以名称引用用户或 project 且未给出 domain 时使用的 domain 名称。
const DefaultDomain = "Default"

// 规范化后的 auth_type。
const (
	AuthTypePassword              = "password"
	AuthTypeToken                 = "token"
	AuthTypeApplicationCredential = "application_credential"
	AuthTypeNone                  = "none"
)

// endpointOverrideSuffix clouds 文件中 "<service>_endpoint_override" 键的后缀。
const endpointOverrideSuffix = "_endpoint_override"

// AuthConfig 对应 clouds 文件中 auth 段。
type AuthConfig struct {
	AuthURL string `koanf:"auth_url"`

	Username       string `koanf:"username"`
	UserID         string `koanf:"user_id"`
	Password       string `koanf:"password"`
	UserDomainName string `koanf:"user_domain_name"`
	UserDomainID   string `koanf:"user_domain_id"`

	ProjectName       string `koanf:"project_name"`
	ProjectID         string `koanf:"project_id"`
	ProjectDomainName string `koanf:"project_domain_name"`
	ProjectDomainID   string `koanf:"project_domain_id"`

	DomainName string `koanf:"domain_name"`
	DomainID   string `koanf:"domain_id"`

	Token string `koanf:"token"`

	ApplicationCredentialID     string `koanf:"application_credential_id"`
	ApplicationCredentialName   string `koanf:"application_credential_name"`
	ApplicationCredentialSecret string `koanf:"application_credential_secret"`

	// Endpoint 无认证模式下所有服务使用的地址。
	Endpoint string `koanf:"endpoint"`
}

// CloudConfig 一个云的完整配置。
type CloudConfig struct {
	// Name 云名称（clouds 文件中的键，环境变量来源为 "envvars"）。
	Name string `koanf:"-"`

	AuthType   string     `koanf:"auth_type"`
	Auth       AuthConfig `koanf:"auth"`
	RegionName string     `koanf:"region_name"`
	Interface  string     `koanf:"interface"`

	// Verify 为 false 时跳过证书校验，nil 表示校验。
	Verify *bool  `koanf:"verify"`
	CACert string `koanf:"cacert"`
	Cert   string `koanf:"cert"`
	Key    string `koanf:"key"`

	// APITimeout 单次 HTTP 请求超时（秒），0 使用传输层默认值。
	APITimeout float64 `koanf:"api_timeout"`

	// EndpointOverrides 服务类型 → 固定地址，来自 "<service>_endpoint_override" 键。
	EndpointOverrides map[string]string `koanf:"-"`

	// Source 配置来源（文件路径或 "env"），仅用于诊断。
	Source string `koanf:"-"`
}

// ApplyDefaults 规范化 auth_type 并补全 domain 默认值。
func (c *CloudConfig) ApplyDefaults() {
	c.AuthType = normalizeAuthType(c.AuthType)
	a := &c.Auth
	if a.UserID == "" && a.Username != "" && a.UserDomainID == "" && a.UserDomainName == "" {
		a.UserDomainName = DefaultDomain
	}
	if a.ProjectID == "" && a.ProjectName != "" && a.ProjectDomainID == "" && a.ProjectDomainName == "" {
		a.ProjectDomainName = DefaultDomain
	}
	c.Interface = strings.TrimSpace(c.Interface)
}

// Validate 校验 auth_type 与接口类型。凭据完整性由对应认证策略校验。
func (c *CloudConfig) Validate() error {
	switch c.AuthType {
	case AuthTypePassword, AuthTypeToken, AuthTypeApplicationCredential:
		if strings.TrimSpace(c.Auth.AuthURL) == "" {
			return fmt.Errorf("%w: cloud %q: auth.auth_url is required", ErrInvalidConfig, c.Name)
		}
	case AuthTypeNone:
		if strings.TrimSpace(c.Auth.Endpoint) == "" {
			return fmt.Errorf("%w: cloud %q: auth.endpoint is required for auth_type none", ErrInvalidConfig, c.Name)
		}
	default:
		return fmt.Errorf("%w: cloud %q: %q", ErrUnsupportedAuthType, c.Name, c.AuthType)
	}
	if c.Interface != "" {
		if _, err := xcatalog.ParseInterface(c.Interface); err != nil {
			return fmt.Errorf("%w: cloud %q: %w", ErrInvalidConfig, c.Name, err)
		}
	}
	if c.APITimeout < 0 {
		return fmt.Errorf("%w: cloud %q: negative api_timeout", ErrInvalidConfig, c.Name)
	}
	return nil
}

// Clone 返回深拷贝。
func (c *CloudConfig) Clone() *CloudConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Verify != nil {
		v := *c.Verify
		clone.Verify = &v
	}
	clone.EndpointOverrides = maps.Clone(c.EndpointOverrides)
	return &clone
}

// Authenticator 按 auth_type 创建认证策略。transport 为 nil 时策略使用默认 HTTP 传输。
func (c *CloudConfig) Authenticator(transport xtransport.Transport, opts ...xidentity.Option) (xidentity.Authenticator, error) {
	a := c.Auth
	var (
		auth xidentity.Authenticator
		err  error
	)
	switch normalizeAuthType(c.AuthType) {
	case AuthTypePassword:
		auth, err = xidentity.NewPassword(xidentity.PasswordCredentials{
			AuthURL:    a.AuthURL,
			User:       idOrName(a.UserID, a.Username),
			UserDomain: idOrName(a.UserDomainID, a.UserDomainName),
			Password:   a.Password,
			Scope:      c.scope(),
		}, transport, opts...)
	case AuthTypeToken:
		auth, err = xidentity.NewTokenAuth(xidentity.TokenCredentials{
			AuthURL: a.AuthURL,
			Token:   a.Token,
			Scope:   c.scope(),
		}, transport, opts...)
	case AuthTypeApplicationCredential:
		auth, err = xidentity.NewApplicationCredential(xidentity.ApplicationCredentialCredentials{
			AuthURL:    a.AuthURL,
			ID:         a.ApplicationCredentialID,
			Name:       a.ApplicationCredentialName,
			Secret:     a.ApplicationCredentialSecret,
			User:       idOrName(a.UserID, a.Username),
			UserDomain: idOrName(a.UserDomainID, a.UserDomainName),
		}, transport, opts...)
	case AuthTypeNone:
		auth, err = xidentity.NewNoAuth(xidentity.NoAuthConfig{Endpoint: a.Endpoint})
	default:
		return nil, fmt.Errorf("%w: cloud %q: %q", ErrUnsupportedAuthType, c.Name, c.AuthType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cloud %q: %w", ErrInvalidConfig, c.Name, err)
	}
	return auth, nil
}

// SessionOptions 返回由配置派生的会话选项：默认 Region、默认接口与固定地址。
func (c *CloudConfig) SessionOptions() []xsession.Option {
	opts := make([]xsession.Option, 0, 3)
	if c.RegionName != "" {
		opts = append(opts, xsession.WithDefaultRegion(c.RegionName))
	}
	if iface, err := xcatalog.ParseInterface(c.Interface); err == nil && c.Interface != "" {
		opts = append(opts, xsession.WithDefaultInterfaces(iface))
	}
	if len(c.EndpointOverrides) > 0 {
		opts = append(opts, xsession.WithEndpointOverrides(c.EndpointOverrides))
	}
	return opts
}

// HTTPConfig 返回由 verify/cacert/cert/key/api_timeout 派生的传输配置。
func (c *CloudConfig) HTTPConfig() xtransport.HTTPConfig {
	cfg := xtransport.HTTPConfig{}
	if c.APITimeout != 0 {
		cfg.Timeout = time.Duration(c.APITimeout * float64(time.Second))
	}
	insecure := c.Verify != nil && !*c.Verify
	if insecure || c.CACert != "" || c.Cert != "" || c.Key != "" {
		cfg.TLS = &xtransport.TLSConfig{
			InsecureSkipVerify: insecure,
			RootCAFile:         c.CACert,
			CertFile:           c.Cert,
			KeyFile:            c.Key,
		}
	}
	return cfg
}

// NewSession 按配置创建传输层、认证策略与会话。
// 传输层由返回的会话共享给认证策略，会话关闭后调用方不应再使用它们。
func NewSession(cfg *CloudConfig, opts ...Option) (*xsession.Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil cloud config", ErrInvalidConfig)
	}
	o := applyOptions(opts)

	transport, err := xtransport.NewHTTPTransport(cfg.HTTPConfig(),
		xtransport.WithLogger(o.logger),
		xtransport.WithObserver(o.observer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: cloud %q: %w", ErrInvalidConfig, cfg.Name, err)
	}

	auth, err := cfg.Authenticator(transport,
		xidentity.WithLogger(o.logger),
		xidentity.WithObserver(o.observer),
	)
	if err != nil {
		return nil, err
	}

	sessOpts := append([]xsession.Option{
		xsession.WithTransport(transport),
		xsession.WithLogger(o.logger),
		xsession.WithObserver(o.observer),
	}, cfg.SessionOptions()...)
	sessOpts = append(sessOpts, o.sessionOpts...)
	return xsession.New(auth, sessOpts...)
}

// scope 返回配置描述的作用域：project 优先，其次 domain。
func (c *CloudConfig) scope() xidentity.Scope {
	a := c.Auth
	project := idOrName(a.ProjectID, a.ProjectName)
	if !project.IsZero() {
		return xidentity.Scope{
			Project:       project,
			ProjectDomain: idOrName(a.ProjectDomainID, a.ProjectDomainName),
		}
	}
	return xidentity.Scope{Domain: idOrName(a.DomainID, a.DomainName)}
}

func idOrName(id, name string) xidentity.IDOrName {
	if id != "" {
		return xidentity.ByID(id)
	}
	return xidentity.ByName(name)
}

// normalizeAuthType 把 auth_type 的各种写法归一。
func normalizeAuthType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "password", "v3password":
		return AuthTypePassword
	case "token", "v3token":
		return AuthTypeToken
	case "application_credential", "v3applicationcredential", "applicationcredential":
		return AuthTypeApplicationCredential
	case "none", "noauth":
		return AuthTypeNone
	default:
		return strings.ToLower(strings.TrimSpace(t))
	}
}
