package xidentity

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/omeyang/xstack/pkg/cloud/xcatalog"
)

// 认证方式名称，用于日志与指标。
const (
	MethodPassword              = "password"
	MethodToken                 = "token"
	MethodApplicationCredential = "application_credential"
	MethodNone                  = "none"
)

// Authenticator 定义认证策略。
// 实现必须并发安全；每次调用都向身份服务换取新的 Token，不做缓存与重试。
type Authenticator interface {
	// Authenticate 换取 Token 与服务目录。
	Authenticate(ctx context.Context) (*AuthResult, error)

	// Method 返回认证方式名称（仅用于日志）。
	Method() string
}

// AuthResult 是一次认证的结果，创建后不再修改。
type AuthResult struct {
	// Token 认证令牌，NoAuth 为零值。
	Token Token

	// Catalog 服务目录，不为 nil。
	Catalog *xcatalog.Catalog

	// UserID 令牌所属用户 ID（身份服务返回时填充）。
	UserID string

	// ProjectID 令牌作用域 project ID（project 作用域时填充）。
	ProjectID string
}

// IDOrName 通过 ID 或名称引用一个身份对象，ID 优先。
type IDOrName struct {
	ID   string
	Name string
}

// ByID 按 ID 引用。
func ByID(id string) IDOrName {
	return IDOrName{ID: id}
}

// ByName 按名称引用。
func ByName(name string) IDOrName {
	return IDOrName{Name: name}
}

// IsZero 判断是否未设置。
func (r IDOrName) IsZero() bool {
	return r.ID == "" && r.Name == ""
}

func (r IDOrName) wire() *wireRef {
	if r.IsZero() {
		return nil
	}
	if r.ID != "" {
		return &wireRef{ID: r.ID}
	}
	return &wireRef{Name: r.Name}
}

// Scope 认证作用域。
// 设置 Project 时为 project 作用域（按名称引用时必须提供 ProjectDomain）；
// 仅设置 Domain 时为 domain 作用域；均为空时不指定作用域。
type Scope struct {
	Project       IDOrName
	ProjectDomain IDOrName
	Domain        IDOrName
}

// IsZero 判断是否未指定作用域。
func (s Scope) IsZero() bool {
	return s.Project.IsZero() && s.Domain.IsZero()
}

// Validate 校验作用域组合。
func (s Scope) Validate() error {
	if !s.Project.IsZero() && !s.Domain.IsZero() {
		return fmt.Errorf("%w: project and domain scope are mutually exclusive", ErrInvalidConfig)
	}
	if s.Project.ID == "" && s.Project.Name != "" && s.ProjectDomain.IsZero() {
		return fmt.Errorf("%w: project name %q requires a project domain", ErrInvalidConfig, s.Project.Name)
	}
	return nil
}

func (s Scope) wire() *wireScope {
	switch {
	case !s.Project.IsZero():
		p := &wireProject{wireRef: *s.Project.wire()}
		if s.Project.ID == "" {
			p.Domain = s.ProjectDomain.wire()
		}
		return &wireScope{Project: p}
	case !s.Domain.IsZero():
		return &wireScope{Domain: s.Domain.wire()}
	default:
		return nil
	}
}

// tokensURL 规范化 auth_url 并返回 tokens 接口地址。
// 去掉末尾的 "/"，缺少 "/v3" 时补上。
func tokensURL(authURL string) (string, error) {
	raw := strings.TrimSpace(authURL)
	if raw == "" {
		return "", fmt.Errorf("%w: empty auth_url", ErrInvalidConfig)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: parse auth_url: %w", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: auth_url %q must use http or https", ErrInvalidConfig, authURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: auth_url %q has no host", ErrInvalidConfig, authURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	if !strings.HasSuffix(u.Path, "/v3") {
		u.Path += "/v3"
	}
	return u.String() + "/auth/tokens", nil
}
