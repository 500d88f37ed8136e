package xidentity

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/omeyang/xstack/pkg/cloud/xcatalog"
)

// NoAuthConfig 无认证模式配置。
type NoAuthConfig struct {
	// Endpoint 所有请求发往的基础地址。
	Endpoint string

	// ServiceTypes 合成目录包含的服务类型。
	// 为空时生成通配条目，任意服务类型都解析到 Endpoint。
	ServiceTypes []string
}

// NoAuth 无认证策略：不访问网络，返回空令牌与合成目录。
// 适用于独立部署、未接入身份服务的组件（如 standalone 模式的裸金属服务）。
type NoAuth struct {
	result *AuthResult
}

var _ Authenticator = (*NoAuth)(nil)

// NewNoAuth 创建无认证策略。
func NewNoAuth(cfg NoAuthConfig) (*NoAuth, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: noauth requires an endpoint", ErrInvalidConfig)
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: invalid noauth endpoint %q", ErrInvalidConfig, cfg.Endpoint)
	}

	types := cfg.ServiceTypes
	if len(types) == 0 {
		types = []string{xcatalog.WildcardServiceType}
	}

	endpoints := make([]xcatalog.Endpoint, 0, len(xcatalog.AllInterfaces()))
	for _, iface := range xcatalog.AllInterfaces() {
		endpoints = append(endpoints, xcatalog.Endpoint{Interface: iface, URL: endpoint})
	}

	services := make([]xcatalog.ServiceEntry, 0, len(types))
	for _, t := range types {
		services = append(services, xcatalog.ServiceEntry{Type: t, Endpoints: endpoints})
	}

	catalog, err := xcatalog.NewCatalog(services)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &NoAuth{result: &AuthResult{Catalog: catalog}}, nil
}

// Authenticate 返回合成结果，不会失败。
// 结果不可变，所有调用共享同一实例。
func (n *NoAuth) Authenticate(ctx context.Context) (*AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return n.result, nil
}

// Method 返回 "none"。
func (n *NoAuth) Method() string {
	return MethodNone
}
