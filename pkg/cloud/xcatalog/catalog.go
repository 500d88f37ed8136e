package xcatalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Interface 接口类型
// =============================================================================

// Interface 表示端点的可见性类别。
type Interface string

const (
	// InterfacePublic 公网端点。
	InterfacePublic Interface = "public"
	// InterfaceInternal 内网端点。
	InterfaceInternal Interface = "internal"
	// InterfaceAdmin 管理端点。
	InterfaceAdmin Interface = "admin"
)

// ParseInterface 解析接口类型字符串。
// 兼容 v2 风格的 "publicURL"/"internalURL"/"adminURL"，大小写不敏感。
func ParseInterface(s string) (Interface, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, "url")
	switch Interface(v) {
	case InterfacePublic, InterfaceInternal, InterfaceAdmin:
		return Interface(v), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidInterface, s)
}

// Valid 判断接口类型是否为已知取值。
func (i Interface) Valid() bool {
	switch i {
	case InterfacePublic, InterfaceInternal, InterfaceAdmin:
		return true
	}
	return false
}

func (i Interface) String() string {
	return string(i)
}

// AllInterfaces 返回全部接口类型，顺序为 public、internal、admin。
func AllInterfaces() []Interface {
	return []Interface{InterfacePublic, InterfaceInternal, InterfaceAdmin}
}

// =============================================================================
// 目录数据结构
// =============================================================================

// WildcardServiceType 是通配服务类型，仅在没有精确匹配的条目时参与解析。
// 用于无认证模式下的合成目录。
const WildcardServiceType = "*"

// DefaultMemoSize 解析结果缓存的默认容量。
const DefaultMemoSize = 128

// Endpoint 表示一个服务端点。
type Endpoint struct {
	// ID 端点 ID（仅供诊断）。
	ID string `json:"id,omitempty"`

	// Interface 接口类型。
	Interface Interface `json:"interface"`

	// Region 所属 Region，空字符串表示匹配任意 Region。
	Region string `json:"region,omitempty"`

	// URL 端点基础 URL。
	URL string `json:"url"`
}

// ServiceEntry 表示目录中的一个服务。
type ServiceEntry struct {
	// ID 服务 ID（仅供诊断）。
	ID string `json:"id,omitempty"`

	// Type 服务类型，例如 "identity"、"compute"。
	Type string `json:"type"`

	// Name 服务名称，仅作展示用途。
	Name string `json:"name,omitempty"`

	// Endpoints 端点列表，保持身份服务返回的顺序。
	Endpoints []Endpoint `json:"endpoints"`
}

// Catalog 是不可变的服务目录。
// 必须通过 NewCatalog 或 ParseKeystoneCatalog 创建。
type Catalog struct {
	services    []ServiceEntry
	fingerprint uint64
	memo        *lru.Cache[string, Endpoint]
}

// NewCatalog 校验并创建目录。
// 输入会被深拷贝，调用方后续修改 services 不影响目录。
func NewCatalog(services []ServiceEntry) (*Catalog, error) {
	copied := make([]ServiceEntry, 0, len(services))
	for i, svc := range services {
		if strings.TrimSpace(svc.Type) == "" {
			return nil, fmt.Errorf("%w: service #%d has empty type", ErrMalformedCatalog, i)
		}
		for j, ep := range svc.Endpoints {
			if !ep.Interface.Valid() {
				return nil, fmt.Errorf("%w: service %q endpoint #%d: unknown interface %q",
					ErrMalformedCatalog, svc.Type, j, ep.Interface)
			}
			if strings.TrimSpace(ep.URL) == "" {
				return nil, fmt.Errorf("%w: service %q endpoint #%d has empty url", ErrMalformedCatalog, svc.Type, j)
			}
		}
		svc.Endpoints = slices.Clone(svc.Endpoints)
		copied = append(copied, svc)
	}

	// size > 0 时 lru.New 不会返回错误
	memo, _ := lru.New[string, Endpoint](DefaultMemoSize) //nolint:errcheck // 常量容量

	return &Catalog{
		services:    copied,
		fingerprint: fingerprint(copied),
		memo:        memo,
	}, nil
}

// Len 返回服务数量。nil 目录返回 0。
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.services)
}

// Services 返回服务列表的副本。
func (c *Catalog) Services() []ServiceEntry {
	if c == nil {
		return nil
	}
	out := make([]ServiceEntry, len(c.services))
	for i, svc := range c.services {
		svc.Endpoints = slices.Clone(svc.Endpoints)
		out[i] = svc
	}
	return out
}

// Service 按类型精确查找服务，返回副本。
func (c *Catalog) Service(serviceType string) (ServiceEntry, bool) {
	if c == nil {
		return ServiceEntry{}, false
	}
	for _, svc := range c.services {
		if svc.Type == serviceType {
			svc.Endpoints = slices.Clone(svc.Endpoints)
			return svc, true
		}
	}
	return ServiceEntry{}, false
}

// ServiceTypes 按目录顺序返回全部服务类型。
func (c *Catalog) ServiceTypes() []string {
	if c == nil {
		return nil
	}
	types := make([]string, 0, len(c.services))
	for _, svc := range c.services {
		types = append(types, svc.Type)
	}
	return types
}

// Fingerprint 返回目录内容摘要。
// 内容与顺序完全一致的两个目录摘要相同。
func (c *Catalog) Fingerprint() uint64 {
	if c == nil {
		return 0
	}
	return c.fingerprint
}

// fingerprint 以 0 字节分隔各字段，避免拼接歧义。
func fingerprint(services []ServiceEntry) uint64 {
	d := xxhash.New()
	sep := []byte{0}
	for _, svc := range services {
		_, _ = d.WriteString(svc.Type) //nolint:errcheck // Digest 写入不会失败
		_, _ = d.Write(sep)            //nolint:errcheck
		_, _ = d.WriteString(svc.Name) //nolint:errcheck
		_, _ = d.Write(sep)            //nolint:errcheck
		for _, ep := range svc.Endpoints {
			_, _ = d.WriteString(string(ep.Interface)) //nolint:errcheck
			_, _ = d.Write(sep)                        //nolint:errcheck
			_, _ = d.WriteString(ep.Region)            //nolint:errcheck
			_, _ = d.Write(sep)                        //nolint:errcheck
			_, _ = d.WriteString(ep.URL)               //nolint:errcheck
			_, _ = d.Write(sep)                        //nolint:errcheck
		}
		_, _ = d.Write([]byte{1}) //nolint:errcheck
	}
	return d.Sum64()
}
