package xcatalog

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// 身份服务 catalog 线上格式
// =============================================================================

// KeystoneService 对应身份服务 v3 响应中 token.catalog 的单个元素。
type KeystoneService struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Name      string             `json:"name"`
	Endpoints []KeystoneEndpoint `json:"endpoints"`
}

// KeystoneEndpoint 对应 catalog 中的端点记录。
// region_id 优先于已废弃的 region 字段。
type KeystoneEndpoint struct {
	ID        string `json:"id"`
	Interface string `json:"interface"`
	Region    string `json:"region"`
	RegionID  string `json:"region_id"`
	URL       string `json:"url"`
}

// FromKeystone 将线上格式转换为 Catalog。
// 未知接口类型或空 URL 返回 ErrMalformedCatalog。
func FromKeystone(services []KeystoneService) (*Catalog, error) {
	entries := make([]ServiceEntry, 0, len(services))
	for _, svc := range services {
		entry := ServiceEntry{
			ID:        svc.ID,
			Type:      svc.Type,
			Name:      svc.Name,
			Endpoints: make([]Endpoint, 0, len(svc.Endpoints)),
		}
		for _, ep := range svc.Endpoints {
			iface, err := ParseInterface(ep.Interface)
			if err != nil {
				return nil, fmt.Errorf("%w: service %q: %w", ErrMalformedCatalog, svc.Type, err)
			}
			region := ep.RegionID
			if region == "" {
				region = ep.Region
			}
			entry.Endpoints = append(entry.Endpoints, Endpoint{
				ID:        ep.ID,
				Interface: iface,
				Region:    region,
				URL:       ep.URL,
			})
		}
		entries = append(entries, entry)
	}
	return NewCatalog(entries)
}

// ParseKeystoneCatalog 解析 catalog 数组 JSON（即 token.catalog 的值）。
func ParseKeystoneCatalog(data []byte) (*Catalog, error) {
	var services []KeystoneService
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCatalog, err)
	}
	return FromKeystone(services)
}
