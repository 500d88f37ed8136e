package xcatalog

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// 版本约束
// =============================================================================

// Version 表示 API 主次版本号。零值表示未设置。
type Version struct {
	Major int
	Minor int
}

// ParseVersion 解析 "2"、"2.1"、"v2.1" 形式的版本号。
func ParseVersion(s string) (Version, error) {
	v := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "v")
	majorStr, minorStr, hasMinor := strings.Cut(v, ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil || major < 0 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	var minor int
	if hasMinor {
		minor, err = strconv.Atoi(minorStr)
		if err != nil || minor < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
	}
	return Version{Major: major, Minor: minor}, nil
}

// IsZero 判断版本是否未设置。
func (v Version) IsZero() bool {
	return v == Version{}
}

// Compare 比较两个版本，返回 -1、0、1。
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		if v.Major < other.Major {
			return -1
		}
		return 1
	case v.Minor != other.Minor:
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	}
	return 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// VersionRange 表示闭区间 [Min, Max]，零值边界表示不限。
type VersionRange struct {
	Min Version
	Max Version
}

// Bounded 判断区间是否设置了任一边界。
func (r VersionRange) Bounded() bool {
	return !r.Min.IsZero() || !r.Max.IsZero()
}

// Contains 判断版本是否落在区间内。
func (r VersionRange) Contains(v Version) bool {
	if !r.Min.IsZero() && v.Compare(r.Min) < 0 {
		return false
	}
	if !r.Max.IsZero() && v.Compare(r.Max) > 0 {
		return false
	}
	return true
}

// versionSegment 匹配 URL 路径中的版本段，例如 v2、v2.1。
var versionSegment = regexp.MustCompile(`^v(\d+)(?:\.(\d+))?$`)

// endpointVersion 取 URL 路径中最后一个版本段。
// 例如 https://compute.example.com/v2.1/abc 返回 2.1。
func endpointVersion(rawURL string) (Version, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Version{}, false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		m := versionSegment.FindStringSubmatch(segments[i])
		if m == nil {
			continue
		}
		major, _ := strconv.Atoi(m[1]) //nolint:errcheck // 正则保证是数字
		minor := 0
		if m[2] != "" {
			minor, _ = strconv.Atoi(m[2]) //nolint:errcheck
		}
		return Version{Major: major, Minor: minor}, true
	}
	return Version{}, false
}

// =============================================================================
// EndpointQuery 与解析
// =============================================================================

// EndpointQuery 描述一次端点解析请求。
type EndpointQuery struct {
	// ServiceType 服务类型，精确匹配。
	ServiceType string

	// Interfaces 接口偏好列表，按顺序尝试。为空时使用 [public]。
	Interfaces []Interface

	// Region 期望的 Region，为空表示不限。
	Region string

	// Version 可选的 API 版本区间。
	Version VersionRange
}

// interfaces 返回生效的接口偏好列表。
func (q EndpointQuery) interfaces() []Interface {
	if len(q.Interfaces) == 0 {
		return []Interface{InterfacePublic}
	}
	return q.Interfaces
}

// key 生成缓存键。
func (q EndpointQuery) key() string {
	var b strings.Builder
	b.WriteString(q.ServiceType)
	b.WriteByte(0)
	for _, i := range q.interfaces() {
		b.WriteString(string(i))
		b.WriteByte(',')
	}
	b.WriteByte(0)
	b.WriteString(q.Region)
	b.WriteByte(0)
	b.WriteString(q.Version.Min.String())
	b.WriteByte('-')
	b.WriteString(q.Version.Max.String())
	return b.String()
}

// Resolve 按查询条件选出一个端点。
//
// 相同目录与相同查询总是返回相同结果；多个候选时取目录顺序中的第一个。
// 失败时返回 *ResolveError，可用 errors.Is 匹配 ErrNoMatchingService / ErrNoMatchingEndpoint。
func (c *Catalog) Resolve(q EndpointQuery) (Endpoint, error) {
	if c == nil {
		return Endpoint{}, &ResolveError{Query: q, Err: ErrNoMatchingService}
	}

	key := q.key()
	if c.memo != nil {
		if ep, ok := c.memo.Get(key); ok {
			return ep, nil
		}
	}

	ep, err := c.resolve(q)
	if err != nil {
		return Endpoint{}, err
	}
	if c.memo != nil {
		c.memo.Add(key, ep)
	}
	return ep, nil
}

// ResolveURL 与 Resolve 相同，仅返回 URL。
func (c *Catalog) ResolveURL(q EndpointQuery) (string, error) {
	ep, err := c.Resolve(q)
	if err != nil {
		return "", err
	}
	return ep.URL, nil
}

func (c *Catalog) resolve(q EndpointQuery) (Endpoint, error) {
	svc, ok := c.matchService(q.ServiceType)
	if !ok {
		return Endpoint{}, &ResolveError{Query: q, Err: ErrNoMatchingService}
	}

	candidates := make([]Endpoint, 0, len(svc.Endpoints))
	for _, ep := range svc.Endpoints {
		if q.Region != "" && ep.Region != "" && ep.Region != q.Region {
			continue
		}
		if q.Version.Bounded() {
			if v, versioned := endpointVersion(ep.URL); versioned && !q.Version.Contains(v) {
				continue
			}
		}
		candidates = append(candidates, ep)
	}

	for _, want := range q.interfaces() {
		for _, ep := range candidates {
			if ep.Interface == want {
				return ep, nil
			}
		}
	}
	return Endpoint{}, &ResolveError{Query: q, Err: ErrNoMatchingEndpoint}
}

// matchService 先精确匹配，再回退到通配条目。
func (c *Catalog) matchService(serviceType string) (*ServiceEntry, bool) {
	var wildcard *ServiceEntry
	for i := range c.services {
		svc := &c.services[i]
		if svc.Type == serviceType {
			return svc, true
		}
		if wildcard == nil && svc.Type == WildcardServiceType {
			wildcard = svc
		}
	}
	return wildcard, wildcard != nil
}
