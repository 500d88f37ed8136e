package xcatalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatchingService 表示目录中没有请求的服务类型。
	ErrNoMatchingService = errors.New("xcatalog: no matching service")

	// ErrNoMatchingEndpoint 表示服务存在，但没有端点通过接口/Region/版本过滤。
	ErrNoMatchingEndpoint = errors.New("xcatalog: no matching endpoint")

	// ErrMalformedCatalog 表示目录数据不合法（缺少类型、URL 或接口未知）。
	ErrMalformedCatalog = errors.New("xcatalog: malformed catalog")

	// ErrInvalidInterface 表示无法识别的接口类型字符串。
	ErrInvalidInterface = errors.New("xcatalog: invalid interface")

	// ErrInvalidVersion 表示无法解析的版本字符串。
	ErrInvalidVersion = errors.New("xcatalog: invalid version")
)

// ResolveError 描述一次解析失败，Err 为 ErrNoMatchingService 或 ErrNoMatchingEndpoint。
type ResolveError struct {
	Query EndpointQuery
	Err   error
}

func (e *ResolveError) Error() string {
	if e.Query.Region != "" {
		return fmt.Sprintf("%v: service=%q interfaces=%v region=%q", e.Err, e.Query.ServiceType, e.Query.Interfaces, e.Query.Region)
	}
	return fmt.Sprintf("%v: service=%q interfaces=%v", e.Err, e.Query.ServiceType, e.Query.Interfaces)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// IsNotFound 判断错误是否为解析未命中（服务或端点不存在）。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoMatchingService) || errors.Is(err, ErrNoMatchingEndpoint)
}
