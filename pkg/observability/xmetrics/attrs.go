package xmetrics

import "time"

// 会话层约定的属性键。
const (
	KeyService     = "openstack.service"
	KeyInterface   = "openstack.interface"
	KeyRegion      = "openstack.region"
	KeyAuthMethod  = "openstack.auth_method"
	KeyRequestID   = "openstack.request_id"
	KeyGeneration  = "openstack.token_generation"
	KeyHTTPMethod  = "http.request.method"
	KeyHTTPStatus  = "http.response.status_code"
	KeyRetried     = "xstack.retried"
	KeyRefreshWhy  = "xstack.refresh_reason"
	KeyAttempts    = "xstack.attempts"
	KeyCacheResult = "xstack.cache_result"
)

// String 创建字符串属性。
func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Bool 创建布尔属性。
func Bool(key string, value bool) Attr {
	return Attr{Key: key, Value: value}
}

// Int 创建整数属性。
func Int(key string, value int) Attr {
	return Attr{Key: key, Value: value}
}

// Uint64 创建 uint64 属性。
func Uint64(key string, value uint64) Attr {
	return Attr{Key: key, Value: value}
}

// Duration 创建时间间隔属性。
// 建议显式使用带单位的 key，例如 "duration_ms"。
func Duration(key string, value time.Duration) Attr {
	return Attr{Key: key, Value: value}
}

// Service 创建服务类型属性。
func Service(serviceType string) Attr {
	return String(KeyService, serviceType)
}

// Interface 创建端点接口属性。
func Interface(iface string) Attr {
	return String(KeyInterface, iface)
}

// Region 创建区域属性。空区域不记录。
func Region(region string) Attr {
	if region == "" {
		return Attr{}
	}
	return String(KeyRegion, region)
}

// AuthMethod 创建认证方式属性。
func AuthMethod(method string) Attr {
	return String(KeyAuthMethod, method)
}

// HTTPStatus 创建响应状态码属性。
func HTTPStatus(code int) Attr {
	return Int(KeyHTTPStatus, code)
}

// Generation 创建令牌代数属性。
func Generation(gen uint64) Attr {
	return Uint64(KeyGeneration, gen)
}
