package xsession

// 可观测性常量。
const (
	MetricsComponent      = "xsession"
	MetricsOpDo           = "do"
	MetricsOpGetOrRefresh = "get_or_refresh"
	MetricsOpRefresh      = "refresh"
)
