package xmetrics

import "errors"

var (
	// ErrCreateCounter 表示注册 OTel Counter 失败，错误信息带指标名。
	ErrCreateCounter = errors.New("xmetrics: create counter failed")
	// ErrCreateHistogram 表示注册 OTel Histogram 失败，错误信息带指标名。
	ErrCreateHistogram = errors.New("xmetrics: create histogram failed")
)
