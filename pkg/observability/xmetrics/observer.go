package xmetrics

import (
	"context"
	"strconv"
)

// Kind 区分跨度是进程内的步骤还是对外发出的调用。
type Kind int

const (
	// KindInternal 进程内步骤，例如令牌缓存的单飞刷新、目录解析。
	KindInternal Kind = iota
	// KindClient 对外调用，例如 Keystone 认证、业务服务的 HTTP 请求。
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindClient:
		return "Client"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Status 是跨度的最终结果。
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Attr 是键值形式的观测属性。Key 为空或 Value 为 nil 时不记录。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 描述要开始的跨度。
type SpanOptions struct {
	// Component 发起方包名，如 "xsession"、"xidentity"、"xtransport"。
	Component string
	// Operation 操作名，如 "do"、"refresh"、"authenticate"。
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 是跨度结束时上报的结果。
// Status 为空时由 Err 决定：有错误即 StatusError。
type Result struct {
	Status Status
	Err    error
	Attrs  []Attr
}

// Span 是一次进行中的观测。
type Span interface {
	End(result Result)
}

// Observer 是会话层各组件上报跨度的唯一入口。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 不记录任何内容，是各组件的默认 Observer。
type NoopObserver struct{}

// Start 原样返回 ctx（nil 时为 context.Background()）。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 的 End 什么也不做。
type NoopSpan struct{}

func (NoopSpan) End(Result) {}

// Start 通过 observer 开始跨度，组件内部统一经由它调用。
// 返回值永不为 nil：nil ctx 换成 context.Background()，
// nil observer 或 observer 返回 nil 时用 [NoopSpan] 与原 ctx 兜底。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	next, span := observer.Start(ctx, opts)
	if next == nil {
		next = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return next, span
}
