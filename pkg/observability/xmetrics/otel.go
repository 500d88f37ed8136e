package xmetrics

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xstack"
	unknownName                = "unknown"

	metricOperationTotal    = "xstack.operation.total"
	metricOperationDuration = "xstack.operation.duration"
	metricRetryTotal        = "xstack.session.retry.total"
)

// dimensionKeys 是会进入指标维度的 span 属性，取值集合有限。
// 其余属性（URL、请求 ID、代数）只记录在 span 上。
var dimensionKeys = map[string]struct{}{
	KeyService:    {},
	KeyAuthMethod: {},
	KeyRefreshWhy: {},
}

type otelConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// Option 定义 OTel Observer 的配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 OTel instrumentation 名称。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// OTelObserver 基于 OpenTelemetry 实现 [Observer]。
//
// 每个 span 结束时记录：
//   - xstack.operation.total 与 xstack.operation.duration，维度为 component、operation、status，
//     以及 span 上出现的 openstack.service、openstack.auth_method、xstack.refresh_reason
//   - xstack.session.retry.total：结果带 xstack.retried=true 时加一，即一次刷新后重试
type OTelObserver struct {
	tracer   trace.Tracer
	total    metric.Int64Counter
	duration metric.Float64Histogram
	retries  metric.Int64Counter
}

var _ Observer = (*OTelObserver)(nil)

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer。
// 未指定 Provider 时使用 otel 全局 Provider。
func NewOTelObserver(opts ...Option) (*OTelObserver, error) {
	cfg := &otelConfig{
		instrumentationName: defaultInstrumentationName,
		tracerProvider:      otel.GetTracerProvider(),
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)
	o := &OTelObserver{tracer: cfg.tracerProvider.Tracer(cfg.instrumentationName)}

	var err error
	if o.total, err = meter.Int64Counter(metricOperationTotal,
		metric.WithDescription("session layer operations by outcome"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateCounter, metricOperationTotal, err)
	}
	if o.retries, err = meter.Int64Counter(metricRetryTotal,
		metric.WithDescription("requests replayed after a forced credential refresh"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateCounter, metricRetryTotal, err)
	}
	if o.duration, err = meter.Float64Histogram(metricOperationDuration,
		metric.WithDescription("session layer operation latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateHistogram, metricOperationDuration, err)
	}
	return o, nil
}

// Start 开始一次观测跨度。span 名称为 "<component>.<operation>"，
// context 中的请求 ID 作为 openstack.request_id 属性记录。
func (o *OTelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	component := orUnknown(opts.Component)
	operation := orUnknown(opts.Operation)

	spanAttrs := convertAttrs(opts.Attrs)
	if id := RequestID(ctx); id != "" {
		spanAttrs = append(spanAttrs, attribute.String(KeyRequestID, id))
	}
	spanAttrs = append(spanAttrs,
		attribute.String("component", component),
		attribute.String("operation", operation),
	)

	kind := trace.SpanKindInternal
	if opts.Kind == KindClient {
		kind = trace.SpanKindClient
	}
	ctx, span := o.tracer.Start(ctx, component+"."+operation,
		trace.WithSpanKind(kind),
		trace.WithAttributes(spanAttrs...),
	)

	dims := []attribute.KeyValue{
		attribute.String("component", component),
		attribute.String("operation", operation),
	}
	for _, kv := range spanAttrs {
		if _, ok := dimensionKeys[string(kv.Key)]; ok && kv.Value.Type() == attribute.STRING {
			dims = append(dims, kv)
		}
	}

	return ctx, &otelSpan{
		observer: o,
		span:     span,
		ctx:      ctx,
		dims:     dims,
		start:    time.Now(),
	}
}

type otelSpan struct {
	observer *OTelObserver
	span     trace.Span
	ctx      context.Context
	dims     []attribute.KeyValue
	start    time.Time
	once     sync.Once
}

// End 结束观测并记录结果。重复调用只有第一次生效。
func (s *otelSpan) End(result Result) {
	if s == nil {
		return
	}
	s.once.Do(func() { s.end(result) })
}

func (s *otelSpan) end(result Result) {
	status := result.Status
	if status == "" {
		status = StatusOK
		if result.Err != nil {
			status = StatusError
		}
	}

	if result.Err != nil {
		s.span.RecordError(result.Err)
	}
	if status == StatusError {
		desc := "operation failed"
		if result.Err != nil {
			desc = result.Err.Error()
		}
		s.span.SetStatus(codes.Error, desc)
	} else {
		s.span.SetStatus(codes.Ok, "")
	}

	retried := false
	for _, attr := range result.Attrs {
		if attr.Key == KeyRetried {
			retried, _ = attr.Value.(bool) //nolint:errcheck // 非 bool 视为未重试
		}
	}
	if converted := convertAttrs(result.Attrs); len(converted) > 0 {
		s.span.SetAttributes(converted...)
	}
	s.span.End()

	// 请求 ctx 可能已取消，指标仍要落地。
	ctx := context.WithoutCancel(s.ctx)
	dims := append(s.dims[:len(s.dims):len(s.dims)], attribute.String("status", string(status)))
	set := metric.WithAttributes(dims...)
	s.observer.total.Add(ctx, 1, set)
	s.observer.duration.Record(ctx, time.Since(s.start).Seconds(), set)
	if retried {
		s.observer.retries.Add(ctx, 1, metric.WithAttributes(s.dims...))
	}
}

func orUnknown(name string) string {
	if name == "" {
		return unknownName
	}
	return name
}

// convertAttrs 将 Attr 转换为 OTel 属性，跳过空 key 与 nil 值。
func convertAttrs(attrs []Attr) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Key == "" || attr.Value == nil {
			continue
		}
		out = append(out, toKeyValue(attr))
	}
	return out
}

func toKeyValue(attr Attr) attribute.KeyValue {
	key := attribute.Key(attr.Key)
	switch v := attr.Value.(type) {
	case string:
		return key.String(v)
	case bool:
		return key.Bool(v)
	case int:
		return key.Int(v)
	case int64:
		return key.Int64(v)
	case uint64:
		// 令牌代数等计数超出 int64 时退化为字符串
		if v > math.MaxInt64 {
			return key.String(fmt.Sprint(v))
		}
		return key.Int64(int64(v))
	case float64:
		return key.Float64(v)
	case time.Duration:
		return key.Int64(v.Milliseconds())
	default:
		return key.String(fmt.Sprint(v))
	}
}
