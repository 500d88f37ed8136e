// Package xmetrics 提供会话层统一的可观测性接口（metrics + tracing）。
//
// # 设计理念
//
// 业务代码只依赖 Observer/Span/Attr 三个最小接口，具体实现可替换。
// 默认实现基于 OpenTelemetry；未配置时使用 NoopObserver，零开销。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xsession",
//		Operation: "do",
//		Kind:      xmetrics.KindClient,
//		Attrs:     []xmetrics.Attr{xmetrics.Service("compute")},
//	})
//	defer func() { span.End(xmetrics.Result{Err: err}) }()
//
// # 请求 ID
//
// WithRequestID 将 X-OpenStack-Request-ID 写入 context，
// OTel 实现会把它作为 span 属性 openstack.request_id 记录，便于与服务端日志关联。
//
// # 指标命名
//
// 统一指标：
//   - xstack.operation.total
//   - xstack.operation.duration
//   - xstack.session.retry.total（401 或端点缺失后刷新并重放的请求数）
//
// 指标维度：component / operation / status，外加 span 上出现的
// openstack.service、openstack.auth_method、xstack.refresh_reason。
// URL、请求 ID、令牌代数只记录在 span 上，不进入指标维度。
package xmetrics
