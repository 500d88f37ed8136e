// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xmetrics: 统一可观测性接口（指标、追踪），云会话层的 span 与计数均经由它上报
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 未配置 Observer 时退化为 NoopObserver，不产生任何开销
package observability
