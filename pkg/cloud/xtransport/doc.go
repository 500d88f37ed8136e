// Package xtransport 定义会话层使用的传输接口及其 HTTP 实现。
//
// Transport 只负责“把请求送出去、把响应原样拿回来”：
//   - 成功收到响应（无论状态码）时返回 *Response，由上层决定如何解释状态码
//   - 连接阶段失败（DNS、拒绝连接、TLS、超时等）返回 *ConnectionError，
//     可用 errors.Is(err, ErrConnection) 识别，表示请求从未到达服务端
//
// 这一区分是会话层重试策略的基础：只有到达服务端并返回 401 的请求才可能触发 Token 刷新重试。
//
// # 连接重试
//
// WithConnectionRetry 提供调用方可配置的连接失败重试（基于 avast/retry-go），
// 仅对 ConnectionError 生效，且要求请求体可重放（Request.GetBody）。默认不重试。
//
// # 测试
//
// MockTransport 由 mockgen 生成，供上层包在单元测试中精确断言调用次数。
package xtransport
