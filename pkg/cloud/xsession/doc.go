// Package xsession 提供云 API 会话：令牌缓存、端点解析和一次性的刷新重试。
//
// # 令牌缓存
//
// TokenCache 持有一个认证策略（xidentity.Authenticator）和最近一次成功认证的
// Credential（令牌 + 服务目录 + 代数）。状态只有三种：
//
//	Empty ──GetOrRefresh──▶ Refreshing ──成功──▶ Valid
//	  ▲                        │                  │
//	  └──────────失败──────────┘◀──过期/拒绝/Invalidate
//
// 同一时刻最多只有一次刷新在进行（golang.org/x/sync/singleflight），
// 所有等待者得到同一个结果或同一个错误。有效期内的读取无锁。
// 过期在访问时判断（默认提前 30 秒），不启动后台定时器。
//
// 发起刷新的调用方取消 ctx 只会让它自己提前返回，共享的刷新继续进行，
// 由 WithRefreshTimeout 限定时长。
//
// # 会话
//
// Session 在每个请求上：
//
//  1. 取得有效凭证（必要时刷新）
//  2. 通过目录解析端点（WithEndpointOverride 的固定地址优先）
//  3. 附加 X-Auth-Token 与 X-OpenStack-Request-ID 后发送
//
// 若端点缺失，或响应被 RejectionClassifier 判定为认证拒绝（默认 401），
// 会话强制刷新一次后重试。每个逻辑请求只有一次刷新机会，两种情况共享。
// 多个请求同时被拒绝时，RefreshIfCurrent 按代数去重，只触发一次刷新。
//
// 连接失败（xtransport.ErrConnection）和其他 4xx/5xx 不会触发刷新。
// 状态码 >= 400 的响应以 *APIError 返回；重试后仍被拒绝的 *APIError
// 可用 errors.Is(err, ErrAuthRejected) 判断。
//
// # 熔断
//
// WithIdentityBreaker 启用基于 gobreaker 的身份服务熔断器，只有
// xidentity.ErrUnreachableIdentityService 计为失败。默认关闭。
package xsession
