// Package xidentity 实现身份服务（v3 tokens API）的认证策略。
//
// 每种策略实现 Authenticator 接口，一次 Authenticate 调用向身份服务换取
// 一个 Token 和对应的服务目录（xcatalog.Catalog）：
//
//   - Password：用户名/ID + 密码，可选 project 或 domain 作用域
//   - TokenAuth：用已有 Token 换取新 Token，支持重新设定作用域
//   - ApplicationCredential：应用凭据（id 或 name+user）+ secret，作用域由凭据自身决定
//   - NoAuth：不访问网络，返回空 Token 与指向固定地址的合成目录
//
// # 错误
//
// 所有策略都把失败归类为以下哨兵错误之一，可用 errors.Is 判断：
//
//   - ErrInvalidConfig：构造时凭据不完整或不合法
//   - ErrInvalidCredentials：身份服务拒绝（401/403/404 及其他 4xx）
//   - ErrUnreachableIdentityService：连接失败、超时或 5xx
//   - ErrMalformedCatalogResponse：响应缺少 X-Subject-Token、JSON 不合法或目录不合法
//
// 身份服务返回的非 2xx 响应同时包装为 *IdentityError，携带状态码和服务端消息。
//
// 策略内部从不重试；重试与单飞刷新由 xsession 负责。
package xidentity
