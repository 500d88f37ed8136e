package xmetrics

import "context"

type requestIDKey struct{}

// WithRequestID 将请求 ID 写入 context。空 id 时原样返回 ctx。
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID 从 context 读取请求 ID，不存在时返回空字符串。
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string) //nolint:errcheck // 类型断言失败即视为不存在
	return id
}
