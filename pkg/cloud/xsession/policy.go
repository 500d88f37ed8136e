package xsession

import (
	"net/http"

	"github.com/omeyang/xstack/pkg/cloud/xtransport"
)

// RejectionClassifier 判断响应是否为认证拒绝（令牌失效）。
// 返回 true 的响应会触发一次强制刷新并重试。
type RejectionClassifier func(resp *xtransport.Response) bool

// DefaultRejectionClassifier 默认认证拒绝判定：
// 401 总是拒绝；403 仅在带有 WWW-Authenticate 质询时视为拒绝，
// 普通 403 表示权限不足，刷新令牌无济于事。
func DefaultRejectionClassifier(resp *xtransport.Response) bool {
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return resp.Header.Get("WWW-Authenticate") != ""
	default:
		return false
	}
}

// StatusRejectionClassifier 返回按状态码判定的分类器。
func StatusRejectionClassifier(codes ...int) RejectionClassifier {
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return func(resp *xtransport.Response) bool {
		if resp == nil {
			return false
		}
		_, ok := set[resp.StatusCode]
		return ok
	}
}
