package xidentity

import (
	"fmt"
	"time"
)

// Token 是不可变的认证令牌。
// 零值表示空令牌（NoAuth 模式），永不过期。
type Token struct {
	value     string
	expiresAt time.Time
	issuedAt  time.Time
}

// NewToken 创建令牌。value 不能为空，expiresAt 必须晚于当前时间。
func NewToken(value string, expiresAt time.Time) (Token, error) {
	return newTokenAt(value, expiresAt, time.Time{}, time.Now())
}

func newTokenAt(value string, expiresAt, issuedAt, now time.Time) (Token, error) {
	if value == "" {
		return Token{}, fmt.Errorf("%w: empty value", ErrInvalidToken)
	}
	if !expiresAt.After(now) {
		return Token{}, fmt.Errorf("%w: expires at %s, not in the future", ErrInvalidToken, expiresAt.Format(time.RFC3339))
	}
	if issuedAt.IsZero() {
		issuedAt = now
	}
	return Token{value: value, expiresAt: expiresAt, issuedAt: issuedAt}, nil
}

// Value 返回令牌值，用于 X-Auth-Token 请求头。
func (t Token) Value() string {
	return t.value
}

// IsZero 判断是否为空令牌。
func (t Token) IsZero() bool {
	return t.value == ""
}

// ExpiresAt 返回过期时间。零值表示永不过期。
func (t Token) ExpiresAt() time.Time {
	return t.expiresAt
}

// IssuedAt 返回签发时间。
func (t Token) IssuedAt() time.Time {
	return t.issuedAt
}

// ExpiredAt 判断在 now 时刻、提前 skew 的情况下令牌是否应视为过期。
// 即 now+skew >= expiresAt。零过期时间永不过期。
func (t Token) ExpiredAt(now time.Time, skew time.Duration) bool {
	if t.expiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(t.expiresAt)
}

// TTL 返回距离过期的剩余时间，零过期时间返回 0。
func (t Token) TTL(now time.Time) time.Duration {
	if t.expiresAt.IsZero() {
		return 0
	}
	return t.expiresAt.Sub(now)
}

// String 返回脱敏后的描述，不包含令牌值。
func (t Token) String() string {
	if t.IsZero() {
		return "Token(none)"
	}
	return "Token(redacted, expires " + t.expiresAt.UTC().Format(time.RFC3339) + ")"
}

// GoString 与 String 一致，避免 %#v 泄露令牌值。
func (t Token) GoString() string {
	return t.String()
}
