package xsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xstack/pkg/cloud/xidentity"
)

const (
	// DefaultBreakerFailures 连续失败多少次后熔断。
	DefaultBreakerFailures uint32 = 5

	// DefaultBreakerOpenTimeout 熔断打开后多久进入半开状态。
	DefaultBreakerOpenTimeout = 30 * time.Second
)

// BreakerConfig 身份服务熔断器配置。
// 只有 ErrUnreachableIdentityService 计为失败，凭据错误不会触发熔断。
type BreakerConfig struct {
	// ConsecutiveFailures 连续失败阈值，默认 5。
	ConsecutiveFailures uint32

	// OpenTimeout 打开状态持续时间，默认 30 秒。
	OpenTimeout time.Duration

	// HalfOpenRequests 半开状态允许的探测请求数，默认 1。
	HalfOpenRequests uint32
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = DefaultBreakerFailures
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = DefaultBreakerOpenTimeout
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
	return c
}

// breakerAuthenticator 用熔断器包装认证策略。
type breakerAuthenticator struct {
	auth xidentity.Authenticator
	cb   *gobreaker.CircuitBreaker[*xidentity.AuthResult]
}

func newBreakerAuthenticator(auth xidentity.Authenticator, cfg BreakerConfig, logger *slog.Logger) *breakerAuthenticator {
	cfg = cfg.withDefaults()
	threshold := cfg.ConsecutiveFailures
	st := gobreaker.Settings{
		Name:        "xsession.identity." + auth.Method(),
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("xsession: identity breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, xidentity.ErrUnreachableIdentityService)
		},
	}
	return &breakerAuthenticator{
		auth: auth,
		cb:   gobreaker.NewCircuitBreaker[*xidentity.AuthResult](st),
	}
}

// Authenticate 经熔断器调用底层策略。
func (b *breakerAuthenticator) Authenticate(ctx context.Context) (*xidentity.AuthResult, error) {
	result, err := b.cb.Execute(func() (*xidentity.AuthResult, error) {
		return b.auth.Authenticate(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w: %w", ErrIdentityBreakerOpen, xidentity.ErrUnreachableIdentityService, err)
	}
	return result, err
}

// Method 返回底层策略的认证方式。
func (b *breakerAuthenticator) Method() string {
	return b.auth.Method()
}

// State 返回熔断器状态。
func (b *breakerAuthenticator) State() gobreaker.State {
	return b.cb.State()
}
