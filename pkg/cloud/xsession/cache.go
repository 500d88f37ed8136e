package xsession

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/omeyang/xstack/pkg/cloud/xcatalog"
	"github.com/omeyang/xstack/pkg/cloud/xidentity"
	"github.com/omeyang/xstack/pkg/observability/xmetrics"
)

// CacheState 令牌缓存状态。
type CacheState int32

const (
	// StateEmpty 没有可用凭证，下次访问会发起刷新。
	StateEmpty CacheState = iota
	// StateValid 持有未过期的凭证。
	StateValid
	// StateRefreshing 正在向身份服务换取新凭证。
	StateRefreshing
)

// String 返回状态名。
func (s CacheState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateValid:
		return "valid"
	case StateRefreshing:
		return "refreshing"
	default:
		return "CacheState(" + strconv.Itoa(int(s)) + ")"
	}
}

// Credential 是一次成功认证得到的不可变凭证快照。
type Credential struct {
	// Token 认证令牌。
	Token xidentity.Token

	// Catalog 与令牌同时签发的服务目录。
	Catalog *xcatalog.Catalog

	// Generation 单调递增的凭证代数，每次成功刷新加一。
	Generation uint64

	// ObtainedAt 本地获取时间。
	ObtainedAt time.Time

	// UserID / ProjectID 由身份服务返回（可能为空）。
	UserID    string
	ProjectID string
}

// refreshMode 决定刷新前的二次检查方式。
type refreshMode int

const (
	// refreshExpired 仅当当前凭证仍不可用时刷新。
	refreshExpired refreshMode = iota
	// refreshForce 无条件刷新。
	refreshForce
	// refreshIfCurrent 仅当当前凭证仍是指定代数时刷新。
	refreshIfCurrent
)

func (m refreshMode) String() string {
	switch m {
	case refreshForce:
		return "force"
	case refreshIfCurrent:
		return "rejected"
	default:
		return "expired"
	}
}

// sfKey 每个 TokenCache 只有一个凭证，单飞键固定。
const sfKey = "credential"

// =============================================================================
// TokenCache
// =============================================================================

// TokenCache 缓存一个会话的凭证，并保证同一时刻最多只有一次刷新。
//
// 有效凭证通过原子指针发布，读路径无锁；状态转换由互斥锁串行化。
// 过期在访问时惰性判断，不启动任何后台定时器。
type TokenCache struct {
	auth xidentity.Authenticator

	current atomic.Pointer[Credential]

	mu         sync.Mutex
	state      CacheState
	generation uint64

	sf singleflight.Group

	skew           time.Duration
	refreshTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger
	observer       xmetrics.Observer

	refreshes atomic.Uint64
}

// NewTokenCache 创建令牌缓存。auth 为 nil 时返回 ErrNilAuthenticator。
func NewTokenCache(auth xidentity.Authenticator, opts ...Option) (*TokenCache, error) {
	if auth == nil {
		return nil, ErrNilAuthenticator
	}
	o := applyOptions(opts)
	return newTokenCache(auth, o), nil
}

func newTokenCache(auth xidentity.Authenticator, o *options) *TokenCache {
	if o.breaker != nil {
		auth = newBreakerAuthenticator(auth, *o.breaker, o.logger)
	}
	return &TokenCache{
		auth:           auth,
		state:          StateEmpty,
		skew:           o.expirySkew,
		refreshTimeout: o.refreshTimeout,
		now:            o.now,
		logger:         o.logger,
		observer:       o.observer,
	}
}

// GetOrRefresh 返回可用凭证。
// 有效期内直接返回（无锁、不挂起）；否则加入或发起唯一的刷新。
func (c *TokenCache) GetOrRefresh(ctx context.Context) (*Credential, error) {
	if cred := c.valid(); cred != nil {
		return cred, nil
	}
	return c.refresh(ctx, refreshExpired, 0)
}

// ForceRefresh 丢弃当前凭证并刷新。
func (c *TokenCache) ForceRefresh(ctx context.Context) (*Credential, error) {
	return c.refresh(ctx, refreshForce, 0)
}

// RefreshIfCurrent 当缓存中的凭证仍是 generation 代时强制刷新；
// 若其他调用方已经刷新过，直接返回更新的凭证。
// 用于请求被拒绝后的重试，避免 N 个同时被拒的请求触发 N 次刷新。
func (c *TokenCache) RefreshIfCurrent(ctx context.Context, generation uint64) (*Credential, error) {
	if cred := c.valid(); cred != nil && cred.Generation != generation {
		return cred, nil
	}
	return c.refresh(ctx, refreshIfCurrent, generation)
}

// Invalidate 丢弃当前凭证，不发起刷新。
// 正在进行的刷新不受影响，完成后仍会发布新凭证。
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Store(nil)
	if c.state == StateValid {
		c.state = StateEmpty
	}
}

// Current 返回当前凭证快照（可能已过期），不触发刷新。
func (c *TokenCache) Current() *Credential {
	return c.current.Load()
}

// State 返回缓存状态。Valid 但已过期的凭证报告为 Empty。
func (c *TokenCache) State() CacheState {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == StateValid && c.valid() == nil {
		return StateEmpty
	}
	return state
}

// Refreshes 返回已完成的刷新次数（含失败）。
func (c *TokenCache) Refreshes() uint64 {
	return c.refreshes.Load()
}

// valid 返回未过期的当前凭证，否则返回 nil。
func (c *TokenCache) valid() *Credential {
	cred := c.current.Load()
	if cred == nil || cred.Token.ExpiredAt(c.now(), c.skew) {
		return nil
	}
	return cred
}

// refresh 加入或发起单飞刷新，并在结果与调用方 ctx 之间等待先到者。
// 调用方放弃等待不会取消共享的刷新。
func (c *TokenCache) refresh(ctx context.Context, mode refreshMode, generation uint64) (cred *Credential, err error) {
	ctx, span := xmetrics.Start(ctx, c.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpGetOrRefresh,
		Kind:      xmetrics.KindInternal,
		Attrs:     []xmetrics.Attr{xmetrics.String(xmetrics.KeyRefreshWhy, mode.String())},
	})
	defer func() {
		result := xmetrics.Result{Err: err}
		if cred != nil {
			result.Attrs = []xmetrics.Attr{xmetrics.Generation(cred.Generation)}
		}
		span.End(result)
	}()

	ch := c.sf.DoChan(sfKey, func() (any, error) {
		return c.doRefresh(ctx, mode, generation)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		cred, ok := res.Val.(*Credential)
		if !ok || cred == nil {
			return nil, ErrMalformedAuthResult
		}
		return cred, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// doRefresh 在单飞内执行：二次检查、调用认证策略、发布结果。
func (c *TokenCache) doRefresh(ctx context.Context, mode refreshMode, generation uint64) (*Credential, error) {
	c.mu.Lock()
	if cred := c.valid(); cred != nil {
		switch {
		case mode == refreshExpired:
			c.mu.Unlock()
			return cred, nil
		case mode == refreshIfCurrent && cred.Generation != generation:
			c.mu.Unlock()
			return cred, nil
		}
	}
	c.current.Store(nil)
	c.state = StateRefreshing
	c.mu.Unlock()

	// 与发起者的取消解耦，其余等待者仍需要结果。
	authCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()

	cred, err := c.authenticate(authCtx, mode)
	c.refreshes.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateEmpty
		c.current.Store(nil)
		return nil, err
	}
	c.generation++
	cred.Generation = c.generation
	c.current.Store(cred)
	c.state = StateValid

	c.logger.DebugContext(ctx, "xsession: credential refreshed",
		slog.String("method", c.auth.Method()),
		slog.String("reason", mode.String()),
		slog.Uint64("generation", cred.Generation),
		slog.Time("expires_at", cred.Token.ExpiresAt()),
	)
	return cred, nil
}

func (c *TokenCache) authenticate(ctx context.Context, mode refreshMode) (cred *Credential, err error) {
	ctx, span := xmetrics.Start(ctx, c.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpRefresh,
		Kind:      xmetrics.KindInternal,
		Attrs: []xmetrics.Attr{
			xmetrics.AuthMethod(c.auth.Method()),
			xmetrics.String(xmetrics.KeyRefreshWhy, mode.String()),
		},
	})
	defer func() {
		span.End(xmetrics.Result{Err: err})
	}()

	result, err := c.auth.Authenticate(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "xsession: credential refresh failed",
			slog.String("method", c.auth.Method()),
			slog.String("reason", mode.String()),
			slog.Any("error", err),
		)
		return nil, err
	}
	if result == nil || result.Catalog == nil {
		return nil, fmt.Errorf("%w: %s returned no catalog", ErrMalformedAuthResult, c.auth.Method())
	}
	return &Credential{
		Token:      result.Token,
		Catalog:    result.Catalog,
		ObtainedAt: c.now(),
		UserID:     result.UserID,
		ProjectID:  result.ProjectID,
	}, nil
}
