package xsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/omeyang/xstack/pkg/cloud/xcatalog"
	"github.com/omeyang/xstack/pkg/cloud/xidentity"
	"github.com/omeyang/xstack/pkg/cloud/xtransport"
	"github.com/omeyang/xstack/pkg/observability/xmetrics"
)

// 请求头。
const (
	HeaderAuthToken = "X-Auth-Token"
	HeaderRequestID = "X-OpenStack-Request-ID"
)

// maxErrorBody APIError 保留的响应体上限（64KB）。
const maxErrorBody = 64 * 1024

// Request 描述一次对云服务的逻辑请求。
type Request struct {
	// Service 服务类型，例如 "compute"。Path 为绝对 URL 时可为空。
	Service string

	// Interfaces 接口偏好顺序，为空时使用会话默认值。
	Interfaces []xcatalog.Interface

	// Region 为空时使用会话默认值。
	Region string

	// Version 可选的 API 版本范围。
	Version xcatalog.VersionRange

	// Method HTTP 方法，默认 GET。
	Method string

	// Path 相对端点的路径，或完整 URL。
	Path string

	// Query 查询参数。
	Query url.Values

	// Header 额外请求头，不会被修改。
	Header http.Header

	// Body 请求体，重试时原样重发。
	Body []byte

	// GetBody 可重放的请求体，优先于 Body。
	GetBody func() (io.Reader, error)
}

func (r *Request) query(defaults *options) xcatalog.EndpointQuery {
	q := xcatalog.EndpointQuery{
		ServiceType: r.Service,
		Interfaces:  r.Interfaces,
		Region:      r.Region,
		Version:     r.Version,
	}
	return applyQueryDefaults(q, defaults)
}

func applyQueryDefaults(q xcatalog.EndpointQuery, o *options) xcatalog.EndpointQuery {
	if len(q.Interfaces) == 0 {
		q.Interfaces = o.interfaces
	}
	if q.Region == "" {
		q.Region = o.region
	}
	return q
}

// =============================================================================
// Session
// =============================================================================

// Session 持有一个认证策略与一个令牌缓存，为请求附加令牌、解析端点，
// 并在令牌被拒绝或端点缺失时最多强制刷新一次后重试。并发安全。
type Session struct {
	cache         *TokenCache
	transport     xtransport.Transport
	ownsTransport bool
	opts          *options
	closed        atomic.Bool
}

// New 创建会话。auth 为 nil 时返回 ErrNilAuthenticator。
func New(auth xidentity.Authenticator, opts ...Option) (*Session, error) {
	if auth == nil {
		return nil, ErrNilAuthenticator
	}
	o := applyOptions(opts)

	s := &Session{
		cache: newTokenCache(auth, o),
		opts:  o,
	}
	if o.transport != nil {
		s.transport = o.transport
	} else {
		s.transport = xtransport.NewDefaultHTTPTransport(
			xtransport.WithLogger(o.logger),
			xtransport.WithObserver(o.observer),
		)
		s.ownsTransport = true
	}
	return s, nil
}

// Do 发送请求。
//
// 状态码 < 400 时返回响应，调用方负责关闭 Body；>= 400 时返回 *APIError。
// 连接失败返回 *xtransport.ConnectionError，不会触发刷新。
// 端点缺失或令牌被拒绝时最多强制刷新一次并重试，二者共享同一次机会。
func (s *Session) Do(ctx context.Context, req *Request) (resp *xtransport.Response, err error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if req == nil {
		return nil, ErrNilRequest
	}
	if ctx == nil {
		ctx = context.Background()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	if req.Service == "" && !isAbsoluteURL(req.Path) {
		return nil, fmt.Errorf("%w: relative path %q requires a service type", ErrInvalidRequest, req.Path)
	}

	requestID := s.opts.requestID()
	budget := &refreshBudget{}
	query := req.query(s.opts)

	attrs := []xmetrics.Attr{
		xmetrics.Service(req.Service),
		xmetrics.String(xmetrics.KeyHTTPMethod, method),
		xmetrics.Region(query.Region),
	}
	if len(query.Interfaces) > 0 {
		attrs = append(attrs, xmetrics.Interface(query.Interfaces[0].String()))
	}
	ctx = xmetrics.WithRequestID(ctx, requestID)
	ctx, span := xmetrics.Start(ctx, s.opts.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpDo,
		Kind:      xmetrics.KindClient,
		Attrs:     attrs,
	})
	defer func() {
		// 端点缺失与 401 共用一次刷新预算，花掉即视为重试
		result := []xmetrics.Attr{xmetrics.Bool(xmetrics.KeyRetried, budget.spent)}
		if resp != nil {
			result = append(result, xmetrics.HTTPStatus(resp.StatusCode))
		}
		if apiErr, ok := IsAPIError(err); ok {
			result = append(result, xmetrics.HTTPStatus(apiErr.StatusCode))
		}
		span.End(xmetrics.Result{Err: err, Attrs: result})
	}()

	cred, target, err := s.resolve(ctx, req, query, budget)
	if err != nil {
		return nil, err
	}

	resp, err = s.send(ctx, req, method, cred, target, requestID)
	if err != nil {
		return nil, err
	}

	if s.opts.classifier(resp) && budget.take() {
		_ = resp.Close() //nolint:errcheck // 被拒绝的响应仅需释放连接

		s.opts.logger.WarnContext(ctx, "xsession: token rejected, refreshing once",
			slog.String("service", req.Service),
			slog.Int("status", resp.StatusCode),
			slog.Uint64("generation", cred.Generation),
			slog.String("request_id", requestID),
		)

		cred, err = s.cache.RefreshIfCurrent(ctx, cred.Generation)
		if err != nil {
			return nil, err
		}
		target, err = s.target(cred, req, query)
		if err != nil {
			return nil, err
		}
		resp, err = s.send(ctx, req, method, cred, target, requestID)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, s.apiError(resp, method, target, requestID)
	}
	return resp, nil
}

// Request 以 JSON 编码 in 作为请求体发送请求，并把响应体解码到 out。
// in 为 nil 时使用 req.Body；out 为 nil 或响应无内容时丢弃响应体。
func (s *Session) Request(ctx context.Context, req *Request, in, out any) error {
	if req == nil {
		return ErrNilRequest
	}
	r := *req
	r.Header = req.Header.Clone()
	if r.Header == nil {
		r.Header = make(http.Header, 2)
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("xsession: encode request body: %w", err)
		}
		r.Body = body
		r.GetBody = nil
	}
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", "application/json")
	}

	resp, err := s.Do(ctx, &r)
	if err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.Close()
	}
	defer func() { _ = resp.Close() }() //nolint:errcheck // 解码错误优先

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("xsession: decode response body: %w", err)
	}
	return nil
}

// Endpoint 解析端点。端点缺失时最多强制刷新一次后重试。
func (s *Session) Endpoint(ctx context.Context, query xcatalog.EndpointQuery) (xcatalog.Endpoint, error) {
	if s.closed.Load() {
		return xcatalog.Endpoint{}, ErrSessionClosed
	}
	query = applyQueryDefaults(query, s.opts)
	if override, ok := s.opts.overrides[query.ServiceType]; ok {
		return xcatalog.Endpoint{Interface: query.Interfaces[0], Region: query.Region, URL: override}, nil
	}

	budget := &refreshBudget{}
	cred, err := s.cache.GetOrRefresh(ctx)
	if err != nil {
		return xcatalog.Endpoint{}, err
	}
	ep, err := cred.Catalog.Resolve(query)
	if xcatalog.IsNotFound(err) && budget.take() {
		cred, err = s.cache.RefreshIfCurrent(ctx, cred.Generation)
		if err != nil {
			return xcatalog.Endpoint{}, err
		}
		ep, err = cred.Catalog.Resolve(query)
	}
	return ep, err
}

// Token 返回当前可用令牌，必要时刷新。
func (s *Session) Token(ctx context.Context) (xidentity.Token, error) {
	cred, err := s.Credential(ctx)
	if err != nil {
		return xidentity.Token{}, err
	}
	return cred.Token, nil
}

// Credential 返回当前可用凭证，必要时刷新。
func (s *Session) Credential(ctx context.Context) (*Credential, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	return s.cache.GetOrRefresh(ctx)
}

// Catalog 返回最近一次获取的服务目录快照，从不触发刷新。尚未认证时返回 nil。
func (s *Session) Catalog() *xcatalog.Catalog {
	cred := s.cache.Current()
	if cred == nil {
		return nil
	}
	return cred.Catalog
}

// State 返回令牌缓存状态。
func (s *Session) State() CacheState {
	return s.cache.State()
}

// Invalidate 丢弃缓存的凭证，下次请求重新认证。
func (s *Session) Invalidate() {
	s.cache.Invalidate()
}

// Refreshes 返回已完成的刷新次数。
func (s *Session) Refreshes() uint64 {
	return s.cache.Refreshes()
}

// Close 关闭会话。之后的请求返回 ErrSessionClosed。重复调用安全。
// 会话自行创建的传输会释放空闲连接；注入的传输由调用方管理。
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cache.Invalidate()
	if s.ownsTransport {
		if ht, ok := s.transport.(*xtransport.HTTPTransport); ok {
			ht.CloseIdleConnections()
		}
	}
	s.opts.logger.Debug("xsession: session closed")
	return nil
}

// =============================================================================
// 内部实现
// =============================================================================

// refreshBudget 每个逻辑请求仅有一次强制刷新机会。
type refreshBudget struct {
	spent bool
}

func (b *refreshBudget) take() bool {
	if b.spent {
		return false
	}
	b.spent = true
	return true
}

// resolve 获取凭证并计算目标 URL；端点缺失时消耗刷新机会重试一次。
func (s *Session) resolve(ctx context.Context, req *Request, query xcatalog.EndpointQuery, budget *refreshBudget) (*Credential, string, error) {
	cred, err := s.cache.GetOrRefresh(ctx)
	if err != nil {
		return nil, "", err
	}
	target, err := s.target(cred, req, query)
	if xcatalog.IsNotFound(err) && budget.take() {
		s.opts.logger.DebugContext(ctx, "xsession: endpoint not found, refreshing catalog once",
			slog.String("service", query.ServiceType),
			slog.Any("error", err),
		)
		cred, err = s.cache.RefreshIfCurrent(ctx, cred.Generation)
		if err != nil {
			return nil, "", err
		}
		target, err = s.target(cred, req, query)
	}
	if err != nil {
		return nil, "", err
	}
	return cred, target, nil
}

// target 计算请求的完整 URL。绝对 URL 原样使用；固定地址优先于目录。
func (s *Session) target(cred *Credential, req *Request, query xcatalog.EndpointQuery) (string, error) {
	if isAbsoluteURL(req.Path) {
		return withQuery(req.Path, req.Query), nil
	}
	base, ok := s.opts.overrides[query.ServiceType]
	if !ok {
		ep, err := cred.Catalog.Resolve(query)
		if err != nil {
			return "", err
		}
		base = ep.URL
	}
	return withQuery(joinURL(base, req.Path), req.Query), nil
}

// send 附加认证与追踪头并发送。
func (s *Session) send(ctx context.Context, req *Request, method string, cred *Credential, target, requestID string) (*xtransport.Response, error) {
	header := req.Header.Clone()
	if header == nil {
		header = make(http.Header, 3)
	}
	if v := cred.Token.Value(); v != "" {
		header.Set(HeaderAuthToken, v)
	}
	header.Set(HeaderRequestID, requestID)

	getBody := req.GetBody
	if getBody == nil {
		getBody = xtransport.BytesBody(req.Body)
	}
	if getBody != nil && header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}

	return s.transport.Send(ctx, &xtransport.Request{
		Method:  method,
		URL:     target,
		Header:  header,
		GetBody: getBody,
	})
}

func (s *Session) apiError(resp *xtransport.Response, method, target, requestID string) *APIError {
	rejected := s.opts.classifier(resp)
	body, _ := resp.ReadAll(maxErrorBody) //nolint:errcheck // 错误响应体只用于诊断
	if id := resp.Header.Get(HeaderRequestID); id != "" {
		requestID = id
	}
	return &APIError{
		Method:     method,
		URL:        stripQuery(target),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		RequestID:  requestID,
		Rejected:   rejected,
	}
}

// isAbsoluteURL 判断 path 是否为绝对 URL（scheme 大小写不敏感）。
func isAbsoluteURL(path string) bool {
	if len(path) >= 8 && strings.EqualFold(path[:8], "https://") {
		return true
	}
	return len(path) >= 7 && strings.EqualFold(path[:7], "http://")
}

// joinURL 拼接端点基础地址与相对路径，两者之间恰好一个 "/"。
func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func withQuery(target string, query url.Values) string {
	if len(query) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + query.Encode()
}

func stripQuery(target string) string {
	if path, _, found := strings.Cut(target, "?"); found {
		return path
	}
	return target
}
