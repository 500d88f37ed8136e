package xidentity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/omeyang/xstack/pkg/cloud/xcatalog"
	"github.com/omeyang/xstack/pkg/cloud/xtransport"
	"github.com/omeyang/xstack/pkg/observability/xmetrics"
)

const (
	// maxResponseSize 身份服务响应体上限（10MB），目录较大的云也远小于此值。
	maxResponseSize = 10 * 1024 * 1024

	// HeaderSubjectToken 身份服务返回新令牌的响应头。
	HeaderSubjectToken = "X-Subject-Token"

	// MetricsComponent 可观测性组件名。
	MetricsComponent = "xidentity"
	// MetricsOpAuthenticate 认证操作名。
	MetricsOpAuthenticate = "authenticate"
)

// =============================================================================
// 请求线上格式
// =============================================================================

type wireRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type wireProject struct {
	wireRef
	Domain *wireRef `json:"domain,omitempty"`
}

type wireScope struct {
	Project *wireProject `json:"project,omitempty"`
	Domain  *wireRef     `json:"domain,omitempty"`
}

type wireUser struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name,omitempty"`
	Domain   *wireRef `json:"domain,omitempty"`
	Password string   `json:"password,omitempty"`
}

type wirePassword struct {
	User wireUser `json:"user"`
}

type wireTokenID struct {
	ID string `json:"id"`
}

type wireAppCredential struct {
	ID     string    `json:"id,omitempty"`
	Name   string    `json:"name,omitempty"`
	User   *wireUser `json:"user,omitempty"`
	Secret string    `json:"secret"`
}

type wireIdentity struct {
	Methods               []string           `json:"methods"`
	Password              *wirePassword      `json:"password,omitempty"`
	Token                 *wireTokenID       `json:"token,omitempty"`
	ApplicationCredential *wireAppCredential `json:"application_credential,omitempty"`
}

type wireAuth struct {
	Identity wireIdentity `json:"identity"`
	Scope    *wireScope   `json:"scope,omitempty"`
}

type wireRequest struct {
	Auth wireAuth `json:"auth"`
}

// =============================================================================
// 响应线上格式
// =============================================================================

type wireTokenResponse struct {
	Token struct {
		ExpiresAt string          `json:"expires_at"`
		IssuedAt  string          `json:"issued_at"`
		Catalog   json.RawMessage `json:"catalog"`
		User      *wireRef        `json:"user"`
		Project   *wireRef        `json:"project"`
	} `json:"token"`
}

type wireErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// 身份服务客户端
// =============================================================================

// identityClient 封装对 tokens 接口的一次 POST，供各策略共用。
type identityClient struct {
	method    string
	tokensURL string
	transport xtransport.Transport
	opts      *options
}

func newIdentityClient(method, authURL string, transport xtransport.Transport, opts []Option) (*identityClient, error) {
	endpoint, err := tokensURL(authURL)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		transport = xtransport.NewDefaultHTTPTransport()
	}
	return &identityClient{
		method:    method,
		tokensURL: endpoint,
		transport: transport,
		opts:      applyOptions(opts),
	}, nil
}

// issue 发送认证请求并解析 Token 与目录。
func (c *identityClient) issue(ctx context.Context, payload *wireRequest) (result *AuthResult, err error) {
	ctx, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpAuthenticate,
		Kind:      xmetrics.KindClient,
		Attrs:     []xmetrics.Attr{xmetrics.AuthMethod(c.method)},
	})
	defer func() {
		span.End(xmetrics.Result{Err: err})
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode auth request: %w", ErrInvalidConfig, err)
	}

	header := make(http.Header, 3)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	header.Set("User-Agent", "xstack")

	resp, err := c.transport.Send(ctx, &xtransport.Request{
		Method:  http.MethodPost,
		URL:     c.tokensURL,
		Header:  header,
		GetBody: xtransport.BytesBody(body),
	})
	if err != nil {
		return nil, c.transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp)
	}

	result, err = c.parse(resp)
	if err != nil {
		c.opts.logger.WarnContext(ctx, "xidentity: malformed identity response",
			slog.String("method", c.method),
			slog.Any("error", err),
		)
		return nil, err
	}

	c.opts.logger.DebugContext(ctx, "xidentity: token issued",
		slog.String("method", c.method),
		slog.Time("expires_at", result.Token.ExpiresAt()),
		slog.Int("services", result.Catalog.Len()),
	)
	return result, nil
}

// transportError 将传输层错误归类为 ErrUnreachableIdentityService。
// 调用方自己取消时原样返回，便于上层区分放弃与失败。
func (c *identityClient) transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnreachableIdentityService, err)
}

func (c *identityClient) statusError(resp *xtransport.Response) error {
	idErr := &IdentityError{
		StatusCode: resp.StatusCode,
		Err:        classifyStatus(resp.StatusCode),
	}
	var body wireErrorResponse
	if data := resp.ReadErrorBody(); len(data) > 0 && json.Unmarshal(data, &body) == nil {
		idErr.Title = body.Error.Title
		idErr.Message = body.Error.Message
	}
	return idErr
}

func (c *identityClient) parse(resp *xtransport.Response) (*AuthResult, error) {
	value := resp.Header.Get(HeaderSubjectToken)
	data, err := resp.ReadAll(maxResponseSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCatalogResponse, err)
	}
	if value == "" {
		return nil, fmt.Errorf("%w: missing %s header", ErrMalformedCatalogResponse, HeaderSubjectToken)
	}

	var body wireTokenResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: decode token body: %w", ErrMalformedCatalogResponse, err)
	}

	now := c.opts.now()
	expiresAt, err := time.Parse(time.RFC3339, body.Token.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: expires_at %q: %w", ErrMalformedCatalogResponse, body.Token.ExpiresAt, err)
	}
	var issuedAt time.Time
	if body.Token.IssuedAt != "" {
		// issued_at 仅供诊断，解析失败时退回本地时间
		issuedAt, _ = time.Parse(time.RFC3339, body.Token.IssuedAt) //nolint:errcheck // 可选字段
	}
	token, err := newTokenAt(value, expiresAt, issuedAt, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCatalogResponse, err)
	}

	catalog, err := parseCatalog(body.Token.Catalog)
	if err != nil {
		return nil, err
	}

	result := &AuthResult{Token: token, Catalog: catalog}
	if body.Token.User != nil {
		result.UserID = body.Token.User.ID
	}
	if body.Token.Project != nil {
		result.ProjectID = body.Token.Project.ID
	}
	return result, nil
}

// parseCatalog 解析 token.catalog。未设定作用域的令牌没有目录，返回空目录。
func parseCatalog(raw json.RawMessage) (*xcatalog.Catalog, error) {
	if len(raw) == 0 || string(raw) == "null" {
		catalog, err := xcatalog.NewCatalog(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedCatalogResponse, err)
		}
		return catalog, nil
	}
	catalog, err := xcatalog.ParseKeystoneCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCatalogResponse, err)
	}
	return catalog, nil
}
