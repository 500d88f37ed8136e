package xidentity

import (
	"context"
	"fmt"

	"github.com/omeyang/xstack/pkg/cloud/xtransport"
)

// PasswordCredentials 密码认证凭据。
type PasswordCredentials struct {
	// AuthURL 身份服务地址，可带或不带 "/v3"。
	AuthURL string

	// User 用户 ID 或用户名。
	User IDOrName

	// UserDomain 用户所在 domain，按用户名认证时必填。
	UserDomain IDOrName

	// Password 密码。
	Password string

	// Scope 认证作用域。
	Scope Scope
}

// Validate 校验凭据完整性。
func (c PasswordCredentials) Validate() error {
	if c.User.IsZero() {
		return fmt.Errorf("%w: password auth requires a user id or name", ErrInvalidConfig)
	}
	if c.User.ID == "" && c.UserDomain.IsZero() {
		return fmt.Errorf("%w: user name %q requires a user domain", ErrInvalidConfig, c.User.Name)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: empty password", ErrInvalidConfig)
	}
	return c.Scope.Validate()
}

// Password 密码认证策略。
type Password struct {
	client  *identityClient
	payload *wireRequest
}

var _ Authenticator = (*Password)(nil)

// NewPassword 创建密码认证策略。transport 为 nil 时使用默认 HTTP 传输。
func NewPassword(creds PasswordCredentials, transport xtransport.Transport, opts ...Option) (*Password, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	client, err := newIdentityClient(MethodPassword, creds.AuthURL, transport, opts)
	if err != nil {
		return nil, err
	}

	user := wireUser{Password: creds.Password}
	if creds.User.ID != "" {
		user.ID = creds.User.ID
	} else {
		user.Name = creds.User.Name
		user.Domain = creds.UserDomain.wire()
	}

	return &Password{
		client: client,
		payload: &wireRequest{Auth: wireAuth{
			Identity: wireIdentity{
				Methods:  []string{MethodPassword},
				Password: &wirePassword{User: user},
			},
			Scope: creds.Scope.wire(),
		}},
	}, nil
}

// Authenticate 以密码换取令牌。
func (p *Password) Authenticate(ctx context.Context) (*AuthResult, error) {
	return p.client.issue(ctx, p.payload)
}

// Method 返回 "password"。
func (p *Password) Method() string {
	return MethodPassword
}

// TokensURL 返回规范化后的 tokens 接口地址。
func (p *Password) TokensURL() string {
	return p.client.tokensURL
}
