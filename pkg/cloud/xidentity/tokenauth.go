package xidentity

import (
	"context"
	"fmt"

	"github.com/omeyang/xstack/pkg/cloud/xtransport"
)

// TokenCredentials 令牌认证凭据。
type TokenCredentials struct {
	AuthURL string

	// Token 已有令牌。
	Token string

	// Scope 新令牌的作用域，为空时沿用原令牌的作用域。
	Scope Scope
}

// Validate 校验凭据完整性。
func (c TokenCredentials) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidConfig)
	}
	return c.Scope.Validate()
}

// TokenAuth 令牌认证策略，用已有令牌换取（可重新设定作用域的）新令牌。
type TokenAuth struct {
	client  *identityClient
	payload *wireRequest
}

var _ Authenticator = (*TokenAuth)(nil)

// NewTokenAuth 创建令牌认证策略。
func NewTokenAuth(creds TokenCredentials, transport xtransport.Transport, opts ...Option) (*TokenAuth, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	client, err := newIdentityClient(MethodToken, creds.AuthURL, transport, opts)
	if err != nil {
		return nil, err
	}
	return &TokenAuth{
		client: client,
		payload: &wireRequest{Auth: wireAuth{
			Identity: wireIdentity{
				Methods: []string{MethodToken},
				Token:   &wireTokenID{ID: creds.Token},
			},
			Scope: creds.Scope.wire(),
		}},
	}, nil
}

// Authenticate 以已有令牌换取新令牌。
func (a *TokenAuth) Authenticate(ctx context.Context) (*AuthResult, error) {
	return a.client.issue(ctx, a.payload)
}

// Method 返回 "token"。
func (a *TokenAuth) Method() string {
	return MethodToken
}
