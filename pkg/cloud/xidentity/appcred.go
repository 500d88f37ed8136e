package xidentity

import (
	"context"
	"fmt"

	"github.com/omeyang/xstack/pkg/cloud/xtransport"
)

// ApplicationCredentialCredentials 应用凭据。
// 按 ID 引用时只需 ID + Secret；按名称引用时还需要所属用户。
type ApplicationCredentialCredentials struct {
	AuthURL string

	ID     string
	Name   string
	Secret string

	// User 凭据所属用户，按名称引用凭据时必填。
	User IDOrName

	// UserDomain 用户所在 domain，按用户名引用时必填。
	UserDomain IDOrName
}

// Validate 校验凭据完整性。
func (c ApplicationCredentialCredentials) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("%w: empty application credential secret", ErrInvalidConfig)
	}
	if c.ID != "" {
		return nil
	}
	if c.Name == "" {
		return fmt.Errorf("%w: application credential requires an id or name", ErrInvalidConfig)
	}
	if c.User.IsZero() {
		return fmt.Errorf("%w: application credential name %q requires a user", ErrInvalidConfig, c.Name)
	}
	if c.User.ID == "" && c.UserDomain.IsZero() {
		return fmt.Errorf("%w: user name %q requires a user domain", ErrInvalidConfig, c.User.Name)
	}
	return nil
}

// ApplicationCredential 应用凭据认证策略。
// 应用凭据自带作用域，请求中不携带 scope。
type ApplicationCredential struct {
	client  *identityClient
	payload *wireRequest
}

var _ Authenticator = (*ApplicationCredential)(nil)

// NewApplicationCredential 创建应用凭据认证策略。
func NewApplicationCredential(creds ApplicationCredentialCredentials, transport xtransport.Transport, opts ...Option) (*ApplicationCredential, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	client, err := newIdentityClient(MethodApplicationCredential, creds.AuthURL, transport, opts)
	if err != nil {
		return nil, err
	}

	cred := &wireAppCredential{Secret: creds.Secret}
	if creds.ID != "" {
		cred.ID = creds.ID
	} else {
		cred.Name = creds.Name
		user := &wireUser{}
		if creds.User.ID != "" {
			user.ID = creds.User.ID
		} else {
			user.Name = creds.User.Name
			user.Domain = creds.UserDomain.wire()
		}
		cred.User = user
	}

	return &ApplicationCredential{
		client: client,
		payload: &wireRequest{Auth: wireAuth{
			Identity: wireIdentity{
				Methods:               []string{MethodApplicationCredential},
				ApplicationCredential: cred,
			},
		}},
	}, nil
}

// Authenticate 以应用凭据换取令牌。
func (a *ApplicationCredential) Authenticate(ctx context.Context) (*AuthResult, error) {
	return a.client.issue(ctx, a.payload)
}

// Method 返回 "application_credential"。
func (a *ApplicationCredential) Method() string {
	return MethodApplicationCredential
}
