package xcloudconfig

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xstack/pkg/cloud/xidentity"
	"github.com/omeyang/xstack/pkg/cloud/xsession"
	"github.com/omeyang/xstack/pkg/cloud/xtransport"
)

func TestNormalizeAuthType(t *testing.T) {
	tests := map[string]string{
		"":                        AuthTypePassword,
		"v3password":              AuthTypePassword,
		"Token":                   AuthTypeToken,
		"v3token":                 AuthTypeToken,
		"v3applicationcredential": AuthTypeApplicationCredential,
		"application_credential":  AuthTypeApplicationCredential,
		"noauth":                  AuthTypeNone,
		" none ":                  AuthTypeNone,
		"v3oidcpassword":          "v3oidcpassword",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeAuthType(in), in)
	}
}

func TestCloudConfig_Authenticator(t *testing.T) {
	tests := []struct {
		name   string
		cfg    CloudConfig
		method string
	}{
		{"password", CloudConfig{Auth: AuthConfig{
			AuthURL: "https://id.example.com", Username: "u", UserDomainName: "Default", Password: "p",
		}}, xidentity.MethodPassword},
		{"token", CloudConfig{AuthType: "v3token", Auth: AuthConfig{
			AuthURL: "https://id.example.com", Token: "gAAAA", DomainID: "default",
		}}, xidentity.MethodToken},
		{"application credential", CloudConfig{AuthType: "v3applicationcredential", Auth: AuthConfig{
			AuthURL: "https://id.example.com", ApplicationCredentialID: "ac", ApplicationCredentialSecret: "s",
		}}, xidentity.MethodApplicationCredential},
		{"none", CloudConfig{AuthType: "noauth", Auth: AuthConfig{Endpoint: "http://ironic.local:6385"}}, xidentity.MethodNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, err := tt.cfg.Authenticator(nil)
			require.NoError(t, err)
			assert.Equal(t, tt.method, auth.Method())
		})
	}
}

func TestCloudConfig_AuthenticatorErrors(t *testing.T) {
	cfg := CloudConfig{Name: "c", AuthType: "saml2"}
	_, err := cfg.Authenticator(nil)
	assert.ErrorIs(t, err, ErrUnsupportedAuthType)

	cfg = CloudConfig{Name: "c", Auth: AuthConfig{AuthURL: "https://id.example.com", Username: "u"}}
	_, err = cfg.Authenticator(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, xidentity.ErrInvalidConfig)
}

func TestCloudConfig_Scope(t *testing.T) {
	cfg := CloudConfig{Auth: AuthConfig{ProjectName: "demo", ProjectDomainName: "Default", DomainName: "ignored"}}
	s := cfg.scope()
	assert.Equal(t, xidentity.ByName("demo"), s.Project)
	assert.Equal(t, xidentity.ByName("Default"), s.ProjectDomain)
	assert.True(t, s.Domain.IsZero())

	cfg = CloudConfig{Auth: AuthConfig{DomainID: "default"}}
	s = cfg.scope()
	assert.True(t, s.Project.IsZero())
	assert.Equal(t, xidentity.ByID("default"), s.Domain)
}

func TestCloudConfig_HTTPConfig(t *testing.T) {
	var cfg CloudConfig
	hc := cfg.HTTPConfig()
	assert.Nil(t, hc.TLS)
	assert.Zero(t, hc.Timeout)

	verify := false
	cfg = CloudConfig{Verify: &verify, CACert: "/etc/ssl/ca.pem", APITimeout: 1.5}
	hc = cfg.HTTPConfig()
	require.NotNil(t, hc.TLS)
	assert.True(t, hc.TLS.InsecureSkipVerify)
	assert.Equal(t, "/etc/ssl/ca.pem", hc.TLS.RootCAFile)
	assert.Equal(t, 1500*time.Millisecond, hc.Timeout)
}

func TestCloudConfig_Clone(t *testing.T) {
	verify := true
	cfg := &CloudConfig{Verify: &verify, EndpointOverrides: map[string]string{"compute": "http://a"}}
	clone := cfg.Clone()
	*clone.Verify = false
	clone.EndpointOverrides["compute"] = "http://b"

	assert.True(t, *cfg.Verify)
	assert.Equal(t, "http://a", cfg.EndpointOverrides["compute"])

	var nilCfg *CloudConfig
	assert.Nil(t, nilCfg.Clone())
}

func TestCloudConfig_SessionOptions(t *testing.T) {
	cfg := CloudConfig{}
	assert.Empty(t, cfg.SessionOptions())

	cfg = CloudConfig{RegionName: "RegionOne", Interface: "internal", EndpointOverrides: map[string]string{"compute": "http://a"}}
	assert.Len(t, cfg.SessionOptions(), 3)
}

func TestNewSession_EndToEnd(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/auth/tokens":
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"password":"s3cret"`)
			w.Header().Set(xidentity.HeaderSubjectToken, "gAAAA-e2e")
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"token":{"expires_at":"`+time.Now().Add(time.Hour).UTC().Format(time.RFC3339)+
				`","user":{"id":"u1"},"project":{"id":"p1"},"catalog":[{"type":"compute","endpoints":[`+
				`{"interface":"public","region_id":"RegionOne","url":"http://public.invalid/compute"},`+
				`{"interface":"internal","region_id":"RegionOne","url":"`+srv.URL+`/compute"}]}]}}`)
		case "/compute/servers":
			assert.Equal(t, "gAAAA-e2e", r.Header.Get(xsession.HeaderAuthToken))
			_, _ = io.WriteString(w, `{"servers":[{"id":"s1"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f, err := LoadFromBytes([]byte(`
clouds:
  e2e:
    auth:
      auth_url: `+srv.URL+`
      username: admin
      password: s3cret
      project_name: admin
    region_name: RegionOne
    interface: internal
`), FormatYAML, nil)
	require.NoError(t, err)
	cfg, err := f.Cloud("e2e")
	require.NoError(t, err)

	sess, err := NewSession(cfg, WithSessionOptions(xsession.WithExpirySkew(time.Second)))
	require.NoError(t, err)
	defer func() { _ = sess.Close() }()

	var out struct {
		Servers []struct {
			ID string `json:"id"`
		} `json:"servers"`
	}
	err = sess.Request(context.Background(), &xsession.Request{Service: "compute", Path: "/servers"}, nil, &out)
	require.NoError(t, err)
	require.Len(t, out.Servers, 1)
	assert.Equal(t, "s1", out.Servers[0].ID)
	assert.Equal(t, xsession.StateValid, sess.State())
}

func TestNewSession_Errors(t *testing.T) {
	_, err := NewSession(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSession(&CloudConfig{Name: "bad", AuthType: "saml2"})
	assert.ErrorIs(t, err, ErrUnsupportedAuthType)

	_, err = NewSession(&CloudConfig{Name: "bad", APITimeout: -1, Auth: AuthConfig{Endpoint: "http://x"}, AuthType: "none"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, xtransport.ErrInvalidTimeout)
}
