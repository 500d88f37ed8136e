package xcloudconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Password(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"OS_AUTH_URL":          "https://identity.example.com/v3",
		"OS_USERNAME":          "admin",
		"OS_PASSWORD":          "secret",
		"OS_PROJECT_NAME":      "admin",
		"OS_PROJECT_DOMAIN_ID": "default",
		"OS_REGION_NAME":       "RegionOne",
		"OS_INTERFACE":         "public",
		"OS_INSECURE":          "true",
		"OS_API_TIMEOUT":       "10",
		"OS_USER_DOMAIN_NAME":  "",
	}))
	require.NoError(t, err)

	assert.Equal(t, EnvCloudName, cfg.Name)
	assert.Equal(t, AuthTypePassword, cfg.AuthType)
	assert.Equal(t, "admin", cfg.Auth.Username)
	assert.Equal(t, DefaultDomain, cfg.Auth.UserDomainName)
	assert.Equal(t, "admin", cfg.Auth.ProjectName)
	assert.Equal(t, "default", cfg.Auth.ProjectDomainID)
	assert.Empty(t, cfg.Auth.ProjectDomainName)
	assert.Equal(t, "RegionOne", cfg.RegionName)
	require.NotNil(t, cfg.Verify)
	assert.False(t, *cfg.Verify)
	assert.InDelta(t, 10.0, cfg.APITimeout, 0.001)
}

func TestFromEnv_ProjectIsOptional(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"OS_AUTH_URL": "https://identity.example.com",
		"OS_USERNAME": "demo",
		"OS_PASSWORD": "secret",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.scope().IsZero())
}

func TestFromEnv_InfersAuthType(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"token", map[string]string{"OS_AUTH_URL": "https://id", "OS_TOKEN": "gAAAA"}, AuthTypeToken},
		{"application credential", map[string]string{
			"OS_AUTH_URL":                      "https://id",
			"OS_APPLICATION_CREDENTIAL_ID":     "ac",
			"OS_APPLICATION_CREDENTIAL_SECRET": "s",
		}, AuthTypeApplicationCredential},
		{"endpoint only", map[string]string{"OS_ENDPOINT": "http://ironic.local:6385"}, AuthTypeNone},
		{"explicit", map[string]string{"OS_AUTH_TYPE": "v3token", "OS_AUTH_URL": "https://id", "OS_TOKEN": "t"}, AuthTypeToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromEnv(envMap(tt.env))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.AuthType)
		})
	}
}

func TestFromEnv_MissingVariables(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{"OS_USERNAME": "demo"}))
	require.ErrorIs(t, err, ErrMissingEnv)
	assert.Contains(t, err.Error(), "OS_AUTH_URL")
	assert.Contains(t, err.Error(), "OS_PASSWORD")
	assert.NotContains(t, err.Error(), "OS_USERNAME")

	_, err = FromEnv(envMap(map[string]string{"OS_AUTH_TYPE": "application_credential", "OS_AUTH_URL": "https://id"}))
	require.ErrorIs(t, err, ErrMissingEnv)
	assert.Contains(t, err.Error(), "OS_APPLICATION_CREDENTIAL_SECRET")
}

func TestFromEnv_InvalidValues(t *testing.T) {
	base := map[string]string{"OS_AUTH_URL": "https://id", "OS_USERNAME": "u", "OS_PASSWORD": "p"}

	withEnv := func(k, v string) map[string]string {
		m := map[string]string{k: v}
		for key, val := range base {
			m[key] = val
		}
		return m
	}

	_, err := FromEnv(envMap(withEnv("OS_INSECURE", "maybe")))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = FromEnv(envMap(withEnv("OS_API_TIMEOUT", "soon")))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = FromEnv(envMap(withEnv("OS_INTERFACE", "private")))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = FromEnv(envMap(withEnv("OS_AUTH_TYPE", "v2password")))
	assert.ErrorIs(t, err, ErrUnsupportedAuthType)
}

func TestFromEnv_CloudDelegatesToFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clouds.yaml", testCloudsYAML)

	t.Setenv(EnvCloud, "standalone")
	t.Setenv(EnvClientConfigFile, "")
	t.Setenv(EnvClientSecureFile, "")

	cfg, err := FromEnv(WithSearchDirs(dir))
	require.NoError(t, err)
	assert.Equal(t, "standalone", cfg.Name)
	assert.Equal(t, AuthTypeNone, cfg.AuthType)
}
