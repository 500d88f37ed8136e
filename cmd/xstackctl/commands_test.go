package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xstack/pkg/cloud/xidentity"
	"github.com/omeyang/xstack/pkg/cloud/xsession"
)

// =============================================================================
// 测试辅助
// =============================================================================

// fakeCloud 同时模拟身份服务与计算服务。
type fakeCloud struct {
	server *httptest.Server
	config string
}

func newFakeCloud(t *testing.T) *fakeCloud {
	t.Helper()
	f := &fakeCloud{}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)

	clouds := `clouds:
  test:
    auth:
      auth_url: ` + f.server.URL + `
      username: admin
      password: s3cret
      project_name: admin
    region_name: RegionOne
`
	f.config = filepath.Join(t.TempDir(), "clouds.yaml")
	require.NoError(t, os.WriteFile(f.config, []byte(clouds), 0600))
	return f
}

func (f *fakeCloud) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/v3/auth/tokens":
		w.Header().Set(xidentity.HeaderSubjectToken, "gAAAA-cli")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"token":{"expires_at":"`+time.Now().Add(time.Hour).UTC().Format(time.RFC3339)+
			`","user":{"id":"u1"},"project":{"id":"p1"},"catalog":[{"type":"compute","endpoints":[`+
			`{"interface":"public","region_id":"RegionOne","url":"`+f.server.URL+`/v2.1"}]}]}}`)
	case r.Header.Get(xsession.HeaderAuthToken) != "gAAAA-cli":
		w.WriteHeader(http.StatusUnauthorized)
	case r.URL.Path == "/v2.1/servers" && r.Method == http.MethodGet:
		_, _ = io.WriteString(w, `{"servers":[]}`)
	case r.URL.Path == "/v2.1/servers" && r.Method == http.MethodPost:
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.Copy(w, r.Body)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"itemNotFound":{"code":404}}`)
	}
}

// runCLI 执行命令并返回退出码、stdout 与 stderr。
func (f *fakeCloud) runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"xstackctl", "--config", f.config, "--cloud", "test"}, args...)
	code := run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// =============================================================================
// 命令测试
// =============================================================================

func TestRun_Clouds(t *testing.T) {
	f := newFakeCloud(t)
	code, out, _ := f.runCLI(t, "clouds")
	require.Equal(t, 0, code)
	assert.Contains(t, out, f.config)
	assert.Contains(t, out, "\ntest\n")
}

func TestRun_Token(t *testing.T) {
	f := newFakeCloud(t)

	code, out, errOut := f.runCLI(t, "token")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "cloud:       test")
	assert.Contains(t, out, "auth_type:   password")
	assert.Contains(t, out, "user_id:     u1")
	assert.Contains(t, out, "project_id:  p1")
	assert.Contains(t, out, "services:    1")
	assert.NotContains(t, out, "gAAAA-cli")

	code, out, _ = f.runCLI(t, "token", "--reveal")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "token:       gAAAA-cli")
}

func TestRun_Catalog(t *testing.T) {
	f := newFakeCloud(t)

	code, out, _ := f.runCLI(t, "catalog")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "compute")
	assert.Contains(t, out, "RegionOne")
	assert.Contains(t, out, f.server.URL+"/v2.1")

	code, out, _ = f.runCLI(t, "catalog", "--json")
	require.Equal(t, 0, code)
	var services []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &services))
	require.Len(t, services, 1)
	assert.Equal(t, "compute", services[0]["type"])
}

func TestRun_Endpoint(t *testing.T) {
	f := newFakeCloud(t)

	code, out, _ := f.runCLI(t, "endpoint", "--min-version", "2.1", "compute")
	require.Equal(t, 0, code)
	assert.Equal(t, f.server.URL+"/v2.1\n", out)

	code, _, errOut := f.runCLI(t, "endpoint", "--min-version", "3", "compute")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "错误")

	code, _, _ = f.runCLI(t, "endpoint", "network")
	assert.Equal(t, 1, code)
}

func TestRun_Request(t *testing.T) {
	f := newFakeCloud(t)

	code, out, errOut := f.runCLI(t, "request", "get", "compute", "/servers")
	require.Equal(t, 0, code, errOut)
	assert.JSONEq(t, `{"servers":[]}`, out)

	code, out, _ = f.runCLI(t, "request", "-d", `{"server":{"name":"web"}}`, "-H", "X-Trace: 1", "POST", "compute", "/servers")
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"server":{"name":"web"}}`, out)

	code, _, errOut = f.runCLI(t, "request", "GET", "compute", "/flavors/missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "itemNotFound")
	assert.Contains(t, errOut, "404")
}

func TestRun_LogFile(t *testing.T) {
	f := newFakeCloud(t)
	logPath := filepath.Join(t.TempDir(), "xstackctl.log")

	code, _, errOut := f.runCLI(t, "--log-level", "debug", "--log-file", logPath, "token")
	require.Equal(t, 0, code, errOut)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "credential refreshed")
	assert.NotContains(t, string(data), "gAAAA-cli")
	assert.NotContains(t, string(data), "s3cret")
}

func TestRun_UsageErrors(t *testing.T) {
	f := newFakeCloud(t)

	tests := []struct {
		name string
		args []string
	}{
		{"endpoint without service", []string{"endpoint"}},
		{"endpoint bad version", []string{"endpoint", "--min-version", "x", "compute"}},
		{"request missing args", []string{"request", "GET", "compute"}},
		{"request bad header", []string{"request", "-H", "nocolon", "GET", "compute", "/servers"}},
		{"bad log level", []string{"--log-level", "loud", "token"}},
		{"bad interface", []string{"--interface", "private", "token"}},
		{"unknown flag", []string{"--no-such-flag", "token"}},
		{"zero timeout", []string{"--timeout", "0s", "token"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := f.runCLI(t, tt.args...)
			assert.Equal(t, 2, code)
		})
	}
}

func TestRun_UnknownCloud(t *testing.T) {
	f := newFakeCloud(t)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"xstackctl", "--config", f.config, "--cloud", "nope", "token"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unknown cloud")
}

// =============================================================================
// 参数解析
// =============================================================================

func TestBuildRequest(t *testing.T) {
	bodyFile := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(bodyFile, []byte(`{"a":1}`), 0600))

	req, err := buildRequest([]string{"post", "-", "https://example.com/x"}, "@"+bodyFile,
		[]string{"Content-Type: application/merge-patch+json"}, []string{"limit=5", "marker=m"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Empty(t, req.Service)
	assert.Equal(t, `{"a":1}`, string(req.Body))
	assert.Equal(t, "application/merge-patch+json", req.Header.Get("Content-Type"))
	assert.Equal(t, "5", req.Query.Get("limit"))

	_, err = buildRequest([]string{"GET", "compute", "/x"}, "", nil, []string{"novalue"})
	assert.True(t, isCLIUsageError(err))

	_, err = buildRequest([]string{"GET", "compute", "/x"}, "@"+filepath.Join(t.TempDir(), "missing"), nil, nil)
	assert.True(t, isCLIUsageError(err))
}

func TestEndpointQuery(t *testing.T) {
	q, err := endpointQuery("compute", "2.1", "v2.90")
	require.NoError(t, err)
	assert.Equal(t, 2, q.Version.Min.Major)
	assert.Equal(t, 1, q.Version.Min.Minor)
	assert.Equal(t, 90, q.Version.Max.Minor)

	_, err = endpointQuery("compute", "", "two")
	assert.True(t, isCLIUsageError(err))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := newLogger("INFO", "", &buf)
	require.NoError(t, err)
	defer closeFn()

	logger.Debug("hidden")
	logger.Info("shown")
	assert.False(t, strings.Contains(buf.String(), "hidden"))
	assert.True(t, strings.Contains(buf.String(), "shown"))

	_, _, err = newLogger("verbose", "", &buf)
	assert.True(t, isCLIUsageError(err))
}
