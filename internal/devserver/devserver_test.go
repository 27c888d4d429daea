package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/pechorka/xmum-wiki/internal/config"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevServer(t *testing.T, target string) *httptest.Server {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<div id=app></div>"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o600))

	log, _ := test.NewNullLogger()
	s, err := New(config.DevServerConfig{
		Base:      "SurviveXMUM",
		StaticDir: dir,
		APIPrefix: "/api/",
		Target:    target,
	}, log)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestProxyStripsPrefix(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": map[string]string{
			"path":  r.URL.Path,
			"query": r.URL.RawQuery,
			"host":  r.Host,
			"auth":  r.Header.Get("Authorization"),
		}})
	}))
	t.Cleanup(backend.Close)
	srv := newDevServer(t, backend.URL)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/docs/list?page=2", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer t")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env struct {
		Code int               `json:"code"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	backendURL, err := url.Parse(backend.URL)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"path":  "/docs/list",
		"query": "page=2",
		"host":  backendURL.Host,
		"auth":  "Bearer t",
	}, env.Data)
}

func TestProxyBackendDown(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	target := backend.URL
	backend.Close()
	srv := newDevServer(t, target)

	resp, body := get(t, http.DefaultClient, srv.URL+"/api/login/email")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.JSONEq(t, `{"code":50200,"message":"backend unavailable","data":null}`, body)
}

func TestStaticFiles(t *testing.T) {
	srv := newDevServer(t, "http://localhost:1")
	c := noRedirect()

	resp, body := get(t, c, srv.URL+"/SurviveXMUM/assets/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "console.log(1)", body)

	for _, p := range []string{"/SurviveXMUM/", "/SurviveXMUM/docs/guide/setup.md", "/SurviveXMUM/login"} {
		resp, body = get(t, c, srv.URL+p)
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
		assert.Equal(t, "<div id=app></div>", body, p)
	}
}

func TestRootRedirectsToBase(t *testing.T) {
	srv := newDevServer(t, "http://localhost:1")

	resp, _ := get(t, noRedirect(), srv.URL+"/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/SurviveXMUM/", resp.Header.Get("Location"))
}

func TestNewRejectsRelativeTarget(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := New(config.DevServerConfig{Target: "localhost:8080"}, log)
	assert.Error(t, err)
}

func TestNormalizeBase(t *testing.T) {
	assert.Equal(t, "/", normalizeBase(""))
	assert.Equal(t, "/", normalizeBase("/"))
	assert.Equal(t, "/SurviveXMUM/", normalizeBase("SurviveXMUM"))
	assert.Equal(t, "/SurviveXMUM/", normalizeBase("/SurviveXMUM/"))
}
