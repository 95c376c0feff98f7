package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pyneda/openeoct/db"
	"github.com/pyneda/openeoct/internal/testfixtures"
	"github.com/pyneda/openeoct/pkg/capabilities"
	"github.com/pyneda/openeoct/pkg/registry"
	"github.com/pyneda/openeoct/pkg/runner"
	"github.com/pyneda/openeoct/pkg/spec"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openeoBackend() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/":
			io.WriteString(w, `{"api_version":"1.2.3","backend_version":"0.1","endpoints":[
				{"path":"/helloworld","methods":["GET"]},
				{"path":"/with_ref","methods":["GET","POST"]},
				{"path":"/jobs/{job_id}","methods":["GET"]}]}`)
		case "/helloworld":
			io.WriteString(w, `{"greeting":"hi"}`)
		case "/with_ref":
			io.WriteString(w, `[{"bar":"ok"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"code":"NotFound","message":"not found"}`)
		}
	})
	return httptest.NewServer(mux)
}

type testServer struct {
	app     *fiber.App
	server  *Server
	backend *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	backend := openeoBackend()
	t.Cleanup(backend.Close)

	dir := t.TempDir()
	testfixtures.WriteFile(t, dir, "openeo-api-1.2.3.json", testfixtures.SimpleAPI)
	conn, err := db.Open("sqlite", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	reg := registry.New()
	reg.SetStore(conn)
	s := &Server{
		Registry:     reg,
		Store:        spec.NewStore(dir),
		Capabilities: capabilities.NewClientWith(backend.Client()),
		DB:           conn,
		HttpClient:   backend.Client(),
		Logger:       zerolog.Nop(),
	}
	return &testServer{app: s.App(), server: s, backend: backend}
}

func (ts *testServer) do(t *testing.T, method, path, contentType string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (ts *testServer) createBackend(t *testing.T) {
	t.Helper()
	payload, _ := json.Marshal(CreateBackendInput{ID: "local", Name: "Local", URL: ts.backend.URL, Version: "1.2.3"})
	resp, body := ts.do(t, "POST", "/api/v1/backends", "application/json", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}

func TestCreateAndListBackends(t *testing.T) {
	ts := newTestServer(t)
	ts.createBackend(t)

	resp, body := ts.do(t, "GET", "/api/v1/backends", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var backends []registry.Backend
	require.NoError(t, json.Unmarshal(body, &backends))
	require.Len(t, backends, 1)
	assert.Equal(t, "local", backends[0].ID)

	payload, _ := json.Marshal(CreateBackendInput{ID: "local", URL: ts.backend.URL})
	resp, _ = ts.do(t, "POST", "/api/v1/backends", "application/json", payload)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	payload, _ = json.Marshal(CreateBackendInput{ID: "broken", URL: "not a url"})
	resp, _ = ts.do(t, "POST", "/api/v1/backends", "application/json", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, "GET", "/api/v1/backends/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ids, err := ts.server.DB.BackendIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"local"}, ids)
}

func TestMergeAndExportConfig(t *testing.T) {
	ts := newTestServer(t)
	ts.createBackend(t)

	fragment := `
[endpoints.hello]
url = "/helloworld"
group = "basic"

[variables]
job_id = "abc"
`
	resp, body := ts.do(t, "POST", "/api/v1/backends/local/config", "application/toml", []byte(fragment))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var detail BackendDetail
	require.NoError(t, json.Unmarshal(body, &detail))
	require.Len(t, detail.Endpoints, 1)
	assert.Equal(t, "hello", detail.Endpoints[0].ID)
	require.Len(t, detail.Variables, 1)

	resp, body = ts.do(t, "POST", "/api/v1/backends/local/config?format=json", "application/json", []byte(`{"endpoints":{"x":{"url":"/x"},"y":{"id":"x","url":"/y"}}}`))
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	resp, _ = ts.do(t, "POST", "/api/v1/backends/local/config?format=xml", "", []byte(`x`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = ts.do(t, "GET", "/api/v1/backends/local/config", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/toml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "helloworld")

	reloaded, err := ts.server.DB.LoadRegistry()
	require.NoError(t, err)
	endpoints, err := reloaded.Endpoints("local")
	require.NoError(t, err)
	assert.Len(t, endpoints, 1)
}

func TestFailingDatabaseKeepsRegistry(t *testing.T) {
	ts := newTestServer(t)
	ts.createBackend(t)
	resp, before := ts.do(t, "GET", "/api/v1/backends/local", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, ts.server.DB.Close())

	resp, body := ts.do(t, "POST", "/api/v1/backends/local/config?format=json", "application/json", []byte(`{"username":"changed","variables":{"job":"a"},"endpoints":{"hello":{"url":"/helloworld"}}}`))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, string(body))
	resp, body = ts.do(t, "POST", "/api/v1/backends/local/endpoints/discover", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, string(body))
	resp, _ = ts.do(t, "DELETE", "/api/v1/backends/local", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, after := ts.do(t, "GET", "/api/v1/backends/local", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, string(before), string(after))

	payload, _ := json.Marshal(CreateBackendInput{ID: "other", URL: ts.backend.URL})
	resp, _ = ts.do(t, "POST", "/api/v1/backends", "application/json", payload)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp, _ = ts.do(t, "GET", "/api/v1/backends/other", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDiscoverAndValidate(t *testing.T) {
	ts := newTestServer(t)
	ts.createBackend(t)

	resp, body := ts.do(t, "POST", "/api/v1/backends/local/endpoints/discover", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var discovered DiscoverResponse
	require.NoError(t, json.Unmarshal(body, &discovered))
	assert.Len(t, discovered.Added, 2)

	resp, body = ts.do(t, "POST", "/api/v1/backends/local/endpoints/discover?all=true", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &discovered))
	assert.Len(t, discovered.Added, 2)
	assert.Equal(t, 4, discovered.Total)

	resp, body = ts.do(t, "GET", "/api/v1/backends/local/endpoints", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var endpoints []registry.EndpointRecord
	require.NoError(t, json.Unmarshal(body, &endpoints))
	assert.Len(t, endpoints, 4)

	resp, body = ts.do(t, "POST", "/api/v1/backends/local/validate", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var report runner.Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, "1.2.3", report.APIVersion)
	states := map[string]runner.State{}
	for _, r := range report.Results() {
		states[r.Method+" "+r.URL] = r.State
	}
	assert.Equal(t, runner.StateValid, states["GET /helloworld"])
	assert.Equal(t, runner.StateValid, states["GET /with_ref"])
	assert.Equal(t, runner.StateMissing, states["GET /jobs/{job_id}"])

	resp, body = ts.do(t, "GET", "/api/v1/backends/local/results", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var results ListResponse[db.ValidationResult]
	require.NoError(t, json.Unmarshal(body, &results))
	require.Equal(t, int64(1), results.Count)

	resp, body = ts.do(t, "GET", "/api/v1/results/"+results.Data[0].ID.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "/helloworld"))
}

func TestValidateWithoutContract(t *testing.T) {
	ts := newTestServer(t)
	payload, _ := json.Marshal(CreateBackendInput{ID: "other", URL: ts.backend.URL, Version: "9.9.9"})
	resp, _ := ts.do(t, "POST", "/api/v1/backends", "application/json", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = ts.do(t, "POST", "/api/v1/backends/other/validate", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDeleteBackend(t *testing.T) {
	ts := newTestServer(t)
	ts.createBackend(t)

	resp, _ := ts.do(t, "DELETE", "/api/v1/backends/local", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ts.do(t, "DELETE", "/api/v1/backends/local", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ids, err := ts.server.DB.BackendIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDocsRoute(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := ts.do(t, http.MethodGet, "/docs/doc.json", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	viper.Set("api.docs.enabled", true)
	viper.Set("api.docs.path", "/docs")
	t.Cleanup(func() {
		viper.Set("api.docs.enabled", false)
		viper.Set("api.docs.path", "")
	})
	app := ts.server.App()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs/doc.json", nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/api/v1/backends/{id}/validate")
	assert.Contains(t, doc["securityDefinitions"], "BasicAuth")
}
