package capabilities

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasEndpoint(t *testing.T) {
	doc := &Document{Endpoints: []Endpoint{
		{Path: "/collections", Methods: []string{"GET"}},
		{Path: "/jobs", Methods: []string{"get", "Post"}},
	}}

	assert.True(t, HasEndpoint(doc, "/collections", ""))
	assert.True(t, HasEndpoint(doc, "/collections", "get"))
	assert.True(t, HasEndpoint(doc, "/collections", "GET"))
	assert.False(t, HasEndpoint(doc, "/collections", "POST"))
	assert.False(t, HasEndpoint(doc, "/services", "GET"))
	assert.True(t, doc.HasEndpoint("/jobs", "POST"))
	assert.False(t, HasEndpoint(nil, "/jobs", "GET"))
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openeo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"versions": [
			{"url": "https://example.org/openeo/0.4.2", "api_version": "0.4.2"},
			{"url": "https://example.org/openeo/1.0.0", "api_version": "1.0.0", "production": true}
		]}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"api_version": "1.0.0", "backend_version": "2.3", "title": "Test",
			"endpoints": [{"path": "/collections", "methods": ["GET"]}, {"path": "/jobs/{job_id}", "methods": ["GET", "DELETE"]}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClientFetch(t *testing.T) {
	server := newBackend(t)
	client := NewClientWith(server.Client())

	doc, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", doc.APIVersion)
	assert.Equal(t, "2.3", doc.BackendVersion)
	assert.Len(t, doc.Endpoints, 2)
	assert.True(t, doc.HasEndpoint("/jobs/{job_id}", "delete"))

	_, err = client.Fetch(context.Background(), server.URL+"/nothing/")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestClientFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, err := NewClient(20*time.Millisecond).Fetch(context.Background(), server.URL)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.True(t, transportErr.Retryable())
	assert.True(t, transportErr.Timeout())
}

func TestResolveURL(t *testing.T) {
	server := newBackend(t)
	client := NewClientWith(server.Client())
	ctx := context.Background()

	u, err := client.ResolveURL(ctx, server.URL, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/openeo/1.0.0", u)

	u, err = client.ResolveURL(ctx, server.URL, "9.9.9")
	require.NoError(t, err)
	assert.Equal(t, server.URL, u)

	u, err = client.ResolveURL(ctx, server.URL, "")
	require.NoError(t, err)
	assert.Equal(t, server.URL, u)

	plain := httptest.NewServer(http.NotFoundHandler())
	defer plain.Close()
	u, err = NewClientWith(plain.Client()).ResolveURL(ctx, plain.URL, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, plain.URL, u)

	_, err = client.ResolveURL(ctx, "http://127.0.0.1:1", "1.0.0")
	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
}
