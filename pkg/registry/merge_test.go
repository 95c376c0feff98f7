package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeScalars(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.MergeFragment("test-backend", &Fragment{
		OpenAPI:  ptr("openeo-api-1.0.0.json"),
		Username: ptr("user"),
		Password: ptr("secret"),
		AuthURL:  ptr("/credentials/basic"),
	}))
	require.NoError(t, r.MergeFragment("test-backend", &Fragment{
		Username:       ptr("other"),
		BackendVersion: ptr("1.0.0"),
	}))

	b, err := r.Backend("test-backend")
	require.NoError(t, err)
	assert.Equal(t, "https://openeo.example.org/api/v1.0.0", b.URL)
	assert.Equal(t, "openeo-api-1.0.0.json", b.OpenAPI)
	assert.Equal(t, "other", b.Username)
	assert.Equal(t, "secret", b.Password)
	assert.Equal(t, "/credentials/basic", b.AuthURL)
	assert.Equal(t, "1.0.0", b.Version)
}

func TestMergeVariablesUnion(t *testing.T) {
	r := newTestRegistry(t)
	first, err := ParseFragment([]byte(`{"variables": {"collection": "S2", "job": "a"}}`), FormatJSON)
	require.NoError(t, err)
	second, err := ParseFragment([]byte("[variables]\njob = \"b\"\nprocess = \"ndvi\"\n"), FormatTOML)
	require.NoError(t, err)
	require.NoError(t, r.MergeFragments("test-backend", first, second))

	vars, err := r.Variables("test-backend")
	require.NoError(t, err)
	got := map[string]string{}
	for _, v := range vars {
		got[v.Name] = v.Value
	}
	assert.Equal(t, map[string]string{"collection": "S2", "job": "b", "process": "ndvi"}, got)
}

func TestMergeEndpointsKeepIdentity(t *testing.T) {
	r := newTestRegistry(t)
	added, err := r.Discover("test-backend", testCapabilities(), DefaultReconcileOptions())
	require.NoError(t, err)
	before := added[1]
	require.Equal(t, "get-collections", before.ID)

	require.NoError(t, r.MergeFragment("test-backend", &Fragment{Endpoints: map[string]EndpointFragment{
		"get-collections": {Group: ptr("data"), Timeout: ptr(120)},
		"list-jobs":       {URL: ptr("/jobs"), RequestType: ptr("post"), Optional: ptr(true)},
	}}))

	got, err := r.Endpoint("test-backend", "get-collections")
	require.NoError(t, err)
	assert.Equal(t, before.StorageID, got.StorageID)
	assert.Equal(t, "/collections", got.URL)
	assert.Equal(t, "data", got.Group)
	assert.Equal(t, 120, got.Timeout)

	created, err := r.Endpoint("test-backend", "list-jobs")
	require.NoError(t, err)
	assert.Equal(t, "POST", created.Method)
	assert.True(t, created.Optional)
	assert.Equal(t, DefaultGroup, created.Group)

	all, err := r.Endpoints("test-backend")
	require.NoError(t, err)
	assert.Len(t, all, len(added)+1)
	assert.Equal(t, "get", all[0].ID)
	assert.Equal(t, "get-collections", all[1].ID)
}

func TestMergeDuplicateIsAtomic(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Discover("test-backend", testCapabilities(), DefaultReconcileOptions())
	require.NoError(t, err)
	before, err := r.Snapshot("test-backend")
	require.NoError(t, err)

	err = r.MergeFragment("test-backend", &Fragment{
		Username:  ptr("changed"),
		Variables: map[string]string{"x": "1"},
		Endpoints: map[string]EndpointFragment{
			"a-new-one": {URL: ptr("/me"), RequestType: ptr("GET")},
			"b-new-one": {URL: ptr("/me")},
		},
	})
	var dup *DuplicateEndpointError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "/me", dup.URL)
	assert.Equal(t, "GET", dup.Method)

	after, err := r.Snapshot("test-backend")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMergeMatchesByUrlAndMethod(t *testing.T) {
	r := newTestRegistry(t)
	added, err := r.Discover("test-backend", testCapabilities(), DefaultReconcileOptions())
	require.NoError(t, err)
	before := added[1]
	require.Equal(t, "get-collections", before.ID)

	f, err := ParseFragment([]byte(`{"endpoints": {"collections": {"url": "/collections", "request_type": "get", "group": "data"}}}`), FormatJSON)
	require.NoError(t, err)
	require.NoError(t, r.MergeFragment("test-backend", f))
	// applying the same fragment again matches the same record
	require.NoError(t, r.MergeFragment("test-backend", f))

	got, err := r.Endpoint("test-backend", "get-collections")
	require.NoError(t, err)
	assert.Equal(t, before.StorageID, got.StorageID)
	assert.Equal(t, "data", got.Group)

	all, err := r.Endpoints("test-backend")
	require.NoError(t, err)
	assert.Len(t, all, len(added))
}

func TestMergeTwoEntriesForOneRecord(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Discover("test-backend", testCapabilities(), DefaultReconcileOptions())
	require.NoError(t, err)
	before, err := r.Snapshot("test-backend")
	require.NoError(t, err)

	err = r.MergeFragment("test-backend", &Fragment{Endpoints: map[string]EndpointFragment{
		"get-collections": {Group: ptr("data")},
		"collections":     {URL: ptr("/collections"), Group: ptr("other")},
	}})
	assert.ErrorIs(t, err, ErrAmbiguousIdentifier)

	after, err := r.Snapshot("test-backend")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMergeSwapUrls(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.AddEndpoint("test-backend", EndpointRecord{ID: "a", URL: "/a"})
	require.NoError(t, err)
	_, err = r.AddEndpoint("test-backend", EndpointRecord{ID: "b", URL: "/b"})
	require.NoError(t, err)

	require.NoError(t, r.MergeFragment("test-backend", &Fragment{Endpoints: map[string]EndpointFragment{
		"a": {URL: ptr("/b")},
		"b": {URL: ptr("/a")},
	}}))
	a, err := r.Endpoint("test-backend", "a")
	require.NoError(t, err)
	assert.Equal(t, "/b", a.URL)
}

func TestMergeAmbiguousIdentity(t *testing.T) {
	r := newTestRegistry(t)
	err := r.MergeFragment("test-backend", &Fragment{Endpoints: map[string]EndpointFragment{
		"first":  {ID: ptr("caps"), URL: ptr("/")},
		"second": {ID: ptr("caps"), URL: ptr("/collections")},
	}})
	assert.ErrorIs(t, err, ErrAmbiguousIdentifier)

	err = r.MergeFragment("test-backend", &Fragment{Endpoints: map[string]EndpointFragment{
		"endpoints.caps": {URL: ptr("/")},
		"caps":           {URL: ptr("/collections")},
	}})
	assert.ErrorIs(t, err, ErrAmbiguousIdentifier)

	all, err := r.Endpoints("test-backend")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMergeIncompleteEndpoint(t *testing.T) {
	r := newTestRegistry(t)
	err := r.MergeFragment("test-backend", &Fragment{Endpoints: map[string]EndpointFragment{
		"nourl": {Group: ptr("x")},
	}})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	err = r.MergeFragment("test-backend", &Fragment{URL: ptr("")})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestImportBackend(t *testing.T) {
	r := New()
	f, err := ParseFragment([]byte(`
url: https://openeo.example.org/v1.0.0
openapi: openeo-api-1.0.0.json
endpoints:
  capabilities:
    url: /
    request_type: GET
  endpoints.collections:
    id: get-collections
    url: /collections
    request_type: GET
    group: data
    order: 1
`), FormatYAML)
	require.NoError(t, err)

	b, err := r.ImportBackend(Backend{Name: "EODC"}, f)
	require.NoError(t, err)
	assert.Equal(t, "eodc", b.ID)

	rec, err := r.Endpoint("eodc", "get-collections")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Order)

	_, err = r.ImportBackend(Backend{Name: "EODC"}, f)
	assert.ErrorIs(t, err, ErrBackendExists)
	_, err = r.ImportBackend(Backend{Name: "empty"}, &Fragment{})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
