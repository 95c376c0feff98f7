package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/pyneda/openeoct/pkg/capabilities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	_, err := r.CreateBackend(Backend{Name: "Test Backend", URL: "https://openeo.example.org/api/v1.0.0"})
	require.NoError(t, err)
	return r
}

func TestBackendLifecycle(t *testing.T) {
	r := newTestRegistry(t)

	b, err := r.Backend("test-backend")
	require.NoError(t, err)
	assert.Equal(t, "Test Backend", b.Name)

	_, err = r.CreateBackend(Backend{ID: "test-backend", URL: "https://x.org"})
	assert.ErrorIs(t, err, ErrBackendExists)

	_, err = r.CreateBackend(Backend{ID: "broken", URL: "not a url"})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	b.Version = "1.0.0"
	require.NoError(t, r.UpdateBackend(b))
	b, err = r.Backend("test-backend")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", b.Version)

	assert.Len(t, r.Backends(), 1)
	require.NoError(t, r.DeleteBackend("test-backend"))
	_, err = r.Backend("test-backend")
	assert.ErrorIs(t, err, ErrBackendNotFound)
	assert.ErrorIs(t, r.DeleteBackend("test-backend"), ErrBackendNotFound)
}

func TestEndpointCRUD(t *testing.T) {
	r := newTestRegistry(t)

	rec, err := r.AddEndpoint("test-backend", EndpointRecord{URL: "/collections", Method: "get"})
	require.NoError(t, err)
	assert.Equal(t, "get-collections", rec.ID)
	assert.Equal(t, "GET", rec.Method)
	assert.Equal(t, DefaultGroup, rec.Group)
	assert.Equal(t, "test-backend", rec.BackendID)

	_, err = r.AddEndpoint("test-backend", EndpointRecord{ID: "again", URL: "/collections", Method: "GET"})
	var dup *DuplicateEndpointError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "get-collections", dup.ExistingID)
	assert.Equal(t, "again", dup.ConflictingID)

	_, err = r.AddEndpoint("test-backend", EndpointRecord{ID: "get-collections", URL: "/processes"})
	assert.ErrorIs(t, err, ErrAmbiguousIdentifier)

	_, err = r.AddEndpoint("test-backend", EndpointRecord{URL: "collections"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	_, err = r.AddEndpoint("test-backend", EndpointRecord{URL: "/x", Method: "FETCH"})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	updated, err := r.UpdateEndpoint("test-backend", "get-collections", EndpointRecord{URL: "/collections", Method: "GET", Group: "data", Timeout: 30})
	require.NoError(t, err)
	assert.Equal(t, rec.StorageID, updated.StorageID)
	assert.Equal(t, "data", updated.Group)

	require.NoError(t, r.RemoveEndpoint("test-backend", "get-collections"))
	assert.ErrorIs(t, r.RemoveEndpoint("test-backend", "get-collections"), ErrEndpointNotFound)
	_, err = r.AddEndpoint("nope", EndpointRecord{URL: "/"})
	assert.ErrorIs(t, err, ErrBackendNotFound)
}

func TestDiscoverKeepsAuxiliaryFields(t *testing.T) {
	r := newTestRegistry(t)
	existing, err := r.AddEndpoint("test-backend", EndpointRecord{ID: "c", URL: "/collections", Method: "GET", Group: "data", Order: 2, Timeout: 90, Body: "b.json"})
	require.NoError(t, err)

	added, err := r.Discover("test-backend", testCapabilities(), DefaultReconcileOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /", "GET /jobs", "GET /processes"}, urlsAndMethods(added))

	again, err := r.Discover("test-backend", testCapabilities(), DefaultReconcileOptions())
	require.NoError(t, err)
	assert.Empty(t, again)

	got, err := r.Endpoint("test-backend", "c")
	require.NoError(t, err)
	assert.Equal(t, existing, got)

	all, err := r.Endpoints("test-backend")
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /collections", "GET /", "GET /jobs", "GET /processes"}, urlsAndMethods(all))
}

func TestConcurrentDiscover(t *testing.T) {
	r := New()
	for i := 0; i < 4; i++ {
		_, err := r.CreateBackend(Backend{ID: fmt.Sprintf("b%d", i), URL: "https://x.org"})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Discover(fmt.Sprintf("b%d", i%4), testCapabilities(), AllReconcileOptions())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		all, err := r.Endpoints(fmt.Sprintf("b%d", i))
		require.NoError(t, err)
		assert.Len(t, all, 9)
		seen := map[string]bool{}
		for _, rec := range all {
			key := rec.Method + " " + rec.URL
			assert.False(t, seen[key], "duplicate %s", key)
			seen[key] = true
		}
	}
}

func TestVariables(t *testing.T) {
	r := newTestRegistry(t)
	v1, err := r.SetVariable("test-backend", "collection", "S2")
	require.NoError(t, err)
	v2, err := r.SetVariable("test-backend", "collection", "S1")
	require.NoError(t, err)
	assert.Equal(t, v1.StorageID, v2.StorageID)

	_, err = r.SetVariable("test-backend", "", "x")
	assert.ErrorIs(t, err, ErrInvalidRecord)

	vars, err := r.Variables("test-backend")
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "S1", vars[0].Value)
}

func TestSnapshotRestore(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Discover("test-backend", testCapabilities(), DefaultReconcileOptions())
	require.NoError(t, err)
	_, err = r.SetVariable("test-backend", "job", "abc")
	require.NoError(t, err)

	snap, err := r.Snapshot("test-backend")
	require.NoError(t, err)

	other := New()
	require.NoError(t, other.Restore(snap))
	restored, err := other.Snapshot("test-backend")
	require.NoError(t, err)
	assert.Equal(t, snap, restored)

	bad := snap
	bad.Endpoints = append(append([]EndpointRecord{}, snap.Endpoints...), snap.Endpoints[0])
	bad.Endpoints[len(bad.Endpoints)-1].StorageID = [16]byte{1}
	var dup *DuplicateEndpointError
	assert.True(t, errors.As(New().Restore(bad), &dup))
}

func TestDiscoverUnknownBackend(t *testing.T) {
	_, err := New().Discover("missing", &capabilities.Document{}, DefaultReconcileOptions())
	assert.ErrorIs(t, err, ErrBackendNotFound)
}
