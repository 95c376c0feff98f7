package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	fail    error
	saved   map[string]Snapshot
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: make(map[string]Snapshot)}
}

func (m *memoryStore) SaveSnapshot(s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.saved[s.Backend.ID] = s
	return nil
}

func (m *memoryStore) DeleteBackend(backendID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	delete(m.saved, backendID)
	m.deleted = append(m.deleted, backendID)
	return nil
}

func (m *memoryStore) failWith(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

func TestStoreReceivesEveryChange(t *testing.T) {
	store := newMemoryStore()
	r := New()
	r.SetStore(store)

	b, err := r.CreateBackend(Backend{Name: "Test Backend", URL: "https://openeo.example.org/api/v1.0.0"})
	require.NoError(t, err)
	require.Contains(t, store.saved, b.ID)

	_, err = r.Discover(b.ID, testCapabilities(), DefaultReconcileOptions())
	require.NoError(t, err)
	require.NoError(t, r.MergeFragment(b.ID, &Fragment{Variables: map[string]string{"job": "a"}}))

	current, err := r.Snapshot(b.ID)
	require.NoError(t, err)
	assert.Equal(t, current, store.saved[b.ID])

	require.NoError(t, r.DeleteBackend(b.ID))
	assert.Equal(t, []string{b.ID}, store.deleted)
}

func TestFailingStoreLeavesRegistryUnchanged(t *testing.T) {
	store := newMemoryStore()
	r := newTestRegistry(t)
	r.SetStore(store)
	_, err := r.Discover("test-backend", testCapabilities(), DefaultReconcileOptions())
	require.NoError(t, err)
	before, err := r.Snapshot("test-backend")
	require.NoError(t, err)

	boom := errors.New("disk full")
	store.failWith(boom)

	err = r.MergeFragment("test-backend", &Fragment{
		Username:  ptr("changed"),
		Variables: map[string]string{"x": "1"},
		Endpoints: map[string]EndpointFragment{"me": {URL: ptr("/me")}},
	})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, boom)

	_, err = r.Discover("test-backend", testCapabilities(), AllReconcileOptions())
	assert.ErrorIs(t, err, ErrPersistence)
	_, err = r.AddEndpoint("test-backend", EndpointRecord{URL: "/me"})
	assert.ErrorIs(t, err, ErrPersistence)
	_, err = r.SetVariable("test-backend", "job", "b")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, r.RemoveEndpoint("test-backend", "get"), ErrPersistence)

	after, err := r.Snapshot("test-backend")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.ErrorIs(t, r.DeleteBackend("test-backend"), ErrPersistence)
	_, err = r.Backend("test-backend")
	assert.NoError(t, err)

	_, err = r.CreateBackend(Backend{ID: "other", URL: "https://other.example.org"})
	assert.ErrorIs(t, err, ErrPersistence)
	_, err = r.Backend("other")
	assert.ErrorIs(t, err, ErrBackendNotFound)
}

func TestStoreMissingBackendOnDelete(t *testing.T) {
	store := newMemoryStore()
	r := newTestRegistry(t)
	r.SetStore(store)
	store.failWith(ErrBackendNotFound)

	require.NoError(t, r.DeleteBackend("test-backend"))
	_, err := r.Backend("test-backend")
	assert.ErrorIs(t, err, ErrBackendNotFound)
}
