// Package registry keeps backends with their endpoints and variables and
// reconciles them with what backends advertise.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pyneda/openeoct/lib"
	"github.com/pyneda/openeoct/pkg/capabilities"
)

// table holds one backend: id-indexed records plus the indices derived from
// them. Its mutex serializes every mutation of the backend.
type table struct {
	mu sync.Mutex

	backend   Backend
	endpoints map[uuid.UUID]EndpointRecord
	variables map[uuid.UUID]Variable
	// seq keeps insertion order for listings.
	seq     map[uuid.UUID]uint64
	nextSeq uint64

	byCoord map[coordKey]uuid.UUID
	byID    map[string]uuid.UUID
	byVar   map[string]uuid.UUID
}

func newTable(b Backend) *table {
	return &table{
		backend:   b,
		endpoints: make(map[uuid.UUID]EndpointRecord),
		variables: make(map[uuid.UUID]Variable),
		seq:       make(map[uuid.UUID]uint64),
		byCoord:   make(map[coordKey]uuid.UUID),
		byID:      make(map[string]uuid.UUID),
		byVar:     make(map[string]uuid.UUID),
	}
}

// clone copies the table so a multi-step change can be checked before it is applied.
func (t *table) clone() *table {
	c := newTable(t.backend)
	for k, v := range t.endpoints {
		c.endpoints[k] = v
	}
	for k, v := range t.variables {
		c.variables[k] = v
	}
	for k, v := range t.seq {
		c.seq[k] = v
	}
	c.nextSeq = t.nextSeq
	for k, v := range t.byCoord {
		c.byCoord[k] = v
	}
	for k, v := range t.byID {
		c.byID[k] = v
	}
	for k, v := range t.byVar {
		c.byVar[k] = v
	}
	return c
}

// adopt replaces the content of t with the content of c.
func (t *table) adopt(c *table) {
	t.backend = c.backend
	t.endpoints, t.variables, t.seq, t.nextSeq = c.endpoints, c.variables, c.seq, c.nextSeq
	t.byCoord, t.byID, t.byVar = c.byCoord, c.byID, c.byVar
}

func (t *table) insertEndpoint(rec EndpointRecord) error {
	if other, ok := t.byCoord[rec.coord()]; ok {
		return &DuplicateEndpointError{
			BackendID:     t.backend.ID,
			URL:           rec.URL,
			Method:        rec.Method,
			ExistingID:    t.endpoints[other].ID,
			ConflictingID: rec.ID,
		}
	}
	if _, ok := t.byID[rec.ID]; ok {
		return fmt.Errorf("%w: backend %s already has endpoint %q", ErrAmbiguousIdentifier, t.backend.ID, rec.ID)
	}
	if rec.StorageID == uuid.Nil {
		rec.StorageID = uuid.New()
	}
	rec.BackendID = t.backend.ID
	t.endpoints[rec.StorageID] = rec
	t.seq[rec.StorageID] = t.nextSeq
	t.nextSeq++
	t.byCoord[rec.coord()] = rec.StorageID
	t.byID[rec.ID] = rec.StorageID
	return nil
}

// replaceEndpoint stores rec under its existing StorageID, reindexing when
// its url, method or id changed.
func (t *table) replaceEndpoint(rec EndpointRecord) error {
	old, ok := t.endpoints[rec.StorageID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEndpointNotFound, rec.StorageID)
	}
	if other, ok := t.byCoord[rec.coord()]; ok && other != rec.StorageID {
		return &DuplicateEndpointError{
			BackendID:     t.backend.ID,
			URL:           rec.URL,
			Method:        rec.Method,
			ExistingID:    t.endpoints[other].ID,
			ConflictingID: rec.ID,
		}
	}
	if other, ok := t.byID[rec.ID]; ok && other != rec.StorageID {
		return fmt.Errorf("%w: backend %s already has endpoint %q", ErrAmbiguousIdentifier, t.backend.ID, rec.ID)
	}
	delete(t.byCoord, old.coord())
	delete(t.byID, old.ID)
	rec.BackendID = t.backend.ID
	t.endpoints[rec.StorageID] = rec
	t.byCoord[rec.coord()] = rec.StorageID
	t.byID[rec.ID] = rec.StorageID
	return nil
}

func (t *table) removeEndpoint(storageID uuid.UUID) {
	rec, ok := t.endpoints[storageID]
	if !ok {
		return
	}
	delete(t.byCoord, rec.coord())
	delete(t.byID, rec.ID)
	delete(t.seq, storageID)
	delete(t.endpoints, storageID)
}

func (t *table) setVariable(name, value string) Variable {
	if id, ok := t.byVar[name]; ok {
		v := t.variables[id]
		v.Value = value
		t.variables[id] = v
		return v
	}
	v := Variable{StorageID: uuid.New(), BackendID: t.backend.ID, Name: name, Value: value}
	t.variables[v.StorageID] = v
	t.byVar[name] = v.StorageID
	return v
}

func (t *table) snapshot() Snapshot {
	return Snapshot{Backend: t.backend, Endpoints: t.listEndpoints(), Variables: t.listVariables()}
}

func (t *table) listEndpoints() []EndpointRecord {
	out := make([]EndpointRecord, 0, len(t.endpoints))
	for _, rec := range t.endpoints {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return t.seq[out[i].StorageID] < t.seq[out[j].StorageID] })
	return out
}

func (t *table) listVariables() []Variable {
	out := make([]Variable, 0, len(t.variables))
	for _, v := range t.variables {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sluggedName(name string) string {
	return lib.Slugify(name)
}

// Registry is an in-memory store of backends. Operations on one backend are
// serialized, operations on different backends run independently.
type Registry struct {
	mu       sync.RWMutex
	tables   map[string]*table
	validate *validator.Validate
	store    Store
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		tables:   make(map[string]*table),
		validate: validator.New(),
	}
}

func (r *Registry) check(v any) error {
	if err := r.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %s", ErrInvalidRecord, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

func (r *Registry) table(backendID string) (*table, error) {
	r.mu.RLock()
	t, ok := r.tables[backendID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, backendID)
	}
	return t, nil
}

// withTable runs fn holding the backend's lock. The table is looked up again
// under the lock so a concurrent delete is observed.
func (r *Registry) withTable(backendID string, fn func(t *table) error) error {
	t, err := r.table(backendID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r.mu.RLock()
	current := r.tables[backendID]
	r.mu.RUnlock()
	if current != t {
		return fmt.Errorf("%w: %s", ErrBackendNotFound, backendID)
	}
	return fn(t)
}

// CreateBackend registers a backend. An empty ID is derived from the name.
func (r *Registry) CreateBackend(b Backend) (Backend, error) {
	if b.ID == "" {
		b.ID = sluggedName(b.Name)
	}
	if err := r.check(b); err != nil {
		return Backend{}, err
	}
	if err := r.register(newTable(b)); err != nil {
		return Backend{}, err
	}
	return b, nil
}

// UpdateBackend replaces the scalar fields of an existing backend.
func (r *Registry) UpdateBackend(b Backend) error {
	if err := r.check(b); err != nil {
		return err
	}
	return r.mutate(b.ID, func(t *table) error {
		t.backend = b
		return nil
	})
}

// DeleteBackend removes a backend with its endpoints and variables.
func (r *Registry) DeleteBackend(backendID string) error {
	t, err := r.table(backendID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r.mu.RLock()
	current := r.tables[backendID]
	r.mu.RUnlock()
	if current != t {
		return fmt.Errorf("%w: %s", ErrBackendNotFound, backendID)
	}
	if r.store != nil {
		if err := r.store.DeleteBackend(backendID); err != nil && !errors.Is(err, ErrBackendNotFound) {
			return fmt.Errorf("%w: %s: %w", ErrPersistence, backendID, err)
		}
	}
	r.mu.Lock()
	delete(r.tables, backendID)
	r.mu.Unlock()
	return nil
}

// Backend returns one backend.
func (r *Registry) Backend(backendID string) (Backend, error) {
	var b Backend
	err := r.withTable(backendID, func(t *table) error {
		b = t.backend
		return nil
	})
	return b, err
}

// Backends lists every backend ordered by id.
func (r *Registry) Backends() []Backend {
	r.mu.RLock()
	tables := make([]*table, 0, len(r.tables))
	for _, t := range r.tables {
		tables = append(tables, t)
	}
	r.mu.RUnlock()

	out := make([]Backend, 0, len(tables))
	for _, t := range tables {
		t.mu.Lock()
		out = append(out, t.backend)
		t.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Endpoints lists the endpoints of a backend in insertion order.
func (r *Registry) Endpoints(backendID string) ([]EndpointRecord, error) {
	var out []EndpointRecord
	err := r.withTable(backendID, func(t *table) error {
		out = t.listEndpoints()
		return nil
	})
	return out, err
}

// Endpoint returns the endpoint with the given registry key.
func (r *Registry) Endpoint(backendID, id string) (EndpointRecord, error) {
	var rec EndpointRecord
	err := r.withTable(backendID, func(t *table) error {
		sid, ok := t.byID[id]
		if !ok {
			return fmt.Errorf("%w: %s/%s", ErrEndpointNotFound, backendID, id)
		}
		rec = t.endpoints[sid]
		return nil
	})
	return rec, err
}

// AddEndpoint inserts a new endpoint. An empty ID is derived from method and url.
func (r *Registry) AddEndpoint(backendID string, rec EndpointRecord) (EndpointRecord, error) {
	rec.normalize()
	if rec.ID == "" {
		rec.ID = DeriveID(rec.Method, rec.URL)
	}
	if err := r.check(rec); err != nil {
		return EndpointRecord{}, err
	}
	err := r.mutate(backendID, func(t *table) error {
		rec.StorageID = uuid.Nil
		if err := t.insertEndpoint(rec); err != nil {
			return err
		}
		rec = t.endpoints[t.byID[rec.ID]]
		return nil
	})
	if err != nil {
		return EndpointRecord{}, err
	}
	return rec, nil
}

// UpdateEndpoint replaces the endpoint registered under id, keeping its StorageID.
func (r *Registry) UpdateEndpoint(backendID, id string, rec EndpointRecord) (EndpointRecord, error) {
	rec.normalize()
	if rec.ID == "" {
		rec.ID = id
	}
	if err := r.check(rec); err != nil {
		return EndpointRecord{}, err
	}
	err := r.mutate(backendID, func(t *table) error {
		sid, ok := t.byID[id]
		if !ok {
			return fmt.Errorf("%w: %s/%s", ErrEndpointNotFound, backendID, id)
		}
		rec.StorageID = sid
		if err := t.replaceEndpoint(rec); err != nil {
			return err
		}
		rec = t.endpoints[sid]
		return nil
	})
	if err != nil {
		return EndpointRecord{}, err
	}
	return rec, nil
}

// RemoveEndpoint deletes the endpoint registered under id.
func (r *Registry) RemoveEndpoint(backendID, id string) error {
	return r.mutate(backendID, func(t *table) error {
		sid, ok := t.byID[id]
		if !ok {
			return fmt.Errorf("%w: %s/%s", ErrEndpointNotFound, backendID, id)
		}
		t.removeEndpoint(sid)
		return nil
	})
}

// Variables lists the variables of a backend ordered by name.
func (r *Registry) Variables(backendID string) ([]Variable, error) {
	var out []Variable
	err := r.withTable(backendID, func(t *table) error {
		out = t.listVariables()
		return nil
	})
	return out, err
}

// SetVariable creates or updates a variable.
func (r *Registry) SetVariable(backendID, name, value string) (Variable, error) {
	if name == "" {
		return Variable{}, fmt.Errorf("%w: variable name is required", ErrInvalidRecord)
	}
	var v Variable
	err := r.mutate(backendID, func(t *table) error {
		v = t.setVariable(name, value)
		return nil
	})
	return v, err
}

// Discover adds the endpoints advertised in caps that the backend does not
// have yet and returns them in discovery order.
func (r *Registry) Discover(backendID string, caps *capabilities.Document, opts ReconcileOptions) ([]EndpointRecord, error) {
	var added []EndpointRecord
	err := r.mutate(backendID, func(t *table) error {
		added = Reconcile(caps, t.listEndpoints(), opts)
		for i := range added {
			if err := t.insertEndpoint(added[i]); err != nil {
				return err
			}
			added[i].BackendID = backendID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Snapshot is a consistent copy of one backend.
type Snapshot struct {
	Backend   Backend
	Endpoints []EndpointRecord
	Variables []Variable
}

// Snapshot copies a backend with its endpoints and variables.
func (r *Registry) Snapshot(backendID string) (Snapshot, error) {
	var s Snapshot
	err := r.withTable(backendID, func(t *table) error {
		s = t.snapshot()
		return nil
	})
	return s, err
}

// Restore loads a snapshot, replacing any backend with the same id. Storage
// identities are kept.
func (r *Registry) Restore(s Snapshot) error {
	if err := r.check(s.Backend); err != nil {
		return err
	}
	t := newTable(s.Backend)
	for _, rec := range s.Endpoints {
		rec.normalize()
		if err := r.check(rec); err != nil {
			return err
		}
		if err := t.insertEndpoint(rec); err != nil {
			return err
		}
	}
	for _, v := range s.Variables {
		if v.StorageID == uuid.Nil {
			v.StorageID = uuid.New()
		}
		if _, ok := t.byVar[v.Name]; ok {
			return fmt.Errorf("%w: variable %q listed twice", ErrAmbiguousIdentifier, v.Name)
		}
		v.BackendID = s.Backend.ID
		t.variables[v.StorageID] = v
		t.byVar[v.Name] = v.StorageID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[s.Backend.ID] = t
	return nil
}
