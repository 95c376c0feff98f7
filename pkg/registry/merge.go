package registry

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// MergeFragment layers f onto a backend. Present scalar fields overwrite,
// endpoints and variables merge per key: existing entries are updated in
// place and keep their StorageID, new ones are appended, none are removed.
// An endpoint entry matches a stored one by id, or else by url and method,
// in which case the stored id is kept.
// Either the whole fragment applies or nothing changes.
func (r *Registry) MergeFragment(backendID string, f *Fragment) error {
	if f == nil {
		return nil
	}
	return r.mutate(backendID, func(t *table) error {
		return r.merge(t, f)
	})
}

// MergeFragments applies fragments in order, later ones win. Each fragment
// is applied atomically; the first failure stops the sequence.
func (r *Registry) MergeFragments(backendID string, fragments ...*Fragment) error {
	for i, f := range fragments {
		if err := r.MergeFragment(backendID, f); err != nil {
			return fmt.Errorf("fragment %d: %w", i+1, err)
		}
	}
	return nil
}

// ImportBackend creates a backend from a fragment.
func (r *Registry) ImportBackend(b Backend, f *Fragment) (Backend, error) {
	if b.ID == "" {
		b.ID = sluggedName(b.Name)
	}
	t := newTable(b)
	if f != nil {
		if err := r.merge(t, f); err != nil {
			return Backend{}, err
		}
	} else if err := r.check(t.backend); err != nil {
		return Backend{}, err
	}

	if err := r.register(t); err != nil {
		return Backend{}, err
	}
	return t.backend, nil
}

type mergeStep struct {
	rec      EndpointRecord
	existing bool
}

func (r *Registry) merge(t *table, f *Fragment) error {
	f.apply(&t.backend)
	if err := r.check(t.backend); err != nil {
		return err
	}

	keys := make([]string, 0, len(f.Endpoints))
	for k := range f.Endpoints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	claimed := make(map[string]string, len(keys))
	records := make(map[uuid.UUID]string, len(keys))
	steps := make([]mergeStep, 0, len(keys))
	for _, key := range keys {
		ef := f.Endpoints[key]
		id := ef.identity(key)
		if other, ok := claimed[id]; ok {
			return fmt.Errorf("%w: entries %q and %q both name endpoint %q", ErrAmbiguousIdentifier, other, key, id)
		}
		claimed[id] = key

		var step mergeStep
		sid, ok := t.byID[id]
		if !ok {
			// an unknown id still names a stored endpoint through its url and method
			if coord, hasURL := ef.coord(); hasURL {
				sid, ok = t.byCoord[coord]
			}
		}
		if ok {
			if other, taken := records[sid]; taken {
				return fmt.Errorf("%w: entries %q and %q both name endpoint %q", ErrAmbiguousIdentifier, other, key, t.endpoints[sid].ID)
			}
			records[sid] = key
			step = mergeStep{rec: t.endpoints[sid], existing: true}
		} else {
			step = mergeStep{rec: EndpointRecord{StorageID: uuid.New(), BackendID: t.backend.ID, ID: id}}
		}
		ef.apply(&step.rec)
		step.rec.normalize()
		if err := r.check(step.rec); err != nil {
			return fmt.Errorf("endpoint %q: %w", key, err)
		}
		steps = append(steps, step)
	}

	// Unindex every touched record first so that entries swapping urls
	// within one fragment do not collide with their own old values.
	seqs := make(map[uuid.UUID]uint64)
	for _, s := range steps {
		if s.existing {
			seqs[s.rec.StorageID] = t.seq[s.rec.StorageID]
			t.removeEndpoint(s.rec.StorageID)
		}
	}
	for _, s := range steps {
		if err := t.insertEndpoint(s.rec); err != nil {
			return err
		}
		if seq, ok := seqs[s.rec.StorageID]; ok {
			t.seq[s.rec.StorageID] = seq
		}
	}

	names := make([]string, 0, len(f.Variables))
	for name := range f.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%w: variable name is required", ErrInvalidRecord)
		}
		t.setVariable(name, f.Variables[name])
	}
	return nil
}
