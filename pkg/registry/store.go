package registry

import "fmt"

// Store persists backends. It is called while the backend's lock is held and
// before a change becomes visible, so a failing call leaves the registry as
// it was.
type Store interface {
	SaveSnapshot(s Snapshot) error
	DeleteBackend(backendID string) error
}

// SetStore makes every later mutation write through s. It must be called
// before the registry is shared.
func (r *Registry) SetStore(s Store) {
	r.store = s
}

func (r *Registry) commit(t *table) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.SaveSnapshot(t.snapshot()); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersistence, t.backend.ID, err)
	}
	return nil
}

// mutate applies fn to a copy of the backend, writes the copy through the
// store and only then makes it current.
func (r *Registry) mutate(backendID string, fn func(t *table) error) error {
	return r.withTable(backendID, func(t *table) error {
		next := t.clone()
		if err := fn(next); err != nil {
			return err
		}
		if err := r.commit(next); err != nil {
			return err
		}
		t.adopt(next)
		return nil
	})
}

// register adds a new backend table, persisting it first.
func (r *Registry) register(t *table) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.backend.ID
	r.mu.Lock()
	if _, ok := r.tables[id]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBackendExists, id)
	}
	r.tables[id] = t
	r.mu.Unlock()

	if err := r.commit(t); err != nil {
		r.mu.Lock()
		delete(r.tables, id)
		r.mu.Unlock()
		return err
	}
	return nil
}
