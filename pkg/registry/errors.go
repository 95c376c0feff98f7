package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendNotFound is returned for unknown backend ids.
	ErrBackendNotFound = errors.New("backend not found")
	// ErrBackendExists is returned when creating a backend whose id is taken.
	ErrBackendExists = errors.New("backend already exists")
	// ErrEndpointNotFound is returned for unknown endpoint ids.
	ErrEndpointNotFound = errors.New("endpoint not found")
	// ErrAmbiguousIdentifier means two entries claim the same identity and
	// no precedence between them is defined.
	ErrAmbiguousIdentifier = errors.New("ambiguous endpoint identifier")
	// ErrInvalidRecord wraps field validation failures.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrPersistence wraps store failures, the change was not applied.
	ErrPersistence = errors.New("persisting backend failed")
)

// DuplicateEndpointError reports two endpoints of one backend sharing url and method.
type DuplicateEndpointError struct {
	BackendID string
	URL       string
	Method    string
	// IDs of the endpoints in conflict.
	ExistingID    string
	ConflictingID string
}

func (e *DuplicateEndpointError) Error() string {
	return fmt.Sprintf("backend %s: endpoints %q and %q both map to %s %s", e.BackendID, e.ExistingID, e.ConflictingID, e.Method, e.URL)
}
