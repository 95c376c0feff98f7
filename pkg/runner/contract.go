package runner

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pyneda/openeoct/lib"
	"github.com/pyneda/openeoct/pkg/contract"
	"github.com/pyneda/openeoct/pkg/registry"
	"github.com/pyneda/openeoct/pkg/spec"
)

// LoadContract returns the contract a backend is validated against: its
// explicit openapi source when set, otherwise the store entry for its
// explicit or guessed API version.
func LoadContract(ctx context.Context, store *spec.Store, client *http.Client, b registry.Backend) (*spec.Document, error) {
	if source := lib.ExpandValue(b.OpenAPI); source != "" {
		return spec.LoadSource(ctx, client, source)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: backend %s has no openapi source", spec.ErrSpecNotFound, b.ID)
	}
	version, err := contract.ResolveVersion(b.Version, lib.ExpandValue(b.URL))
	if err != nil {
		return nil, err
	}
	return store.Load(version)
}
