package runner

import (
	"context"
	"testing"

	"github.com/pyneda/openeoct/internal/testfixtures"
	"github.com/pyneda/openeoct/pkg/contract"
	"github.com/pyneda/openeoct/pkg/registry"
	"github.com/pyneda/openeoct/pkg/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadContract(t *testing.T) {
	dir := t.TempDir()
	testfixtures.WriteFile(t, dir, "openeo-api-1.2.3.json", testfixtures.SimpleAPI)
	explicit := testfixtures.WriteFile(t, dir, "custom.json", catalogAPI)
	store := spec.NewStore(dir)
	ctx := context.Background()

	doc, err := LoadContract(ctx, store, nil, registry.Backend{ID: "a", URL: "https://example.org/openeo/1.2.3/"})
	require.NoError(t, err)
	assert.Equal(t, "Simple API", doc.Title())

	doc, err = LoadContract(ctx, store, nil, registry.Backend{ID: "b", URL: "https://example.org/", Version: "1.2.3"})
	require.NoError(t, err)
	assert.Equal(t, "Simple API", doc.Title())

	doc, err = LoadContract(ctx, nil, nil, registry.Backend{ID: "c", URL: "https://example.org/", OpenAPI: explicit})
	require.NoError(t, err)
	assert.Equal(t, "Catalog", doc.Title())

	_, err = LoadContract(ctx, store, nil, registry.Backend{ID: "d", URL: "https://example.org/"})
	assert.ErrorIs(t, err, contract.ErrInvalidVersionFormat)

	_, err = LoadContract(ctx, store, nil, registry.Backend{ID: "e", URL: "https://example.org/", Version: "9.9.9"})
	assert.ErrorIs(t, err, spec.ErrSpecNotFound)
}
