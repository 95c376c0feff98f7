package authscan

import (
	"testing"

	"github.com/pyneda/openeoct/internal/testfixtures"
	"github.com/pyneda/openeoct/pkg/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, document string) *spec.Document {
	t.Helper()
	doc, err := spec.NewDocument(testfixtures.Tree(t, document))
	require.NoError(t, err)
	return doc
}

func TestScan(t *testing.T) {
	doc := load(t, testfixtures.SecuredAPI)
	// /jobs/{job_id} is templated, / and /collections allow anonymous access,
	// /processes has no security, /files has no GET.
	assert.Equal(t, []string{"/jobs", "/me"}, Scan(doc))
}

func TestScanExcludesTemplates(t *testing.T) {
	doc := load(t, testfixtures.SecuredAPI)
	for _, path := range Scan(doc) {
		assert.NotContains(t, path, "{")
	}
	for _, path := range ScanWithGlobal(doc) {
		assert.NotContains(t, path, "{")
	}
}

func TestScanWithGlobal(t *testing.T) {
	doc := load(t, testfixtures.SecuredAPI)
	assert.Equal(t, []string{"/jobs", "/me", "/processes"}, ScanWithGlobal(doc))
}

func TestScanNoSecurity(t *testing.T) {
	doc := load(t, testfixtures.SimpleAPI)
	assert.Empty(t, Scan(doc))
	assert.Empty(t, ScanWithGlobal(doc))
}

func TestScanEmptySecurityList(t *testing.T) {
	doc := load(t, `{"openapi": "3.0.2", "info": {"title": "t", "version": "1"}, "paths": {
		"/a": {"get": {"security": [], "responses": {"200": {"description": "ok"}}}}
	}}`)
	assert.Equal(t, []string{"/a"}, Scan(doc))
}
