package validation

import (
	"errors"
	"io"
	"net/url"
	"testing"

	"github.com/pyneda/openeoct/internal/testfixtures"
	"github.com/pyneda/openeoct/pkg/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverURLRoundTrip(t *testing.T) {
	doc, err := spec.NewDocument(testfixtures.Tree(t, testfixtures.SimpleAPI))
	require.NoError(t, err)
	r := NewResolver(doc, nil)

	pointers := []string{
		"",
		"/components/schemas/reffed",
		"/paths/~1jobs~1{job_id}/get/responses/200/content/application~1json/schema",
		"/components/schemas/with space",
		"/components/schemas/tilde~0name",
	}
	for _, ptr := range pointers {
		id, got, err := r.parseURL(r.URL(0, ptr))
		require.NoError(t, err, ptr)
		assert.Equal(t, 0, id)
		assert.Equal(t, ptr, got)
	}

	_, _, err = r.parseURL("https://example.org/schema.json")
	assert.Error(t, err)
	_, _, err = r.parseURL("openapi://d7/x")
	assert.Error(t, err)
}

func TestResolverLoadTranslatesAndRebases(t *testing.T) {
	doc, err := spec.NewDocument(testfixtures.Tree(t, testfixtures.SimpleAPI))
	require.NoError(t, err)
	r := NewResolver(doc, nil)

	rc, err := r.Load(r.URL(0, "/components/schemas/reffed"))
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "object",
		"required": ["bar"],
		"properties": {
			"bar": {"$ref": "openapi://d0/components/schemas/bar"},
			"foo": {"type": "integer"},
			"baz": {"$ref": "openapi://d0/components/schemas/nullabar"}
		}
	}`, string(data))

	rc, err = r.Load(r.URL(0, "/components/schemas/nullabar"))
	require.NoError(t, err)
	data, err = io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": ["integer", "null"]}`, string(data))
}

const externalAPI = `{
  "openapi": "3.0.2",
  "info": {"title": "External", "version": "1.0.0"},
  "paths": {
    "/things": {"get": {"responses": {"200": {"description": "ok",
      "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "defs/common.json#/Thing"}}}}}}}}
  }
}`

const commonDefs = `{
  "Thing": {"type": "object", "required": ["name"], "properties": {
    "name": {"$ref": "#/Name"},
    "owner": {"$ref": "../owner.yaml#/Owner"}
  }},
  "Name": {"type": "string", "nullable": true}
}`

const ownerDefs = `
Owner:
  type: object
  required: [id]
  properties:
    id:
      type: integer
`

func TestCrossDocumentRefs(t *testing.T) {
	dir := t.TempDir()
	path := testfixtures.WriteFile(t, dir, "api.json", externalAPI)
	testfixtures.WriteFile(t, dir, "defs/common.json", commonDefs)
	testfixtures.WriteFile(t, dir, "owner.yaml", ownerDefs)

	doc, err := spec.LoadFile(path)
	require.NoError(t, err)
	v := New(doc)

	assert.NoError(t, v.ValidateJSON("/things", "get", 200, jsonType, []byte(`[{"name": "a"}, {"name": null}, {"name": "b", "owner": {"id": 1}}]`)))
	assert.ErrorIs(t, v.ValidateJSON("/things", "get", 200, jsonType, []byte(`[{"name": 1}]`)), ErrValidationFailed)
	assert.ErrorIs(t, v.ValidateJSON("/things", "get", 200, jsonType, []byte(`[{"name": "a", "owner": {}}]`)), ErrValidationFailed)
}

func TestCustomFetcher(t *testing.T) {
	calls := 0
	fetch := func(u *url.URL) ([]byte, error) {
		calls++
		if u.String() != "https://example.org/defs.json" {
			return nil, errors.New("unexpected fetch of " + u.String())
		}
		return []byte(`{"Id": {"type": "string", "minLength": 3}}`), nil
	}
	v := newValidator(t, `{"openapi": "3.0.2", "info": {"title": "t", "version": "1"}, "paths": {
		"/a": {"get": {"responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "https://example.org/defs.json#/Id"}}}}}}},
		"/b": {"get": {"responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "https://example.org/defs.json#/Id"}}}}}}}}
	}}`, WithFetcher(fetch))

	assert.NoError(t, v.ValidateJSON("/a", "get", 200, jsonType, []byte(`"abcd"`)))
	assert.ErrorIs(t, v.ValidateJSON("/a", "get", 200, jsonType, []byte(`"ab"`)), ErrValidationFailed)
	assert.NoError(t, v.ValidateJSON("/b", "get", 200, jsonType, []byte(`["abc"]`)))
	assert.Equal(t, 1, calls)
}

func TestRelativeRefWithoutBase(t *testing.T) {
	v := newValidator(t, externalAPI)
	err := v.ValidateJSON("/things", "get", 200, jsonType, []byte(`[]`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidationFailed)
	assert.NotErrorIs(t, err, ErrCoordinateMissing)
}

func TestFollowCycle(t *testing.T) {
	doc, err := spec.NewDocument(map[string]any{
		"openapi": "3.0.2",
		"info":    map[string]any{"title": "t", "version": "1"},
		"paths":   map[string]any{},
		"components": map[string]any{"responses": map[string]any{
			"a": map[string]any{"$ref": "#/components/responses/b"},
			"b": map[string]any{"$ref": "#/components/responses/a"},
		}},
	})
	require.NoError(t, err)
	r := NewResolver(doc, nil)
	_, _, _, err = r.Follow(0, "/components/responses/a")
	var cycle *RefCycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"#/components/responses/a", "#/components/responses/b", "#/components/responses/a"}, cycle.Chain)
}
