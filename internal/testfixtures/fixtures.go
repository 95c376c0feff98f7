// Package testfixtures holds small contract documents shared by package tests.
package testfixtures

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// SimpleAPI is a minimal contract exercising required properties, local refs
// and nullable values.
const SimpleAPI = `{
  "openapi": "3.0.2",
  "info": {"title": "Simple API", "version": "1.2.3"},
  "paths": {
    "/helloworld": {"get": {"responses": {"200": {
      "description": "Computer says hello world",
      "content": {"application/json": {"schema": {
        "type": "object",
        "required": ["greeting"],
        "properties": {
          "greeting": {"type": "string"},
          "subject": {"type": "string"}
        }
      }}}
    }}}},
    "/with_ref": {"get": {"responses": {"200": {
      "description": "schema with refs",
      "content": {"application/json": {"schema": {
        "type": "array",
        "items": {"$ref": "#/components/schemas/reffed"}
      }}}
    }}}},
    "/with_nullable": {"get": {"responses": {"200": {
      "description": "schema with nullable values",
      "content": {"application/json": {"schema": {
        "type": "array",
        "items": {"type": "string", "nullable": true}
      }}}
    }}}}
  },
  "components": {
    "schemas": {
      "reffed": {
        "type": "object",
        "required": ["bar"],
        "properties": {
          "bar": {"$ref": "#/components/schemas/bar"},
          "foo": {"type": "integer"},
          "baz": {"$ref": "#/components/schemas/nullabar"}
        }
      },
      "bar": {"type": "string"},
      "nullabar": {"type": "integer", "nullable": true}
    }
  }
}`

// SecuredAPI mixes public, protected, optionally protected and templated paths.
const SecuredAPI = `{
  "openapi": "3.0.2",
  "info": {"title": "Secured API", "version": "1.0.0"},
  "security": [{"Bearer": []}],
  "paths": {
    "/": {"get": {"security": [{}], "responses": {"200": {"description": "ok"}}}},
    "/me": {"get": {"security": [{"Bearer": []}], "responses": {"200": {"description": "ok"}}}},
    "/jobs": {
      "get": {"security": [{"Bearer": []}], "responses": {"200": {"description": "ok"}}},
      "post": {"security": [{"Bearer": []}], "responses": {"201": {"description": "created"}}}
    },
    "/jobs/{job_id}": {"get": {"security": [{"Bearer": []}], "responses": {"200": {"description": "ok"}}}},
    "/collections": {"get": {"security": [{}, {"Bearer": []}], "responses": {"200": {"description": "ok"}}}},
    "/processes": {"get": {"responses": {"200": {"description": "ok"}}}},
    "/files": {"post": {"security": [{"Bearer": []}], "responses": {"200": {"description": "ok"}}}}
  },
  "components": {
    "securitySchemes": {"Bearer": {"type": "http", "scheme": "bearer"}}
  }
}`

// Tree decodes one of the fixtures into a fresh tree.
func Tree(t testing.TB, doc string) map[string]any {
	t.Helper()
	var raw map[string]any
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return raw
}

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}
