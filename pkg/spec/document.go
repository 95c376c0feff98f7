package spec

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-openapi/jsonpointer"
	"github.com/pyneda/openeoct/pkg/http_utils"
	"gopkg.in/yaml.v3"
)

// Document is a loaded, read-only OpenAPI contract.
// It keeps the raw decoded tree, which is what schema resolution works on,
// and a typed kin-openapi view for structural queries.
type Document struct {
	raw    map[string]any
	typed  *openapi3.T
	source string
	base   *url.URL
}

// NewDocument wraps an in-memory tree. Handy for testing.
func NewDocument(raw map[string]any) (*Document, error) {
	return newDocument(raw, "", nil)
}

// newDocument builds the typed view without resolving references, those are
// resolved lazily by the validator.
func newDocument(raw map[string]any, source string, base *url.URL) (*Document, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	typed := &openapi3.T{}
	if err := typed.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &Document{raw: raw, typed: typed, source: source, base: base}, nil
}

// ParseDocument decodes JSON or YAML content into a Document.
func ParseDocument(data []byte) (*Document, error) {
	raw, err := DecodeTree(data)
	if err != nil {
		return nil, err
	}
	return NewDocument(raw)
}

// LoadFile loads a contract from a local JSON or YAML file.
func LoadFile(path string) (*Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSpecNotFound, absPath)
		}
		return nil, fmt.Errorf("reading api spec %s: %w", absPath, err)
	}
	raw, err := DecodeTree(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", absPath, err)
	}
	return newDocument(raw, absPath, &url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)})
}

// LoadURL fetches a contract published at a URL.
func LoadURL(ctx context.Context, client *http.Client, specURL string) (*Document, error) {
	u, err := url.Parse(specURL)
	if err != nil {
		return nil, fmt.Errorf("parsing spec url %s: %w", specURL, err)
	}
	data, err := http_utils.FetchDocument(ctx, client, u.String())
	if err != nil {
		return nil, err
	}
	raw, err := DecodeTree(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", specURL, err)
	}
	return newDocument(raw, specURL, u)
}

// Check resolves the references of a private copy of the typed view and runs
// the structural OpenAPI validation on it.
func (d *Document) Check(ctx context.Context) error {
	data, err := json.Marshal(d.raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	typed := &openapi3.T{}
	if err := typed.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = d.base != nil
	loader.Context = ctx
	if err := loader.ResolveRefsIn(typed, d.base); err != nil {
		return fmt.Errorf("%w: resolving references: %v", ErrInvalidDocument, err)
	}
	if err := typed.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// LoadSource loads from a file when one exists at source, otherwise treats source as a URL.
func LoadSource(ctx context.Context, client *http.Client, source string) (*Document, error) {
	if _, err := os.Stat(source); err == nil {
		return LoadFile(source)
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return LoadURL(ctx, client, source)
	}
	return nil, fmt.Errorf("%w: neither file nor url found: %s", ErrSpecNotFound, source)
}

// DecodeTree decodes JSON or YAML bytes into a document tree.
func DecodeTree(data []byte) (map[string]any, error) {
	var raw map[string]any
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	} else {
		var tree any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		raw, _ = stringKeys(tree).(map[string]any)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}
	return raw, nil
}

// stringKeys converts YAML maps with non-string keys, such as unquoted status codes.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	default:
		return v
	}
}

// Raw returns the decoded document tree. Callers must not modify it.
func (d *Document) Raw() map[string]any {
	return d.raw
}

// OpenAPI returns the typed kin-openapi view of the document.
func (d *Document) OpenAPI() *openapi3.T {
	return d.typed
}

// Source returns the file path or URL the document was loaded from.
func (d *Document) Source() (string, error) {
	if d.source == "" {
		return "", ErrSourceUnknown
	}
	return d.source, nil
}

// BaseURL is the location relative references to other documents are resolved against.
// Nil for in-memory documents.
func (d *Document) BaseURL() *url.URL {
	return d.base
}

// Title returns info.title, used in reports.
func (d *Document) Title() string {
	if d.typed != nil && d.typed.Info != nil {
		return d.typed.Info.Title
	}
	return ""
}

// Paths returns every path template of the contract, sorted.
func (d *Document) Paths() []string {
	paths, _ := d.raw["paths"].(map[string]any)
	out := make([]string, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasPath reports whether the contract defines the path template.
func (d *Document) HasPath(path string) bool {
	paths, _ := d.raw["paths"].(map[string]any)
	_, ok := paths[path]
	return ok
}

// PathSchema returns the path item (method -> operation) for a path template.
func (d *Document) PathSchema(path string) (map[string]any, error) {
	paths, _ := d.raw["paths"].(map[string]any)
	item, ok := paths[path].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return item, nil
}

// Operation returns the operation descriptor of path+method.
func (d *Document) Operation(path, method string) (map[string]any, error) {
	item, err := d.PathSchema(path)
	if err != nil {
		return nil, err
	}
	op, ok := item[strings.ToLower(method)].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrPathNotFound, strings.ToUpper(method), path)
	}
	return op, nil
}

// Pointer returns the value at a JSON pointer ("/components/schemas/foo") of the document.
func (d *Document) Pointer(ptr string) (any, error) {
	return Lookup(d.raw, ptr)
}

// Lookup evaluates a JSON pointer against any decoded tree.
func Lookup(tree any, ptr string) (any, error) {
	if ptr == "" {
		return tree, nil
	}
	p, err := jsonpointer.New(ptr)
	if err != nil {
		return nil, fmt.Errorf("invalid json pointer %q: %w", ptr, err)
	}
	v, _, err := p.Get(tree)
	if err != nil {
		return nil, fmt.Errorf("json pointer %q: %w", ptr, err)
	}
	return v, nil
}

// Fetch reads a document referenced relative to this one. Only file and http(s)
// locations are supported.
func (d *Document) Fetch(u *url.URL) ([]byte, error) {
	switch u.Scheme {
	case "file":
		return os.ReadFile(filepath.FromSlash(u.Path))
	case "http", "https":
		return http_utils.FetchDocument(context.Background(), nil, u.String())
	default:
		return nil, fmt.Errorf("unsupported reference location %s", u)
	}
}
