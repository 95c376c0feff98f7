package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
	"github.com/pyneda/openeoct/pkg/schema"
	"github.com/pyneda/openeoct/pkg/spec"
)

// resourceScheme addresses fragments of loaded documents: openapi://d<doc>/<pointer>.
const resourceScheme = "openapi"

// Fetcher reads a document referenced from another one.
type Fetcher func(u *url.URL) ([]byte, error)

type document struct {
	location string
	base     *url.URL
	tree     any
	loaded   bool
}

// Resolver maps document-relative references to resource URLs and serves the
// translated fragments behind them. Document 0 is the contract itself, other
// documents are registered when first referenced and fetched when first read.
//
// A Resolver is not safe for concurrent use.
type Resolver struct {
	fetch Fetcher
	docs  []*document
	index map[string]int
	// cycle keeps the first reference cycle hit while serving a load, since the
	// schema compiler wraps loader errors.
	cycle *RefCycleError
}

// NewResolver binds a resolver to root. fetch may be nil when the contract has
// no references to other documents.
func NewResolver(root *spec.Document, fetch Fetcher) *Resolver {
	r := &Resolver{fetch: fetch, index: make(map[string]int)}
	rootDoc := &document{tree: root.Raw(), loaded: true, base: root.BaseURL()}
	if rootDoc.base != nil {
		rootDoc.location = rootDoc.base.String()
		r.index[rootDoc.location] = 0
	}
	r.docs = append(r.docs, rootDoc)
	return r
}

// URL returns the resource URL of pointer ptr inside document doc.
func (r *Resolver) URL(doc int, ptr string) string {
	var b strings.Builder
	b.WriteString(resourceScheme)
	b.WriteString("://d")
	b.WriteString(strconv.Itoa(doc))
	if ptr == "" {
		return b.String()
	}
	for _, token := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(token))
	}
	return b.String()
}

// parseURL is the inverse of URL.
func (r *Resolver) parseURL(s string) (int, string, error) {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme != resourceScheme || !strings.HasPrefix(u.Host, "d") {
		return 0, "", fmt.Errorf("unexpected schema resource %q", s)
	}
	doc, err := strconv.Atoi(u.Host[1:])
	if err != nil || doc < 0 || doc >= len(r.docs) {
		return 0, "", fmt.Errorf("unknown schema document in %q", s)
	}
	escaped := u.EscapedPath()
	if escaped == "" {
		return doc, "", nil
	}
	tokens := strings.Split(strings.TrimPrefix(escaped, "/"), "/")
	for i, t := range tokens {
		if tokens[i], err = url.PathUnescape(t); err != nil {
			return 0, "", fmt.Errorf("invalid schema resource %q: %w", s, err)
		}
	}
	return doc, "/" + strings.Join(tokens, "/"), nil
}

// describe renders a location for error messages.
func (r *Resolver) describe(doc int, ptr string) string {
	return r.docs[doc].location + "#" + ptr
}

// target resolves ref found inside document doc to a document and pointer.
func (r *Resolver) target(doc int, ref string) (int, string, error) {
	if strings.HasPrefix(ref, resourceScheme+"://") {
		return r.parseURL(ref)
	}
	location, fragment, _ := strings.Cut(ref, "#")
	ptr, err := url.PathUnescape(fragment)
	if err != nil {
		return 0, "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	if location == "" {
		return doc, ptr, nil
	}

	refURL, err := url.Parse(location)
	if err != nil {
		return 0, "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	base := r.docs[doc].base
	if base == nil && !refURL.IsAbs() {
		return 0, "", fmt.Errorf("cannot resolve relative reference %q of an in-memory document", ref)
	}
	abs := refURL
	if base != nil {
		abs = base.ResolveReference(refURL)
	}
	abs.Fragment = ""
	key := abs.String()
	if id, ok := r.index[key]; ok {
		return id, ptr, nil
	}
	r.docs = append(r.docs, &document{location: key, base: abs})
	id := len(r.docs) - 1
	r.index[key] = id
	return id, ptr, nil
}

// node returns the value at ptr of document doc, fetching the document on first use.
func (r *Resolver) node(doc int, ptr string) (any, error) {
	d := r.docs[doc]
	if !d.loaded {
		if r.fetch == nil {
			return nil, fmt.Errorf("no fetcher for referenced document %s", d.location)
		}
		data, err := r.fetch(d.base)
		if err != nil {
			return nil, fmt.Errorf("fetching referenced document %s: %w", d.location, err)
		}
		tree, err := spec.DecodeTree(data)
		if err != nil {
			return nil, fmt.Errorf("referenced document %s: %w", d.location, err)
		}
		d.tree, d.loaded = tree, true
	}
	if ptr == "" {
		return d.tree, nil
	}
	p, err := jsonpointer.New(ptr)
	if err != nil {
		return nil, fmt.Errorf("invalid json pointer %q: %w", ptr, err)
	}
	v, _, err := p.Get(d.tree)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.describe(doc, ptr), err)
	}
	return v, nil
}

// visit pushes here onto the chain of visited references.
func (r *Resolver) visit(visited *[]string, here string) error {
	for _, seen := range *visited {
		if seen == here {
			cycle := &RefCycleError{Chain: append(*visited, here)}
			if r.cycle == nil {
				r.cycle = cycle
			}
			return cycle
		}
	}
	*visited = append(*visited, here)
	return nil
}

// Follow returns the object at doc/ptr, chasing $ref aliases until it reaches
// an object without one. The returned document and pointer locate that object.
func (r *Resolver) Follow(doc int, ptr string) (int, string, map[string]any, error) {
	var visited []string
	for {
		here := r.describe(doc, ptr)
		if err := r.visit(&visited, here); err != nil {
			return 0, "", nil, err
		}

		v, err := r.node(doc, ptr)
		if err != nil {
			return 0, "", nil, err
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return 0, "", nil, fmt.Errorf("%s is not an object", here)
		}
		ref, ok := obj["$ref"].(string)
		if !ok {
			return doc, ptr, obj, nil
		}
		if doc, ptr, err = r.target(doc, ref); err != nil {
			return 0, "", nil, err
		}
	}
}

// Load serves the translated fragment at a resource URL. It is the schema
// compiler's loader.
func (r *Resolver) Load(s string) (io.ReadCloser, error) {
	doc, ptr, err := r.parseURL(s)
	if err != nil {
		return nil, err
	}
	doc, ptr, obj, err := r.resolveSchema(doc, ptr)
	if err != nil {
		return nil, err
	}
	rebased, err := r.rebase(doc, obj)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.describe(doc, ptr), err)
	}
	data, err := json.Marshal(rebased)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// resolveSchema chases alias chains. A fragment counts as an alias when it
// still carries $ref after translation: draft 4 ignores the siblings.
func (r *Resolver) resolveSchema(doc int, ptr string) (int, string, map[string]any, error) {
	var visited []string
	for {
		here := r.describe(doc, ptr)
		if err := r.visit(&visited, here); err != nil {
			return 0, "", nil, err
		}

		v, err := r.node(doc, ptr)
		if err != nil {
			return 0, "", nil, err
		}
		var translated map[string]any
		switch t := v.(type) {
		case map[string]any:
			translated = schema.Translate(t)
		case bool:
			// draft 4 has no boolean schemas
			if t {
				translated = map[string]any{}
			} else {
				translated = map[string]any{"not": map[string]any{}}
			}
		default:
			return 0, "", nil, fmt.Errorf("%s is not a schema", here)
		}
		ref, ok := translated["$ref"].(string)
		if !ok {
			return doc, ptr, translated, nil
		}
		if doc, ptr, err = r.target(doc, ref); err != nil {
			return 0, "", nil, err
		}
	}
}

// instanceKeywords hold instance data, not schemas.
var instanceKeywords = map[string]struct{}{
	"enum":    {},
	"default": {},
	"const":   {},
	"example": {},
}

// namedSchemas hold subschemas keyed by a user chosen name.
var namedSchemas = map[string]struct{}{
	"properties":        {},
	"patternProperties": {},
	"definitions":       {},
	"dependencies":      {},
}

// rebase rewrites every nested $ref of a fragment from document doc into an
// absolute resource URL, so the fragment no longer depends on where it is served.
// Maps are walked as schemas: keywords are only recognised at keyword level,
// never as property names.
func (r *Resolver) rebase(doc int, v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if _, skip := instanceKeywords[k]; skip {
				out[k] = val
				continue
			}
			if ref, ok := val.(string); ok && k == "$ref" {
				id, ptr, err := r.target(doc, ref)
				if err != nil {
					return nil, err
				}
				out[k] = r.URL(id, ptr)
				continue
			}
			if named, ok := val.(map[string]any); ok {
				if _, isNamed := namedSchemas[k]; isNamed {
					rebased, err := r.rebaseNamed(doc, named)
					if err != nil {
						return nil, err
					}
					out[k] = rebased
					continue
				}
			}
			rebased, err := r.rebase(doc, val)
			if err != nil {
				return nil, err
			}
			out[k] = rebased
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			rebased, err := r.rebase(doc, val)
			if err != nil {
				return nil, err
			}
			out[i] = rebased
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *Resolver) rebaseNamed(doc int, named map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(named))
	for name, sub := range named {
		rebased, err := r.rebase(doc, sub)
		if err != nil {
			return nil, err
		}
		out[name] = rebased
	}
	return out, nil
}
