// Package validation checks response bodies against the schemas of a contract.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"
	"sync"

	"github.com/go-openapi/jsonpointer"
	"github.com/pyneda/openeoct/pkg/spec"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator validates bodies against one contract document.
// Compiled schemas are cached per coordinate, the outcome of a call never
// depends on earlier calls. It is safe for concurrent use.
type Validator struct {
	doc          *spec.Document
	assertFormat bool

	mu       sync.Mutex
	resolver *Resolver
	compiled map[string]*jsonschema.Schema
}

// Option customizes a Validator.
type Option func(*validatorOptions)

type validatorOptions struct {
	fetch        Fetcher
	assertFormat bool
}

// WithFetcher overrides how documents referenced from the contract are read.
func WithFetcher(f Fetcher) Option {
	return func(o *validatorOptions) { o.fetch = f }
}

// WithFormatAssertion makes the format keyword fail validation. Off by default,
// formats are annotations only.
func WithFormatAssertion(assert bool) Option {
	return func(o *validatorOptions) { o.assertFormat = assert }
}

// New creates a validator bound to doc.
func New(doc *spec.Document, opts ...Option) *Validator {
	o := validatorOptions{fetch: doc.Fetch}
	for _, opt := range opts {
		opt(&o)
	}
	return &Validator{
		doc:          doc,
		assertFormat: o.assertFormat,
		resolver:     NewResolver(doc, o.fetch),
		compiled:     make(map[string]*jsonschema.Schema),
	}
}

// Document returns the contract the validator is bound to.
func (v *Validator) Document() *spec.Document {
	return v.doc
}

// Validate checks an already decoded body against the schema at
// responses[status].content[mediaType] of path+method.
func (v *Validator) Validate(path, method string, status int, mediaType string, body any) error {
	coord := Coordinate{Path: path, Method: strings.ToUpper(method), Status: strconv.Itoa(status), MediaType: mediaType}
	sch, err := v.schemaFor(coord, status)
	if err != nil {
		return err
	}
	if err := sch.Validate(body); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &ValidationFailedError{Coordinate: coord, Details: flatten(verr)}
		}
		return fmt.Errorf("validating %s: %w", coord, err)
	}
	return nil
}

// ValidateJSON decodes data, keeping numbers exact, and validates it.
func (v *Validator) ValidateJSON(path, method string, status int, mediaType string, data []byte) error {
	body, err := decodeJSON(data)
	if err != nil {
		coord := Coordinate{Path: path, Method: strings.ToUpper(method), Status: strconv.Itoa(status), MediaType: mediaType}
		// Missing coordinates win over unparsable bodies.
		if _, lerr := v.schemaFor(coord, status); lerr != nil {
			return lerr
		}
		return &ValidationFailedError{
			Coordinate: coord,
			Details:    []Detail{{Message: fmt.Sprintf("body is not valid JSON: %v", err)}},
		}
	}
	return v.Validate(path, method, status, mediaType, body)
}

// decodeJSON decodes a single JSON value with numbers kept as json.Number.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after the JSON value")
	}
	return body, nil
}

// HasCoordinate reports whether the contract defines a schema at the coordinate.
func (v *Validator) HasCoordinate(path, method string, status int, mediaType string) bool {
	coord := Coordinate{Path: path, Method: strings.ToUpper(method), Status: strconv.Itoa(status), MediaType: mediaType}
	v.mu.Lock()
	defer v.mu.Unlock()
	_, err := v.locate(coord, status)
	return err == nil
}

func (v *Validator) schemaFor(coord Coordinate, status int) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	resource, err := v.locate(coord, status)
	if err != nil {
		return nil, err
	}
	if sch, ok := v.compiled[resource]; ok {
		return sch, nil
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft4
	c.LoadURL = v.resolver.Load
	if !v.assertFormat {
		c.Formats = make(map[string]func(any) bool, len(jsonschema.Formats))
		for name := range jsonschema.Formats {
			c.Formats[name] = func(any) bool { return true }
		}
	}

	v.resolver.cycle = nil
	sch, err := c.Compile(resource)
	if err != nil {
		if v.resolver.cycle != nil {
			return nil, fmt.Errorf("compiling schema for %s: %w", coord, v.resolver.cycle)
		}
		return nil, fmt.Errorf("compiling schema for %s: %w", coord, err)
	}
	v.compiled[resource] = sch
	return sch, nil
}

// locate walks the coordinate and returns the resource URL of its schema.
// Path items, operations and responses given by $ref are followed.
func (v *Validator) locate(coord Coordinate, status int) (string, error) {
	missing := func(segment string) error {
		return &CoordinateMissingError{Coordinate: coord, Segment: segment}
	}
	if !v.doc.HasPath(coord.Path) {
		return "", missing("path")
	}
	r := v.resolver

	doc, ptr, item, err := r.Follow(0, "/paths/"+jsonpointer.Escape(coord.Path))
	if err != nil {
		return "", err
	}
	method := strings.ToLower(coord.Method)
	if _, ok := item[method]; !ok {
		return "", missing("method")
	}
	doc, ptr, op, err := r.Follow(doc, ptr+"/"+method)
	if err != nil {
		return "", err
	}

	responses, _ := op["responses"].(map[string]any)
	key, ok := statusKey(responses, status)
	if !ok {
		return "", missing("status")
	}
	doc, ptr, resp, err := r.Follow(doc, ptr+"/responses/"+jsonpointer.Escape(key))
	if err != nil {
		return "", err
	}

	content, _ := resp["content"].(map[string]any)
	media, ok := mediaKey(content, coord.MediaType)
	if !ok {
		return "", missing("media type")
	}
	entry, _ := content[media].(map[string]any)
	if _, ok := entry["schema"]; !ok {
		return "", missing("schema")
	}
	return r.URL(doc, ptr+"/content/"+jsonpointer.Escape(media)+"/schema"), nil
}

// statusKey picks the exact status, then its range (2XX), then default.
func statusKey(responses map[string]any, status int) (string, bool) {
	class := strconv.Itoa(status / 100)
	for _, c := range []string{strconv.Itoa(status), class + "XX", class + "xx", "default"} {
		if _, ok := responses[c]; ok {
			return c, true
		}
	}
	return "", false
}

// mediaKey matches a content type ignoring case and parameters.
func mediaKey(content map[string]any, mediaType string) (string, bool) {
	if _, ok := content[mediaType]; ok {
		return mediaType, true
	}
	want := normalizeMedia(mediaType)
	for key := range content {
		if normalizeMedia(key) == want {
			return key, true
		}
	}
	return "", false
}

func normalizeMedia(s string) string {
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// flatten collects the leaf causes of a validation error.
func flatten(err *jsonschema.ValidationError) []Detail {
	if len(err.Causes) == 0 {
		return []Detail{{
			InstanceLocation: err.InstanceLocation,
			KeywordLocation:  err.KeywordLocation,
			Message:          err.Message,
		}}
	}
	var out []Detail
	for _, cause := range err.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}
