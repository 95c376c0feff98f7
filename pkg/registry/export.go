package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

func ptr[T any](v T) *T { return &v }

// ExportFragment renders a backend as a complete fragment. Merging it into
// an empty backend reproduces the endpoints and variables.
func (r *Registry) ExportFragment(backendID string) (*Fragment, error) {
	s, err := r.Snapshot(backendID)
	if err != nil {
		return nil, err
	}
	return FragmentFromSnapshot(s), nil
}

// FragmentFromSnapshot renders a snapshot as a fragment. Empty optional
// fields are left out.
func FragmentFromSnapshot(s Snapshot) *Fragment {
	b := s.Backend
	f := &Fragment{
		URL:       ptr(b.URL),
		Endpoints: make(map[string]EndpointFragment, len(s.Endpoints)),
	}
	optional := func(dst **string, v string) {
		if v != "" {
			*dst = ptr(v)
		}
	}
	optional(&f.OpenAPI, b.OpenAPI)
	optional(&f.Username, b.Username)
	optional(&f.Password, b.Password)
	optional(&f.AuthURL, b.AuthURL)
	optional(&f.BackendVersion, b.Version)
	optional(&f.Output, b.Output)

	for _, rec := range s.Endpoints {
		ef := EndpointFragment{
			ID:          ptr(rec.ID),
			URL:         ptr(rec.URL),
			RequestType: ptr(rec.Method),
		}
		if rec.Group != "" && rec.Group != DefaultGroup {
			ef.Group = ptr(rec.Group)
		}
		if rec.Order != 0 {
			ef.Order = ptr(rec.Order)
		}
		if rec.Timeout != 0 {
			ef.Timeout = ptr(rec.Timeout)
		}
		if rec.Optional {
			ef.Optional = ptr(true)
		}
		optional(&ef.Body, rec.Body)
		optional(&ef.Header, rec.Header)
		f.Endpoints[rec.ID] = ef
	}
	if len(s.Variables) > 0 {
		f.Variables = make(map[string]string, len(s.Variables))
		for _, v := range s.Variables {
			f.Variables[v.Name] = v.Value
		}
	}
	return f
}

// Encode serializes a fragment in the given format.
func (f *Fragment) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(f, "", "  ")
	case FormatYAML:
		return yaml.Marshal(f)
	case FormatTOML:
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(f); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown config format: %s", format)
	}
}

// ExportConfig renders a backend as a TOML configuration file.
func (r *Registry) ExportConfig(backendID string) ([]byte, error) {
	f, err := r.ExportFragment(backendID)
	if err != nil {
		return nil, err
	}
	return f.Encode(FormatTOML)
}
