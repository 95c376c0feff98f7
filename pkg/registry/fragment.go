package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format of a configuration fragment.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat accepts json, yaml, yml and toml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unknown config format: %s", s)
	}
}

// Fragment is a partial backend configuration. Nil fields are absent and
// leave the backend untouched when merged.
type Fragment struct {
	URL            *string `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty"`
	OpenAPI        *string `json:"openapi,omitempty" yaml:"openapi,omitempty" toml:"openapi,omitempty"`
	Username       *string `json:"username,omitempty" yaml:"username,omitempty" toml:"username,omitempty"`
	Password       *string `json:"password,omitempty" yaml:"password,omitempty" toml:"password,omitempty"`
	AuthURL        *string `json:"authurl,omitempty" yaml:"authurl,omitempty" toml:"authurl,omitempty"`
	Version        *string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	BackendVersion *string `json:"backendversion,omitempty" yaml:"backendversion,omitempty" toml:"backendversion,omitempty"`
	Output         *string `json:"output,omitempty" yaml:"output,omitempty" toml:"output,omitempty"`

	Endpoints map[string]EndpointFragment `json:"endpoints,omitempty" yaml:"endpoints,omitempty" toml:"endpoints,omitempty"`
	Variables map[string]string           `json:"variables,omitempty" yaml:"variables,omitempty" toml:"variables,omitempty"`
}

// EndpointFragment is a partial endpoint. Its identity is ID when set,
// otherwise the key it is listed under.
type EndpointFragment struct {
	ID          *string `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	URL         *string `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty"`
	RequestType *string `json:"request_type,omitempty" yaml:"request_type,omitempty" toml:"request_type,omitempty"`
	Order       *int    `json:"order,omitempty" yaml:"order,omitempty" toml:"order,omitempty"`
	Timeout     *int    `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	Group       *string `json:"group,omitempty" yaml:"group,omitempty" toml:"group,omitempty"`
	Optional    *bool   `json:"optional,omitempty" yaml:"optional,omitempty" toml:"optional,omitempty"`
	Body        *string `json:"body,omitempty" yaml:"body,omitempty" toml:"body,omitempty"`
	Header      *string `json:"header,omitempty" yaml:"header,omitempty" toml:"header,omitempty"`
}

// ParseFragment decodes a fragment. Unknown keys are rejected so that typos
// are not silently ignored.
func ParseFragment(data []byte, format Format) (*Fragment, error) {
	var f Fragment
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing json config: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing yaml config: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing toml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config format: %s", format)
	}
	return &f, nil
}

// legacyKeyPrefix is written by older exports in front of endpoint keys.
const legacyKeyPrefix = "endpoints."

// identity is the endpoint id an entry of Endpoints refers to.
func (ef EndpointFragment) identity(key string) string {
	if ef.ID != nil && *ef.ID != "" {
		return *ef.ID
	}
	return strings.TrimPrefix(key, legacyKeyPrefix)
}

// coord is the natural key the entry describes, ok is false without a url.
func (ef EndpointFragment) coord() (coordKey, bool) {
	if ef.URL == nil {
		return coordKey{}, false
	}
	rec := EndpointRecord{URL: *ef.URL}
	if ef.RequestType != nil {
		rec.Method = *ef.RequestType
	}
	rec.normalize()
	return rec.coord(), true
}

// apply copies the present fields onto rec.
func (ef EndpointFragment) apply(rec *EndpointRecord) {
	if ef.URL != nil {
		rec.URL = *ef.URL
	}
	if ef.RequestType != nil {
		rec.Method = *ef.RequestType
	}
	if ef.Order != nil {
		rec.Order = *ef.Order
	}
	if ef.Timeout != nil {
		rec.Timeout = *ef.Timeout
	}
	if ef.Group != nil {
		rec.Group = *ef.Group
	}
	if ef.Optional != nil {
		rec.Optional = *ef.Optional
	}
	if ef.Body != nil {
		rec.Body = *ef.Body
	}
	if ef.Header != nil {
		rec.Header = *ef.Header
	}
}

// apply copies the present scalar fields onto b. backendversion is applied
// after version.
func (f *Fragment) apply(b *Backend) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&b.URL, f.URL)
	set(&b.OpenAPI, f.OpenAPI)
	set(&b.Username, f.Username)
	set(&b.Password, f.Password)
	set(&b.AuthURL, f.AuthURL)
	set(&b.Version, f.Version)
	set(&b.Version, f.BackendVersion)
	set(&b.Output, f.Output)
}
