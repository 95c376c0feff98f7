// Package capabilities reads what a backend says about itself.
package capabilities

import (
	"strings"
)

// Endpoint is one entry of the capabilities endpoint list.
type Endpoint struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
}

// Document is the capabilities document served at the backend root.
type Document struct {
	APIVersion     string     `json:"api_version"`
	BackendVersion string     `json:"backend_version"`
	StacVersion    string     `json:"stac_version,omitempty"`
	ID             string     `json:"id,omitempty"`
	Title          string     `json:"title,omitempty"`
	Description    string     `json:"description,omitempty"`
	Endpoints      []Endpoint `json:"endpoints"`
}

// HasEndpoint reports whether doc lists path with method. Methods compare
// case-insensitively, an empty method means GET.
func HasEndpoint(doc *Document, path, method string) bool {
	if doc == nil {
		return false
	}
	if method == "" {
		method = "GET"
	}
	for _, e := range doc.Endpoints {
		if e.Path != path {
			continue
		}
		for _, m := range e.Methods {
			if strings.EqualFold(m, method) {
				return true
			}
		}
	}
	return false
}

// HasEndpoint is HasEndpoint(d, path, method).
func (d *Document) HasEndpoint(path, method string) bool {
	return HasEndpoint(d, path, method)
}
