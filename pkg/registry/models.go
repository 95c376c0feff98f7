package registry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pyneda/openeoct/lib"
)

// DefaultGroup holds endpoints that were not assigned a group.
const DefaultGroup = "nogroup"

// Methods accepted for endpoint records.
var Methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

// Backend is a backend under test.
type Backend struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url" validate:"required,url"`
	// OpenAPI is the contract file or URL, empty to load it from the contract directory by version.
	OpenAPI string `json:"openapi,omitempty" yaml:"openapi,omitempty"`
	// Version is the api version picked through version discovery.
	Version  string `json:"version,omitempty" yaml:"version,omitempty"`
	Output   string `json:"output,omitempty" yaml:"output,omitempty"`
	AuthURL  string `json:"authurl,omitempty" yaml:"authurl,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"-" yaml:"-"`
}

// Slug is the id derived from the name when none is given.
func (b Backend) Slug() string { return sluggedName(b.Name) }

func (b Backend) TableHeaders() []string {
	return []string{"ID", "Name", "URL", "Version", "OpenAPI"}
}

func (b Backend) TableRow() []string {
	return []string{b.ID, b.Name, b.URL, b.Version, b.OpenAPI}
}

func (b Backend) String() string {
	return fmt.Sprintf("ID: %s, Name: %s, URL: %s", b.ID, b.Name, b.URL)
}

func (b Backend) Pretty() string {
	return fmt.Sprintf(
		"%sID:%s %s\n%sName:%s %s\n%sURL:%s %s\n%sVersion:%s %s\n%sOpenAPI:%s %s\n%sAuth URL:%s %s\n",
		lib.Blue, lib.ResetColor, b.ID,
		lib.Blue, lib.ResetColor, b.Name,
		lib.Blue, lib.ResetColor, b.URL,
		lib.Blue, lib.ResetColor, b.Version,
		lib.Blue, lib.ResetColor, b.OpenAPI,
		lib.Blue, lib.ResetColor, b.AuthURL,
	)
}

// EndpointRecord is one endpoint to validate. (BackendID, URL, Method) is
// unique, ID is the key used in configuration files.
type EndpointRecord struct {
	StorageID uuid.UUID `json:"storage_id" yaml:"storage_id"`
	BackendID string    `json:"backend_id" yaml:"backend_id"`
	ID        string    `json:"id" yaml:"id" validate:"required"`
	URL       string    `json:"url" yaml:"url" validate:"required,startswith=/"`
	Method    string    `json:"method" yaml:"method" validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	Group     string    `json:"group" yaml:"group" validate:"required"`
	// Timeout in seconds, 0 uses the runner default.
	Timeout  int  `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"gte=0"`
	Order    int  `json:"order,omitempty" yaml:"order,omitempty"`
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
	// Body is a path to a JSON file sent as request body.
	Body   string `json:"body,omitempty" yaml:"body,omitempty"`
	Header string `json:"header,omitempty" yaml:"header,omitempty"`
}

func (e EndpointRecord) TableHeaders() []string {
	return []string{"ID", "Method", "URL", "Group", "Order", "Optional"}
}

func (e EndpointRecord) TableRow() []string {
	optional := "no"
	if e.Optional {
		optional = "yes"
	}
	return []string{e.ID, e.Method, e.URL, e.Group, strconv.Itoa(e.Order), optional}
}

func (e EndpointRecord) String() string {
	return fmt.Sprintf("ID: %s, Method: %s, URL: %s, Group: %s", e.ID, e.Method, e.URL, e.Group)
}

func (e EndpointRecord) Pretty() string {
	return fmt.Sprintf(
		"%sID:%s %s\n%sMethod:%s %s\n%sURL:%s %s\n%sGroup:%s %s\n%sOptional:%s %t\n",
		lib.Blue, lib.ResetColor, e.ID,
		lib.Blue, lib.ResetColor, e.Method,
		lib.Blue, lib.ResetColor, e.URL,
		lib.Blue, lib.ResetColor, e.Group,
		lib.Blue, lib.ResetColor, e.Optional,
	)
}

// Variable is a named value substituted into endpoint urls.
type Variable struct {
	StorageID uuid.UUID `json:"storage_id" yaml:"storage_id"`
	BackendID string    `json:"backend_id" yaml:"backend_id"`
	Name      string    `json:"name" yaml:"name" validate:"required"`
	Value     string    `json:"value" yaml:"value"`
}

func (v Variable) TableHeaders() []string {
	return []string{"Name", "Value"}
}

func (v Variable) TableRow() []string {
	return []string{v.Name, v.Value}
}

func (v Variable) String() string {
	return fmt.Sprintf("%s=%s", v.Name, v.Value)
}

func (v Variable) Pretty() string {
	return fmt.Sprintf("%s%s:%s %s\n", lib.Blue, v.Name, lib.ResetColor, v.Value)
}

// normalize fills defaults and canonicalizes the method.
func (e *EndpointRecord) normalize() {
	e.Method = strings.ToUpper(strings.TrimSpace(e.Method))
	if e.Method == "" {
		e.Method = "GET"
	}
	if e.Group == "" {
		e.Group = DefaultGroup
	}
}

type coordKey struct {
	url    string
	method string
}

func (e EndpointRecord) coord() coordKey {
	return coordKey{url: e.URL, method: e.Method}
}
