// Package authscan finds the GET paths of a contract that cannot be called anonymously.
package authscan

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/pyneda/openeoct/pkg/spec"
)

// Scan returns, sorted, every path without parameters whose GET operation
// declares security and offers no anonymous ({}) alternative. Operations
// without a security field count as open, the document-wide default is
// ignored; see ScanWithGlobal.
func Scan(doc *spec.Document) []string {
	return scan(doc, false)
}

// ScanWithGlobal is Scan where operations without a security field inherit
// the document's top-level security requirements.
func ScanWithGlobal(doc *spec.Document) []string {
	return scan(doc, true)
}

func scan(doc *spec.Document, inheritGlobal bool) []string {
	typed := doc.OpenAPI()
	if typed == nil || typed.Paths == nil {
		return []string{}
	}
	out := []string{}
	for path, item := range typed.Paths.Map() {
		if strings.Contains(path, "{") || item == nil || item.Get == nil {
			continue
		}
		security := item.Get.Security
		if security == nil && inheritGlobal && typed.Security != nil {
			security = &typed.Security
		}
		if requiresAuth(security) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// requiresAuth reports whether security is present and every alternative names
// at least one scheme. An empty list counts as present.
func requiresAuth(security *openapi3.SecurityRequirements) bool {
	if security == nil {
		return false
	}
	for _, alternative := range *security {
		if len(alternative) == 0 {
			return false
		}
	}
	return true
}
