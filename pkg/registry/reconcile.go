package registry

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pyneda/openeoct/lib"
	"github.com/pyneda/openeoct/pkg/capabilities"
)

// ReconcileOptions select which advertised endpoints become records.
// The zero value allows GET only and keeps templated paths.
type ReconcileOptions struct {
	// AllowedMethods are compared case-insensitively. Empty means GET.
	AllowedMethods []string
	// ExcludeTemplated skips paths with a {parameter} placeholder.
	ExcludeTemplated bool
}

// DefaultReconcileOptions discovers plain GET endpoints.
func DefaultReconcileOptions() ReconcileOptions {
	return ReconcileOptions{AllowedMethods: []string{"GET"}, ExcludeTemplated: true}
}

// AllReconcileOptions discovers every method on every path.
func AllReconcileOptions() ReconcileOptions {
	return ReconcileOptions{AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH"}}
}

func (o ReconcileOptions) allows(method string) bool {
	if len(o.AllowedMethods) == 0 {
		return method == "GET"
	}
	for _, m := range o.AllowedMethods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// Reconcile returns the records to add so that every advertised endpoint
// passing opts is present once. Existing records are neither changed nor
// duplicated. New records keep the order of the capabilities document, get a
// fresh StorageID, the default group and an ID derived from method and path
// that collides with no existing or new ID.
func Reconcile(caps *capabilities.Document, existing []EndpointRecord, opts ReconcileOptions) []EndpointRecord {
	out := []EndpointRecord{}
	if caps == nil {
		return out
	}

	known := make(map[coordKey]struct{}, len(existing))
	ids := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		known[coordKey{url: rec.URL, method: strings.ToUpper(rec.Method)}] = struct{}{}
		ids[rec.ID] = struct{}{}
	}

	for _, entry := range caps.Endpoints {
		if entry.Path == "" {
			continue
		}
		if opts.ExcludeTemplated && strings.Contains(entry.Path, "{") {
			continue
		}
		for _, m := range entry.Methods {
			method := strings.ToUpper(strings.TrimSpace(m))
			if !opts.allows(method) {
				continue
			}
			key := coordKey{url: entry.Path, method: method}
			if _, ok := known[key]; ok {
				continue
			}
			known[key] = struct{}{}

			id := uniqueID(DeriveID(method, entry.Path), ids)
			ids[id] = struct{}{}
			out = append(out, EndpointRecord{
				StorageID: uuid.New(),
				ID:        id,
				URL:       entry.Path,
				Method:    method,
				Group:     DefaultGroup,
			})
		}
	}
	return out
}

// DeriveID turns method and path into a registry key without separators,
// e.g. GET /collections becomes get-collections.
func DeriveID(method, path string) string {
	id := lib.Slugify(strings.ToLower(method) + " " + strings.ReplaceAll(path, "/", " "))
	if id == "" {
		return "endpoint"
	}
	return id
}

func uniqueID(base string, taken map[string]struct{}) string {
	if _, ok := taken[base]; !ok {
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
