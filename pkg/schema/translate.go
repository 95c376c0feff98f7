// Package schema converts OpenAPI 3.0 schema objects into standard JSON Schema (draft 4).
//
// The conversion is purely structural: it never dereferences $ref, so it composes
// with resolvers that load referenced fragments lazily and translate them on the way.
package schema

// openAPIOnlyKeywords are annotation keywords of the OpenAPI dialect that have
// no JSON Schema meaning and are dropped.
var openAPIOnlyKeywords = map[string]struct{}{
	"discriminator": {},
	"xml":           {},
	"externalDocs":  {},
	"example":       {},
	"deprecated":    {},
	"readOnly":      {},
	"writeOnly":     {},
}

// keywords whose value is a single subschema
var schemaValued = []string{"not", "additionalProperties", "additionalItems"}

// keywords whose value is an array of subschemas
var schemaArrays = []string{"allOf", "anyOf", "oneOf"}

// keywords whose value is a map of name -> subschema
var schemaMaps = []string{"properties", "patternProperties", "definitions"}

// Translate returns a JSON Schema equivalent of an OpenAPI schema fragment.
// The input is not modified. Translating an already translated fragment
// returns a structurally equal copy.
func Translate(fragment map[string]any) map[string]any {
	if fragment == nil {
		return nil
	}
	out := make(map[string]any, len(fragment))
	nullable := false
	for k, v := range fragment {
		if k == "nullable" {
			nullable, _ = v.(bool)
			continue
		}
		if _, drop := openAPIOnlyKeywords[k]; drop {
			continue
		}
		out[k] = v
	}

	for _, k := range schemaValued {
		if sub, ok := out[k].(map[string]any); ok {
			out[k] = Translate(sub)
		}
	}
	for _, k := range schemaArrays {
		if subs, ok := out[k].([]any); ok {
			out[k] = translateSlice(subs)
		}
	}
	for _, k := range schemaMaps {
		if subs, ok := out[k].(map[string]any); ok {
			translated := make(map[string]any, len(subs))
			for name, sub := range subs {
				if m, ok := sub.(map[string]any); ok {
					translated[name] = Translate(m)
				} else {
					translated[name] = sub
				}
			}
			out[k] = translated
		}
	}
	switch items := out["items"].(type) {
	case map[string]any:
		out["items"] = Translate(items)
	case []any:
		out["items"] = translateSlice(items)
	}

	if req, ok := out["required"].([]any); ok && len(req) == 0 {
		delete(out, "required")
	}

	if nullable {
		return makeNullable(out)
	}
	return out
}

func translateSlice(subs []any) []any {
	translated := make([]any, len(subs))
	for i, sub := range subs {
		if m, ok := sub.(map[string]any); ok {
			translated[i] = Translate(m)
		} else {
			translated[i] = sub
		}
	}
	return translated
}

// makeNullable widens an already translated schema so that null is also accepted.
func makeNullable(s map[string]any) map[string]any {
	if enum, ok := s["enum"].([]any); ok && !containsNull(enum) {
		widened := make([]any, len(enum), len(enum)+1)
		copy(widened, enum)
		s["enum"] = append(widened, nil)
	}

	switch t := s["type"].(type) {
	case string:
		if t != "null" {
			s["type"] = []any{t, "null"}
		}
		return s
	case []any:
		if !containsString(t, "null") {
			widened := make([]any, len(t), len(t)+1)
			copy(widened, t)
			s["type"] = append(widened, "null")
		}
		return s
	}

	// No type keyword (e.g. a $ref or a composition): only a wrapper can add null,
	// since $ref siblings are ignored in draft 4.
	return map[string]any{
		"anyOf": []any{s, map[string]any{"type": "null"}},
	}
}

func containsNull(values []any) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}

func containsString(values []any, s string) bool {
	for _, v := range values {
		if str, ok := v.(string); ok && str == s {
			return true
		}
	}
	return false
}
