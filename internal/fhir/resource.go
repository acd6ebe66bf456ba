package fhir

import "strings"

// Resource is a raw FHIR resource as decoded from JSON. Apart from resourceType
// and id nothing is guaranteed to be present or to have the expected shape, so
// callers read fields through the typed accessors below.
type Resource map[string]any

// AsResource converts a decoded JSON value into a Resource when it is an object.
func AsResource(v any) (Resource, bool) {
	switch m := v.(type) {
	case Resource:
		return m, m != nil
	case map[string]any:
		return Resource(m), m != nil
	default:
		return nil, false
	}
}

// Type returns the resourceType field.
func (r Resource) Type() string { return r.String("resourceType") }

// ID returns the logical id.
func (r Resource) ID() string { return r.String("id") }

// String returns a string field, or "" when absent or not a string.
func (r Resource) String(key string) string {
	if r == nil {
		return ""
	}
	s, _ := r[key].(string)
	return s
}

// Object returns a nested object field.
func (r Resource) Object(key string) Resource {
	if r == nil {
		return nil
	}
	obj, _ := AsResource(r[key])
	return obj
}

// Array returns a list field. A single object where a list is expected is
// wrapped so producers that flatten one-element arrays still read.
func (r Resource) Array(key string) []any {
	if r == nil {
		return nil
	}
	switch v := r[key].(type) {
	case []any:
		return v
	case []Resource:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case map[string]any, Resource:
		return []any{v}
	default:
		return nil
	}
}

// Objects returns the object elements of a list field, skipping anything else.
func (r Resource) Objects(key string) []Resource {
	items := r.Array(key)
	out := make([]Resource, 0, len(items))
	for _, item := range items {
		if obj, ok := AsResource(item); ok {
			out = append(out, obj)
		}
	}
	return out
}

// Strings returns the string elements of a list field.
func (r Resource) Strings(key string) []string {
	items := r.Array(key)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy so callers can modify the result without touching r.
func (r Resource) Clone() Resource {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Resource:
		return Resource(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// ReferenceID extracts the id from a reference like "Practitioner/123" or a full
// URL ending in ".../Practitioner/123/_history/2".
func ReferenceID(reference string) string {
	reference = strings.TrimSpace(reference)
	if i := strings.Index(reference, "/_history/"); i >= 0 {
		reference = reference[:i]
	}
	if i := strings.LastIndex(reference, "/"); i >= 0 {
		return reference[i+1:]
	}
	return reference
}

// ReferenceType extracts the resource type from a reference, "" when it has none.
func ReferenceType(reference string) string {
	reference = strings.TrimSpace(reference)
	if i := strings.Index(reference, "/_history/"); i >= 0 {
		reference = reference[:i]
	}
	parts := strings.Split(reference, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}
