// Package record defines the schema-less document model shared by both
// query dialects.
package record

import (
	"sort"
	"strings"
)

// Record is an unordered mapping of field names to values.
type Record map[string]Value

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v.Clone()
	}
	return out
}

// Equal returns true if both records contain the same keys with equal values.
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Lookup returns the value at the given field path.
//
// A literal key always wins; otherwise the path is split on dots and
// resolved through nested records.
func (r Record) Lookup(path string) (Value, bool) {
	if v, ok := r[path]; ok {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return Value{}, false
	}
	current := r
	parts := strings.Split(path, ".")
	for i, p := range parts {
		v, ok := current[p]
		if !ok {
			return Value{}, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		current, ok = v.AsMap()
		if !ok {
			return Value{}, false
		}
	}
	return Value{}, false
}

// Merge overwrites the top level fields of this record with the fields in patch.
//
// Fields not named in patch are left untouched.
func (r Record) Merge(patch Record) {
	for k, v := range patch {
		r[k] = v.Clone()
	}
}

// Keys returns the sorted field names of the record.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a go map containing the values in the record.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Interface()
	}
	return out
}
