package world

import (
	"fmt"
	"strings"
)

// Document is an open JSON-compatible attribute map. The accessors give
// callers typed reads for the few fields the pipeline depends on.
type Document map[string]any

// String returns the value at key when it is a string, else "".
func (d Document) String(key string) string {
	if d == nil {
		return ""
	}
	switch v := d[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

// Has reports whether key is present.
func (d Document) Has(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d[key]
	return ok
}

// Clone returns a shallow copy. A nil document clones to an empty one.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// With returns a copy of d with key set to value.
func (d Document) With(key string, value any) Document {
	out := d.Clone()
	out[key] = value
	return out
}

// Keys returns the document keys as a comma separated list; used in logs.
func (d Document) Keys() string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return strings.Join(keys, ",")
}
