// Package subquery parses the structured sub-grammar used by directive
// values: key=value pairs separated by a field separator (default "|"),
// with multiple values inside one pair separated by a value separator
// (default "'").
package subquery

import (
	"fmt"
	"strings"
)

// Dict is an insertion-ordered multi-valued key/value mapping parsed
// from a directive value.
type Dict struct {
	keys   []string
	values map[string][]string
}

// Parse splits a directive value into a Dict. Every pair must contain
// an equal sign.
func Parse(s, fieldSep, valueSep string) (*Dict, error) {
	d := &Dict{values: make(map[string][]string)}

	for _, pair := range strings.Split(s, fieldSep) {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) < 2 {
			return nil, fmt.Errorf("a key/value pair must contain an equal '=', received %q", kv[0])
		}
		key := kv[0]
		if _, seen := d.values[key]; !seen {
			d.keys = append(d.keys, key)
		}
		for _, v := range strings.Split(kv[1], valueSep) {
			d.values[key] = append(d.values[key], v)
		}
	}
	return d, nil
}

// Has reports whether the key was present.
func (d *Dict) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Get returns the last value supplied for key, or fallback when absent.
func (d *Dict) Get(key, fallback string) string {
	vs, ok := d.values[key]
	if !ok || len(vs) == 0 {
		return fallback
	}
	return vs[len(vs)-1]
}

// GetList returns every value supplied for key.
func (d *Dict) GetList(key string) []string {
	return d.values[key]
}

// Keys returns the keys in first-seen order.
func (d *Dict) Keys() []string {
	return d.keys
}

// SplitValues splits every string in values on sep and concatenates the
// results, preserving order.
func SplitValues(values []string, sep string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, sep)...)
	}
	return out
}
