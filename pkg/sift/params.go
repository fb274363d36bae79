package sift

import (
	"net/url"
	"sort"
	"strings"
)

// Param is one query-string parameter with every value it received, in
// the order they appeared.
type Param struct {
	Key    string
	Values []string
}

// Params preserves the parameter order of the raw query string, which
// net/url's map form discards. Evaluation order depends on it.
type Params []Param

// ParseQuery parses a raw query string into ordered parameters.
// Repeats of the same key are merged into one entry at the position of
// the first occurrence. Malformed escapes are dropped pair by pair,
// like url.ParseQuery does, without failing the whole query.
func ParseQuery(rawQuery string) Params {
	var params Params
	index := make(map[string]int)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			continue
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		if i, ok := index[k]; ok {
			params[i].Values = append(params[i].Values, v)
			continue
		}
		index[k] = len(params)
		params = append(params, Param{Key: k, Values: []string{v}})
	}
	return params
}

// FromValues converts url.Values into ordered parameters. The order is
// the sorted key order, for callers that only have the map form.
func FromValues(values url.Values) Params {
	params := make(Params, 0, len(values))
	for _, key := range sortedKeys(values) {
		params = append(params, Param{Key: key, Values: values[key]})
	}
	return params
}

func sortedKeys(values url.Values) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
