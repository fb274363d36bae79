package filter

import (
	"strconv"
	"time"
)

// Kind is the inferred type of a filter literal.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindTime
	KindString
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Accepted ISO-8601 layouts, most specific first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseValue infers the type of a raw literal. Parsers run in a fixed
// order: empty string, integer, float, ISO-8601 date/time. The first
// success wins; otherwise the literal stays a string.
func ParseValue(raw string) (interface{}, Kind) {
	if raw == "" {
		return nil, KindNull
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, KindInt
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, KindFloat
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, KindTime
		}
	}
	return raw, KindString
}
