// Package filter compiles raw query-string values into typed boolean
// predicates over resolved attribute paths, and evaluates them against
// in-memory values.
package filter

import (
	"strings"
	"time"

	"github.com/siftql/sift/pkg/qerr"
)

// Predicate is a compiled boolean test over one attribute path. When
// the path spans a to-many relation the predicate matches a row if any
// reachable value matches; negating modifiers invert that result.
type Predicate struct {
	Path     string
	Modifier string
	Value    interface{}
	Kind     Kind
	Op       Op
	Negated  bool

	// Fold selects the case-insensitive variant of string operators.
	Fold bool
}

// Compile parses a raw value (optional leading modifier + literal) into
// a predicate over path. caseSensitive selects between the two variants
// every string operator carries.
func Compile(path, raw string, caseSensitive bool, table *Table) (*Predicate, error) {
	modifier := ""
	if raw != "" && table.IsModifier(raw[0]) {
		modifier, raw = string(raw[0]), raw[1:]
	}

	value, kind := ParseValue(raw)

	op, ok := table.Lookup(modifier, kind)
	if !ok {
		return nil, &qerr.UnsupportedPredicateError{
			Modifier: modifier,
			Value:    value,
			Type:     kind.String(),
		}
	}

	return &Predicate{
		Path:     path,
		Modifier: modifier,
		Value:    value,
		Kind:     kind,
		Op:       op,
		Negated:  table.IsNegated(modifier),
		Fold:     kind == KindString && !caseSensitive,
	}, nil
}

// Match evaluates the predicate against every value reachable through
// its path for one row.
func (p *Predicate) Match(values []interface{}) bool {
	direct := false
	for _, v := range values {
		if p.matches(v) {
			direct = true
			break
		}
	}
	if p.Kind == KindNull && len(values) == 0 {
		// An unreachable value (e.g. a nil to-one hop) compares as null.
		direct = p.Op == OpEqual
	}
	if p.Negated {
		return !direct
	}
	return direct
}

// matches compares a single value with the direct (non-negated) operator.
func (p *Predicate) matches(v interface{}) bool {
	switch p.Kind {
	case KindNull:
		return v == nil

	case KindInt, KindFloat:
		want, _ := toFloat(p.Value)
		got, ok := toFloat(v)
		if !ok {
			return false
		}
		return compareOrdered(p.Op, floatCmp(got, want))

	case KindTime:
		want := p.Value.(time.Time)
		got, ok := v.(time.Time)
		if !ok {
			return false
		}
		switch {
		case got.Before(want):
			return compareOrdered(p.Op, -1)
		case got.After(want):
			return compareOrdered(p.Op, 1)
		default:
			return compareOrdered(p.Op, 0)
		}

	case KindString:
		want := p.Value.(string)
		got, ok := v.(string)
		if !ok {
			return false
		}
		if p.Fold {
			got, want = strings.ToLower(got), strings.ToLower(want)
		}
		switch p.Op {
		case OpStartsWith:
			return strings.HasPrefix(got, want)
		case OpEndsWith:
			return strings.HasSuffix(got, want)
		case OpContains:
			return strings.Contains(got, want)
		default:
			return compareOrdered(p.Op, strings.Compare(got, want))
		}
	}
	return false
}

func compareOrdered(op Op, cmp int) bool {
	switch op {
	case OpEqual:
		return cmp == 0
	case OpLessThan:
		return cmp < 0
	case OpLessThanOrEqual:
		return cmp <= 0
	case OpGreaterThan:
		return cmp > 0
	case OpGreaterThanOrEqual:
		return cmp >= 0
	default:
		return false
	}
}

func floatCmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// toFloat coerces the numeric types rows may carry into a float64.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
