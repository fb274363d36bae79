package storage

import (
	"sort"
	"strings"
	"time"

	"github.com/siftql/sift/internal/aggregate"
	"github.com/siftql/sift/internal/filter"
)

// Match evaluates a predicate against one instance, using every value
// reachable through the predicate's path.
func (s *Store) Match(entity string, inst Instance, p *filter.Predicate) bool {
	return p.Match(s.PathValues(entity, inst, p.Path))
}

// MatchAll reports whether the instance satisfies every predicate.
func (s *Store) MatchAll(entity string, inst Instance, preds []*filter.Predicate) bool {
	for _, p := range preds {
		if !s.Match(entity, inst, p) {
			return false
		}
	}
	return true
}

// annotate computes one annotation value for one instance.
//
// When the annotated path enters a relation, sub-filters whose path
// starts with the same relation are applied per related instance (with
// the shared prefix stripped); any other sub-filter is evaluated
// against the root instance and, when false, empties the aggregate
// input. This preserves the root-relative sub-filter grammar.
func (s *Store) annotate(entity string, inst Instance, a *aggregate.Annotation) (interface{}, error) {
	head := a.Field
	rest := ""
	if i := strings.Index(a.Field, PathSep); i >= 0 {
		head, rest = a.Field[:i], a.Field[i+1:]
	}

	if !s.reg.IsRelation(entity, head) {
		if !s.MatchAll(entity, inst, a.Filters) {
			return a.Fn(nil)
		}
		return a.Fn(s.PathValues(entity, inst, a.Field))
	}

	target, _ := s.reg.RelationTarget(entity, head)
	prefix := head + PathSep

	var branch, root []*filter.Predicate
	for _, f := range a.Filters {
		if f.Path == head || strings.HasPrefix(f.Path, prefix) {
			branch = append(branch, f)
		} else {
			root = append(root, f)
		}
	}
	if !s.MatchAll(entity, inst, root) {
		return a.Fn(nil)
	}

	var values []interface{}
	for _, related := range s.relatedOf(entity, inst, head) {
		keep := true
		for _, f := range branch {
			stripped := *f
			stripped.Path = strings.TrimPrefix(f.Path, prefix)
			if stripped.Path == head {
				// Filtering on the relation itself compares pks.
				stripped.Path = s.PK(target)
			}
			if !s.Match(target, related, &stripped) {
				keep = false
				break
			}
		}
		if !keep {
			continue
		}
		if rest == "" {
			values = append(values, related[s.PK(target)])
		} else {
			values = append(values, s.PathValues(target, related, rest)...)
		}
	}
	return a.Fn(values)
}

// SortInstances stably sorts items by the given keys. A '-' prefix
// selects descending order; keys may be dotted paths, in which case the
// first reachable value is compared. Nil sorts before any value.
func (s *Store) SortInstances(entity string, items []Instance, keys []string) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, key := range keys {
			desc := strings.HasPrefix(key, "-")
			path := strings.TrimPrefix(key, "-")

			cmp := compareValues(s.firstValue(entity, items[i], path), s.firstValue(entity, items[j], path))
			if cmp == 0 {
				continue
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func (s *Store) firstValue(entity string, inst Instance, path string) interface{} {
	values := s.PathValues(entity, inst, path)
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

// compareValues orders the value types rows may carry. Mixed or
// unordered types compare equal.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
		return 0
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs)
		}
		return 0
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	return 0
}

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
