package storage

import (
	"context"
	"sort"
	"strings"

	"github.com/siftql/sift/internal/aggregate"
	"github.com/siftql/sift/internal/filter"
)

// Queryset is an immutable, chainable query descriptor. Each call
// returns a derived descriptor; nothing touches the store until
// Execute, Count or Aggregate runs.
//
// Execution applies the recorded plan in a fixed semantic order:
// early annotations, filters, late annotations, distinct, sort,
// offset/limit, then prefetches. The early/late split is therefore
// explicit in the plan, not implicit in the order calls were made.
type Queryset struct {
	store    *Store
	entity   string
	preds    []*filter.Predicate
	annos    []*aggregate.Annotation
	sortKeys []string
	distinct bool
	offset   int
	limit    int // -1 means no limit
	prefetch []string
}

func (q *Queryset) clone() *Queryset {
	c := *q
	c.preds = append([]*filter.Predicate(nil), q.preds...)
	c.annos = append([]*aggregate.Annotation(nil), q.annos...)
	c.sortKeys = append([]string(nil), q.sortKeys...)
	c.prefetch = append([]string(nil), q.prefetch...)
	return &c
}

// Entity returns the root entity of the descriptor.
func (q *Queryset) Entity() string { return q.entity }

// Filter adds predicates, combined with logical AND.
func (q *Queryset) Filter(preds ...*filter.Predicate) *Queryset {
	c := q.clone()
	c.preds = append(c.preds, preds...)
	return c
}

// Annotate adds a per-row computed attribute.
func (q *Queryset) Annotate(a *aggregate.Annotation) *Queryset {
	c := q.clone()
	c.annos = append(c.annos, a)
	return c
}

// Sort sets the sort keys. A leading '-' selects descending order;
// keys may be dotted paths.
func (q *Queryset) Sort(keys ...string) *Queryset {
	c := q.clone()
	c.sortKeys = keys
	return c
}

// Distinct eliminates duplicate rows (by primary key).
func (q *Queryset) Distinct() *Queryset {
	c := q.clone()
	c.distinct = true
	return c
}

// Offset skips the first n rows.
func (q *Queryset) Offset(n int) *Queryset {
	c := q.clone()
	c.offset = n
	return c
}

// Limit caps the number of rows returned.
func (q *Queryset) Limit(n int) *Queryset {
	c := q.clone()
	c.limit = n
	return c
}

// Prefetch registers batched relation-loading hints for the given
// dotted relation paths. Each distinct path costs exactly one storage
// round trip at execution, independent of row count.
func (q *Queryset) Prefetch(paths ...string) *Queryset {
	c := q.clone()
	c.prefetch = append(c.prefetch, paths...)
	return c
}

// rows runs the plan minus prefetching.
func (q *Queryset) rows() ([]Instance, error) {
	out := make([]Instance, 0, len(q.store.data[q.entity]))
	for _, inst := range q.store.data[q.entity] {
		out = append(out, inst)
	}

	var err error
	if out, err = q.applyAnnotations(out, true); err != nil {
		return nil, err
	}

	if len(q.preds) > 0 {
		kept := out[:0]
		for _, inst := range out {
			match := true
			for _, p := range q.preds {
				if !q.store.Match(q.entity, inst, p) {
					match = false
					break
				}
			}
			if match {
				kept = append(kept, inst)
			}
		}
		out = kept
	}

	if out, err = q.applyAnnotations(out, false); err != nil {
		return nil, err
	}

	if q.distinct {
		pk := q.store.PK(q.entity)
		seen := make(map[string]bool, len(out))
		kept := out[:0]
		for _, inst := range out {
			key := pkKey(inst[pk])
			if !seen[key] {
				seen[key] = true
				kept = append(kept, inst)
			}
		}
		out = kept
	}

	if len(q.sortKeys) > 0 {
		q.store.SortInstances(q.entity, out, q.sortKeys)
	}

	if q.offset > 0 {
		if q.offset >= len(out) {
			out = nil
		} else {
			out = out[q.offset:]
		}
	}
	if q.limit >= 0 && q.limit < len(out) {
		out = out[:q.limit]
	}

	return out, nil
}

func (q *Queryset) applyAnnotations(rows []Instance, early bool) ([]Instance, error) {
	var annos []*aggregate.Annotation
	for _, a := range q.annos {
		if a.Early == early {
			annos = append(annos, a)
		}
	}
	if len(annos) == 0 {
		return rows, nil
	}

	out := make([]Instance, len(rows))
	for i, inst := range rows {
		// Annotating must not mutate the stored instance.
		copied := make(Instance, len(inst)+len(annos))
		for k, v := range inst {
			copied[k] = v
		}
		for _, a := range annos {
			v, err := q.store.annotate(q.entity, inst, a)
			if err != nil {
				return nil, err
			}
			copied[a.To] = v
		}
		out[i] = copied
	}
	return out, nil
}

// Execute runs the compiled plan and the registered prefetches,
// returning materialized rows plus already-loaded relation data.
func (q *Queryset) Execute(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.store.countQuery()

	rows, err := q.rows()
	if err != nil {
		return nil, err
	}

	res := &Result{
		store:   q.store,
		entity:  q.entity,
		rows:    rows,
		related: make(map[string]map[string][]Instance),
		flat:    make(map[string][]Instance),
	}

	// Shallowest first, so a node's parents are loaded before the node.
	paths := append([]string(nil), q.prefetch...)
	sort.SliceStable(paths, func(i, j int) bool {
		return strings.Count(paths[i], PathSep) < strings.Count(paths[j], PathSep)
	})
	for _, path := range paths {
		if err := res.prefetchPath(path); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Count runs the plan and returns the number of matching rows. One
// storage round trip.
func (q *Queryset) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q.store.countQuery()
	rows, err := q.rows()
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Aggregate runs the plan and computes whole-result aggregates over the
// matching rows. One storage round trip.
func (q *Queryset) Aggregate(ctx context.Context, aggs []*aggregate.Aggregation) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.store.countQuery()
	rows, err := q.rows()
	if err != nil {
		return nil, err
	}

	out := make(map[string]interface{}, len(aggs))
	for _, a := range aggs {
		var values []interface{}
		for _, inst := range rows {
			values = append(values, q.store.PathValues(q.entity, inst, a.Field)...)
		}
		v, err := a.Fn(values)
		if err != nil {
			return nil, err
		}
		out[a.To] = v
	}
	return out, nil
}
