package sift

import (
	"context"
	"fmt"
	"sort"

	"github.com/siftql/sift/pkg/qerr"
	"github.com/siftql/sift/pkg/storage"
)

// rootFields is the resolved field selection of the root entity.
type rootFields struct {
	scalars []string
	ones    []string
	manys   []string
}

// selectFields applies the show/hide lists and the censor to the root
// entity's attributes, plus every computed attribute declared by the
// query. Relations expanded by the join tree are excluded here and
// rendered through their nodes instead.
func (q *Query) selectFields() rootFields {
	intro := q.store.Registry()

	var names []string
	if len(q.show) > 0 {
		names = q.show
	} else {
		hidden := make(map[string]bool, len(q.hide))
		for _, h := range q.hide {
			hidden[h] = true
		}
		for _, n := range intro.Attributes(q.root) {
			if !hidden[n] {
				names = append(names, n)
			}
		}
		arbitrary := make([]string, 0, len(q.arbitrary))
		for n := range q.arbitrary {
			if !hidden[n] {
				arbitrary = append(arbitrary, n)
			}
		}
		sort.Strings(arbitrary)
		names = append(names, arbitrary...)
	}

	var fields rootFields
	for _, n := range names {
		if q.arbitrary[n] {
			fields.scalars = append(fields.scalars, n)
			continue
		}
		if !q.censor.IsPublic(q.root, n) {
			continue
		}
		if _, expanded := q.tree.Roots[n]; expanded {
			continue
		}
		switch {
		case !intro.IsRelation(q.root, n):
			fields.scalars = append(fields.scalars, n)
		case intro.IsToMany(q.root, n):
			fields.manys = append(fields.manys, n)
		default:
			fields.ones = append(fields.ones, n)
		}
	}
	return fields
}

// serializeRows renders every row of the result: visible scalars and
// computed attributes verbatim, unexpanded to-one relations as their
// identifier, unexpanded to-many relations as identifier lists, and
// expanded relations as nested rows fetched from the eager-loaded
// data.
func (q *Query) serializeRows(res *storage.Result) ([]interface{}, error) {
	fields := q.selectFields()
	pkAttr := q.store.PK(q.root)

	rows := make([]interface{}, 0, len(res.Rows()))
	for _, inst := range res.Rows() {
		row, err := q.serializeRow(inst, fields, pkAttr, res)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (q *Query) serializeRow(inst storage.Instance, fields rootFields, pkAttr string, res *storage.Result) (map[string]interface{}, error) {
	row := make(map[string]interface{})
	for _, f := range fields.scalars {
		row[f] = inst[f]
	}
	for _, f := range fields.ones {
		row[f] = inst[f]
	}
	for _, f := range fields.manys {
		row[f] = storage.PKList(inst[f])
	}
	for attr, node := range q.tree.Roots {
		v, err := node.Fetch(res, inst[pkAttr])
		if err != nil {
			return nil, err
		}
		row[attr] = v
	}
	return row, nil
}

// Serialize renders the instance identified by pk the way a full
// evaluation would render one row, without running a pipeline. Only the
// rendering directives of params are honored: c:join, c:show and
// c:hide. Any other key is rejected.
func Serialize(ctx context.Context, store *storage.Store, entity string, pk interface{}, params Params, opts ...Option) (map[string]interface{}, error) {
	q := New(store, entity, params, opts...)
	q.prepare()

	for _, p := range q.params {
		switch p.Key {
		case "c:join", "c:show", "c:hide":
		default:
			return nil, &qerr.InvalidDirectiveError{
				Directive: p.Key,
				Reason:    "only c:join, c:show and c:hide apply when serializing one instance",
			}
		}
	}
	for i := range q.pipeline {
		cmd := &q.pipeline[i]
		if cmd.Terminal || cmd.Match == nil {
			continue
		}
		for _, p := range q.params {
			if cmd.Match(p.Key) {
				if err := cmd.Run(ctx, q, p.Key, p.Values); err != nil {
					return nil, err
				}
			}
		}
	}

	res, err := q.qs.Prefetch(q.tree.Paths()...).Execute(ctx)
	if err != nil {
		return nil, err
	}

	pkAttr := store.PK(entity)
	want := fmt.Sprint(pk)
	for _, inst := range res.Rows() {
		if fmt.Sprint(inst[pkAttr]) == want {
			return q.serializeRow(inst, q.selectFields(), pkAttr, res)
		}
	}
	return nil, fmt.Errorf("no %s instance with %s = %v", entity, pkAttr, pk)
}
