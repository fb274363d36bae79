package join

import (
	"sort"

	"github.com/siftql/sift/pkg/storage"
)

// Fetch renders the node for one parent row out of the batched result.
// To-one relations yield a single map or nil, to-many relations a
// slice of maps shaped by the node's sub-predicates, sort keys and
// window.
func (n *Node) Fetch(res *storage.Result, parentPK interface{}) (interface{}, error) {
	related, err := res.Related(n.Path, parentPK)
	if err != nil {
		return nil, err
	}
	store := res.Store()

	if !n.Many {
		if len(related) == 0 {
			return nil, nil
		}
		return n.serialize(res, related[0])
	}

	kept := make([]storage.Instance, 0, len(related))
	for _, inst := range related {
		if store.MatchAll(n.Entity, inst, n.Filters) {
			kept = append(kept, inst)
		}
	}
	if len(n.Sort) > 0 {
		store.SortInstances(n.Entity, kept, n.Sort)
	}
	if n.Start > 0 {
		if n.Start >= len(kept) {
			kept = nil
		} else {
			kept = kept[n.Start:]
		}
	}
	if n.Limit > 0 && n.Limit < len(kept) {
		kept = kept[:n.Limit]
	}

	rows := make([]interface{}, 0, len(kept))
	for _, inst := range kept {
		row, err := n.serialize(res, inst)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// serialize shapes one related instance: visible scalars, unexpanded
// relations as identifiers, expanded relations recursively.
func (n *Node) serialize(res *storage.Result, inst storage.Instance) (map[string]interface{}, error) {
	store := res.Store()
	row := make(map[string]interface{}, len(n.Scalars)+len(n.Ones)+len(n.Manys)+len(n.Children))
	for f := range n.Scalars {
		row[f] = inst[f]
	}
	for f := range n.Ones {
		row[f] = inst[f]
	}
	for f := range n.Manys {
		row[f] = storage.PKList(inst[f])
	}
	pk := inst[store.PK(n.Entity)]
	for attr, child := range n.Children {
		v, err := child.Fetch(res, pk)
		if err != nil {
			return nil, err
		}
		row[attr] = v
	}
	return row, nil
}

// Fields lists the attributes the node renders, for diagnostics.
func (n *Node) Fields() []string {
	fields := make([]string, 0, len(n.Scalars)+len(n.Ones)+len(n.Manys))
	for f := range n.Scalars {
		fields = append(fields, f)
	}
	for f := range n.Ones {
		fields = append(fields, f)
	}
	for f := range n.Manys {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
