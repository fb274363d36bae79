package storage

import (
	"fmt"
	"strings"
)

// Result holds the materialized rows of one execution plus the relation
// data loaded by its prefetch hints. Each prefetched path was resolved
// exactly once, in bulk; per-row reads served from a Result never touch
// the store again.
type Result struct {
	store  *Store
	entity string
	rows   []Instance

	// related maps a prefetched path to parent-pk → related instances.
	related map[string]map[string][]Instance
	// flat maps a prefetched path to its deduplicated instances, the
	// parents of the next level.
	flat map[string][]Instance
}

// Rows returns the materialized root rows.
func (r *Result) Rows() []Instance { return r.rows }

// Store returns the store the result was executed against.
func (r *Result) Store() *Store { return r.store }

// Related returns the already-loaded relation instances of one parent
// for a prefetched path. The path must have been prefetched.
func (r *Result) Related(path string, parentPK interface{}) ([]Instance, error) {
	byParent, ok := r.related[path]
	if !ok {
		return nil, fmt.Errorf("relation path %q was not prefetched", path)
	}
	return byParent[pkKey(parentPK)], nil
}

// prefetchPath bulk-loads one relation level. Parents are the root rows
// for a single-segment path, and the instances loaded for the parent
// path otherwise.
func (r *Result) prefetchPath(path string) error {
	parentEntity := r.entity
	parents := r.rows

	attr := path
	if i := strings.LastIndex(path, PathSep); i >= 0 {
		parentPath := path[:i]
		attr = path[i+1:]

		var ok bool
		parents, ok = r.flat[parentPath]
		if !ok {
			return fmt.Errorf("relation path %q was prefetched before its parent %q", path, parentPath)
		}
		parentEntity = r.entityAt(parentPath)
	}

	if !r.store.reg.IsRelation(parentEntity, attr) {
		return fmt.Errorf("attribute %q of entity %q is not a relation", attr, parentEntity)
	}

	r.store.countQuery()

	pk := r.store.PK(parentEntity)
	byParent := make(map[string][]Instance, len(parents))
	var flat []Instance
	seen := make(map[string]bool)
	targetPK := ""
	if target, ok := r.store.reg.RelationTarget(parentEntity, attr); ok {
		targetPK = r.store.PK(target)
	}

	for _, parent := range parents {
		related := r.store.relatedOf(parentEntity, parent, attr)
		byParent[pkKey(parent[pk])] = related
		for _, inst := range related {
			key := pkKey(inst[targetPK])
			if !seen[key] {
				seen[key] = true
				flat = append(flat, inst)
			}
		}
	}

	r.related[path] = byParent
	r.flat[path] = flat
	return nil
}

// entityAt resolves the entity a relation path lands on.
func (r *Result) entityAt(path string) string {
	entity := r.entity
	for _, seg := range strings.Split(path, PathSep) {
		next, ok := r.store.reg.RelationTarget(entity, seg)
		if !ok {
			return entity
		}
		entity = next
	}
	return entity
}
