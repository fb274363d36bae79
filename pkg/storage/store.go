// Package storage provides the query-execution collaborator consumed by
// the engine: an in-memory store of entity instances, a chainable
// immutable query descriptor over it, and batched relation prefetching.
// A store can be populated directly or loaded from a SQL database.
package storage

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/siftql/sift/pkg/schema"
)

// PathSep separates the segments of attribute paths everywhere in the
// module.
const PathSep = "."

// Instance is one entity row. Scalar attributes hold their value;
// to-one relations hold the target's pk (or nil); to-many relations
// hold a list of target pks.
type Instance = map[string]interface{}

// Store holds the instances of every entity and serves query execution.
// Every top-level execution and every batched relation load increments
// a round-trip counter, so tests can assert that the number of storage
// calls is bounded regardless of row count.
type Store struct {
	reg     *schema.Registry
	data    map[string][]Instance
	byPK    map[string]map[string]Instance
	queries int64
}

// NewStore creates an empty store over the given schema.
func NewStore(reg *schema.Registry) *Store {
	return &Store{
		reg:  reg,
		data: make(map[string][]Instance),
		byPK: make(map[string]map[string]Instance),
	}
}

// Add appends an instance to an entity's data set.
func (s *Store) Add(entity string, inst Instance) error {
	e, ok := s.reg.Get(entity)
	if !ok {
		return fmt.Errorf("unknown entity: %s", entity)
	}
	pk, ok := inst[e.PK]
	if !ok {
		return fmt.Errorf("entity %s: instance is missing primary key %q", entity, e.PK)
	}

	s.data[entity] = append(s.data[entity], inst)
	if s.byPK[entity] == nil {
		s.byPK[entity] = make(map[string]Instance)
	}
	s.byPK[entity][pkKey(pk)] = inst
	return nil
}

// AddAll appends several instances to an entity's data set.
func (s *Store) AddAll(entity string, insts ...Instance) error {
	for _, inst := range insts {
		if err := s.Add(entity, inst); err != nil {
			return err
		}
	}
	return nil
}

// Registry returns the schema the store was built over.
func (s *Store) Registry() *schema.Registry { return s.reg }

// PK returns the primary-key attribute name of an entity.
func (s *Store) PK(entity string) string { return s.reg.PK(entity) }

// Source starts a query descriptor over an entity's data set.
func (s *Store) Source(entity string) *Queryset {
	return &Queryset{store: s, entity: entity, limit: -1}
}

// Queries returns the number of storage round trips performed so far.
func (s *Store) Queries() int {
	return int(atomic.LoadInt64(&s.queries))
}

// ResetQueries zeroes the round-trip counter.
func (s *Store) ResetQueries() {
	atomic.StoreInt64(&s.queries, 0)
}

func (s *Store) countQuery() {
	atomic.AddInt64(&s.queries, 1)
}

// lookup resolves a pk to an instance of the entity.
func (s *Store) lookup(entity string, pk interface{}) (Instance, bool) {
	if pk == nil {
		return nil, false
	}
	inst, ok := s.byPK[entity][pkKey(pk)]
	return inst, ok
}

// relatedOf resolves the relation attribute of one instance into target
// instances, preserving the stored pk order.
func (s *Store) relatedOf(entity string, inst Instance, attr string) []Instance {
	target, ok := s.reg.RelationTarget(entity, attr)
	if !ok {
		return nil
	}

	if s.reg.IsToMany(entity, attr) {
		pks := PKList(inst[attr])
		related := make([]Instance, 0, len(pks))
		for _, pk := range pks {
			if r, ok := s.lookup(target, pk); ok {
				related = append(related, r)
			}
		}
		return related
	}

	if r, ok := s.lookup(target, inst[attr]); ok {
		return []Instance{r}
	}
	return nil
}

// pkKey normalizes a pk value so that int, int64 and string forms of
// the same key collide.
func pkKey(pk interface{}) string {
	return fmt.Sprintf("%v", pk)
}

// PKList normalizes a stored to-many pk value into a slice. A nil
// value yields an empty slice so callers can render it directly.
func PKList(v interface{}) []interface{} {
	switch pks := v.(type) {
	case nil:
		return []interface{}{}
	case []interface{}:
		return pks
	case []int:
		out := make([]interface{}, len(pks))
		for i, pk := range pks {
			out[i] = pk
		}
		return out
	case []int64:
		out := make([]interface{}, len(pks))
		for i, pk := range pks {
			out[i] = pk
		}
		return out
	case []string:
		out := make([]interface{}, len(pks))
		for i, pk := range pks {
			out[i] = pk
		}
		return out
	default:
		return []interface{}{v}
	}
}

// PathValues collects every value reachable from inst through a dotted
// attribute path, flattening to-many hops. A terminal relation segment
// yields the related pks, mirroring how an unexpanded relation renders.
func (s *Store) PathValues(entity string, inst Instance, path string) []interface{} {
	segments := strings.Split(path, PathSep)
	current := []Instance{inst}

	for i, seg := range segments {
		last := i == len(segments)-1

		if !s.reg.IsRelation(entity, seg) {
			if !last {
				return nil
			}
			values := make([]interface{}, 0, len(current))
			for _, c := range current {
				v, ok := c[seg]
				if !ok {
					continue
				}
				values = append(values, v)
			}
			return values
		}

		if last {
			var pks []interface{}
			for _, c := range current {
				if s.reg.IsToMany(entity, seg) {
					pks = append(pks, PKList(c[seg])...)
				} else {
					pks = append(pks, c[seg])
				}
			}
			return pks
		}

		var next []Instance
		for _, c := range current {
			next = append(next, s.relatedOf(entity, c, seg)...)
		}
		current = next
		entity, _ = s.reg.RelationTarget(entity, seg)
	}
	return nil
}
