package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/siftql/sift/pkg/schema"
)

// LoadSQL populates a store from a SQL database. Works against any
// database/sql driver (the CLI registers sqlite3 and the pgx stdlib
// driver).
//
// For each entity one SELECT reads the pk, every scalar column and the
// foreign-key column of every to-one relation. To-many relations that
// declare an inverse are then materialized in memory by grouping the
// target's rows on that inverse; to-many relations without an inverse
// are left unloaded.
func LoadSQL(ctx context.Context, db *sql.DB, reg *schema.Registry) (*Store, error) {
	store := NewStore(reg)

	names := reg.List()
	sort.Strings(names)

	for _, name := range names {
		entity, _ := reg.Get(name)
		if err := loadEntity(ctx, db, store, entity); err != nil {
			return nil, fmt.Errorf("loading entity %s: %w", name, err)
		}
	}

	for _, name := range names {
		entity, _ := reg.Get(name)
		linkInverses(store, entity)
	}
	return store, nil
}

func loadEntity(ctx context.Context, db *sql.DB, store *Store, entity *schema.Entity) error {
	table := entity.Table
	if table == "" {
		table = entity.Name
	}

	type column struct {
		name string
		attr string
		typ  schema.FieldType
		rel  bool
	}
	pkType := schema.TypeInt
	if f, ok := entity.Fields[entity.PK]; ok {
		pkType = f.Type
	}
	cols := []column{{name: entity.PK, attr: entity.PK, typ: pkType}}

	fieldNames := make([]string, 0, len(entity.Fields))
	for n := range entity.Fields {
		fieldNames = append(fieldNames, n)
	}
	sort.Strings(fieldNames)
	for _, n := range fieldNames {
		if n == entity.PK {
			continue
		}
		f := entity.Fields[n]
		c := f.Column
		if c == "" {
			c = f.Name
		}
		cols = append(cols, column{name: c, attr: f.Name, typ: f.Type})
	}

	relNames := make([]string, 0, len(entity.Relations))
	for n := range entity.Relations {
		relNames = append(relNames, n)
	}
	sort.Strings(relNames)
	for _, n := range relNames {
		rel := entity.Relations[n]
		if rel.ToMany {
			continue
		}
		fk := rel.ForeignKey
		if fk == "" {
			fk = rel.Name + "_id"
		}
		cols = append(cols, column{name: fk, attr: rel.Name, rel: true})
	}

	selected := make([]string, len(cols))
	for i, c := range cols {
		selected[i] = c.name
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selected, ", "), table)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}

		inst := make(Instance, len(cols))
		for i, c := range cols {
			v := values[i]
			if !c.rel {
				v, err = coerce(c.typ, v)
				if err != nil {
					return fmt.Errorf("column %s: %w", c.name, err)
				}
			} else if b, ok := v.([]byte); ok {
				v = string(b)
			}
			inst[c.attr] = v
		}
		if err := store.Add(entity.Name, inst); err != nil {
			return err
		}
	}
	return rows.Err()
}

// linkInverses fills the pk lists of to-many relations declaring an
// inverse, preserving the target's load order.
func linkInverses(store *Store, entity *schema.Entity) {
	for _, rel := range entity.Relations {
		if !rel.ToMany || rel.Inverse == "" {
			continue
		}

		grouped := make(map[string][]interface{})
		targetPK := store.PK(rel.Target)
		for _, target := range store.data[rel.Target] {
			owner := target[rel.Inverse]
			if owner == nil {
				continue
			}
			key := pkKey(owner)
			grouped[key] = append(grouped[key], target[targetPK])
		}

		pk := entity.PK
		for _, inst := range store.data[entity.Name] {
			pks := grouped[pkKey(inst[pk])]
			if pks == nil {
				pks = []interface{}{}
			}
			inst[rel.Name] = pks
		}
	}
}

// coerce normalizes driver values to the instance value types the
// engine compares: int64, float64, string, bool, time.Time.
func coerce(typ schema.FieldType, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch typ {
	case schema.TypeInt:
		if n, ok := v.(int64); ok {
			return n, nil
		}
		if f, ok := v.(float64); ok {
			return int64(f), nil
		}
	case schema.TypeFloat:
		if f, ok := v.(float64); ok {
			return f, nil
		}
		if n, ok := v.(int64); ok {
			return float64(n), nil
		}
	case schema.TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		if n, ok := v.(int64); ok {
			return n != 0, nil
		}
	case schema.TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case schema.TypeTime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		if s, ok := v.(string); ok {
			for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
				if t, err := time.Parse(layout, s); err == nil {
					return t, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("cannot coerce %T value %v to %s", v, v, typ)
}
