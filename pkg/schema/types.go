// Package schema provides the static entity metadata the query engine
// compiles against: entities, scalar fields, relations between entities,
// and a thread-safe registry implementing the Introspector interface.
package schema

import (
	"fmt"
	"sort"
)

// FieldType represents the declared type of a scalar field.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeTime
)

// String returns the string representation of the field type.
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeTime:
		return "time"
	default:
		return "unknown"
	}
}

// ParseFieldType converts a string to a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "string":
		return TypeString, nil
	case "int":
		return TypeInt, nil
	case "float":
		return TypeFloat, nil
	case "bool":
		return TypeBool, nil
	case "time":
		return TypeTime, nil
	default:
		return 0, fmt.Errorf("unknown field type: %s", s)
	}
}

// Field represents a scalar field of an entity.
type Field struct {
	Name string
	Type FieldType

	// Column is the backing column name when the entity is loaded from
	// SQL. Empty means same as Name.
	Column string
}

// Relation represents a relation from one entity to another.
type Relation struct {
	Name   string
	Target string
	ToMany bool

	// ForeignKey is the backing column holding the target's pk when
	// the relation is to-one and the entity is loaded from SQL.
	ForeignKey string

	// Inverse names the to-one relation on the target entity that this
	// to-many relation reverses, when there is one. The SQL loader uses
	// it to materialize the many side.
	Inverse string
}

// Entity represents one node of the relational schema.
type Entity struct {
	Name      string
	PK        string
	Fields    map[string]*Field
	Relations map[string]*Relation

	// Table is the backing SQL table name. Empty means same as Name.
	Table string
}

// NewEntity creates an entity with the conventional "id" primary key.
func NewEntity(name string) *Entity {
	return &Entity{
		Name:      name,
		PK:        "id",
		Fields:    make(map[string]*Field),
		Relations: make(map[string]*Relation),
	}
}

// AddField declares a scalar field and returns the entity for chaining.
func (e *Entity) AddField(name string, typ FieldType) *Entity {
	e.Fields[name] = &Field{Name: name, Type: typ}
	return e
}

// AddToOne declares a to-one relation and returns the entity for chaining.
func (e *Entity) AddToOne(name, target string) *Entity {
	e.Relations[name] = &Relation{Name: name, Target: target}
	return e
}

// AddToMany declares a to-many relation and returns the entity for chaining.
func (e *Entity) AddToMany(name, target string) *Entity {
	e.Relations[name] = &Relation{Name: name, Target: target, ToMany: true}
	return e
}

// AddInverse links a declared to-many relation to the to-one relation
// on the target entity that reverses it. The SQL loader materializes
// the many side through this link.
func (e *Entity) AddInverse(relation, inverse string) *Entity {
	if rel, ok := e.Relations[relation]; ok {
		rel.Inverse = inverse
	}
	return e
}

// HasAttribute reports whether name is a field or a relation of the entity.
func (e *Entity) HasAttribute(name string) bool {
	if _, ok := e.Fields[name]; ok {
		return true
	}
	_, ok := e.Relations[name]
	return ok
}

// Attributes returns the sorted names of every field and relation of
// the entity.
func (e *Entity) Attributes() []string {
	names := make([]string, 0, len(e.Fields)+len(e.Relations))
	for name := range e.Fields {
		names = append(names, name)
	}
	for name := range e.Relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Introspector is the read-only metadata surface the engine compiles
// against. The Registry implements it; callers may substitute their own.
type Introspector interface {
	// Attributes lists every field and relation name of the entity.
	Attributes(entity string) []string
	// HasAttribute reports whether the entity declares the attribute.
	HasAttribute(entity, name string) bool
	// IsRelation reports whether the attribute is a relation.
	IsRelation(entity, name string) bool
	// IsToMany reports whether the attribute is a to-many relation.
	IsToMany(entity, name string) bool
	// RelationTarget resolves a relation attribute to its target entity.
	RelationTarget(entity, name string) (string, bool)
	// PK returns the primary-key attribute name of the entity.
	PK(entity string) string
}
