// Package join builds and serializes the relation-expansion tree. One
// node per expanded relation attribute controls which sub-attributes,
// sort order, pagination and sub-predicates apply when the relation is
// rendered as nested rows instead of identifiers.
package join

import (
	"fmt"
	"strings"

	"github.com/siftql/sift/internal/censor"
	"github.com/siftql/sift/internal/fieldpath"
	"github.com/siftql/sift/internal/filter"
	"github.com/siftql/sift/internal/subquery"
	"github.com/siftql/sift/pkg/qerr"
	"github.com/siftql/sift/pkg/schema"
)

// Node is one level of the relation-expansion tree. Nodes are owned by
// the query context that created them and live for one evaluation.
type Node struct {
	// Path is the full dotted relation path from the root entity.
	Path string
	// Attr is the relation attribute this node expands.
	Attr string
	// Entity is the relation's target entity.
	Entity string
	// Many distinguishes to-many from to-one expansion.
	Many bool

	// Visible attributes of the target, split by kind.
	Scalars map[string]bool
	Ones    map[string]bool
	Manys   map[string]bool

	Children map[string]*Node

	Sort    []string
	Start   int
	Limit   int
	Filters []*filter.Predicate
}

// Compiler turns c:join directive values into nodes.
type Compiler struct {
	Intro    schema.Introspector
	Censor   *censor.Censor
	Resolver *fieldpath.Resolver
	Table    *filter.Table
	FieldSep string
	ValueSep string
	Case     bool
}

// Compile parses one c:join value relative to the root entity.
func (c *Compiler) Compile(value, root string) (*Node, error) {
	dict, err := subquery.Parse(value, c.FieldSep, c.ValueSep)
	if err != nil {
		return nil, &qerr.InvalidDirectiveError{Directive: "c:join", Reason: err.Error()}
	}

	if !dict.Has("field") {
		return nil, &qerr.InvalidDirectiveError{Directive: "c:join", Reason: "'field' argument is missing"}
	}
	path := dict.Get("field", "")
	resolved, err := c.Resolver.Resolve(path, root)
	if err != nil {
		return nil, err
	}
	if !c.Intro.IsRelation(resolved.Entity, resolved.Attribute) {
		return nil, &qerr.NotARelationError{
			Entity:    resolved.Entity,
			Attribute: resolved.Attribute,
			Relations: c.Censor.VisibleRelations(resolved.Entity),
		}
	}
	target, _ := c.Intro.RelationTarget(resolved.Entity, resolved.Attribute)

	show := subquery.SplitValues(dict.GetList("show"), c.ValueSep)
	for _, f := range show {
		if _, err := c.Resolver.Resolve(f, target); err != nil {
			return nil, err
		}
	}
	hide := subquery.SplitValues(dict.GetList("hide"), c.ValueSep)
	for _, f := range hide {
		if _, err := c.Resolver.Resolve(f, target); err != nil {
			return nil, err
		}
	}

	start, err := nonNegative(dict.Get("start", "0"))
	if err != nil {
		return nil, &qerr.InvalidDirectiveError{
			Directive: "c:join",
			Reason:    fmt.Sprintf("'start' value must be a non-negative integer (received %q)", dict.Get("start", "0")),
		}
	}
	limit, err := nonNegative(dict.Get("limit", "0"))
	if err != nil {
		return nil, &qerr.InvalidDirectiveError{
			Directive: "c:join",
			Reason:    fmt.Sprintf("'limit' value must be a non-negative integer (received %q)", dict.Get("limit", "0")),
		}
	}

	sortKeys := subquery.SplitValues(dict.GetList("sort"), c.ValueSep)
	for _, k := range sortKeys {
		if _, err := c.Resolver.Resolve(strings.TrimPrefix(k, "-"), target); err != nil {
			return nil, err
		}
	}

	var filters []*filter.Predicate
	for _, f := range dict.GetList("filters") {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) < 2 {
			return nil, &qerr.InvalidDirectiveError{
				Directive: "c:join",
				Reason:    fmt.Sprintf("filters must contain an equal '=', received %q", kv[0]),
			}
		}
		// Sub-filters are relative to the joined entity, unlike the
		// root-relative annotation sub-filters.
		if _, err := c.Resolver.Resolve(kv[0], target); err != nil {
			return nil, err
		}
		pred, err := filter.Compile(kv[0], kv[1], c.Case, c.Table)
		if err != nil {
			return nil, err
		}
		filters = append(filters, pred)
	}

	node := c.newNode(path, resolved.Entity, resolved.Attribute, target, show, hide)
	node.Start = start
	node.Limit = limit
	node.Sort = sortKeys
	node.Filters = filters
	return node, nil
}

// newNode builds a node with its visible-attribute sets: the explicit
// show list, or every visible attribute minus the hide list.
func (c *Compiler) newNode(path, owner, attr, target string, show, hide []string) *Node {
	node := &Node{
		Path:     path,
		Attr:     attr,
		Entity:   target,
		Many:     c.Intro.IsToMany(owner, attr),
		Scalars:  make(map[string]bool),
		Ones:     make(map[string]bool),
		Manys:    make(map[string]bool),
		Children: make(map[string]*Node),
	}

	var fields []string
	if len(show) > 0 {
		fields = show
	} else {
		hidden := make(map[string]bool, len(hide))
		for _, h := range hide {
			hidden[h] = true
		}
		for _, f := range c.Censor.Filter(target, c.Intro.Attributes(target)) {
			if !hidden[f] {
				fields = append(fields, f)
			}
		}
	}

	for _, f := range fields {
		if !c.Censor.IsPublic(target, f) {
			continue
		}
		switch {
		case !c.Intro.IsRelation(target, f):
			node.Scalars[f] = true
		case c.Intro.IsToMany(target, f):
			node.Manys[f] = true
		default:
			node.Ones[f] = true
		}
	}
	return node
}

func nonNegative(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a digit")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
