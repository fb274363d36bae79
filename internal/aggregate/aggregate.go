// Package aggregate compiles the computed-attribute sub-grammar used by
// the annotate and aggregate directives: pipe-delimited key=value pairs
// naming a source attribute path, an output name, an aggregate function,
// and (for annotations) optional sub-filters and an early/late flag.
package aggregate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/siftql/sift/internal/fieldpath"
	"github.com/siftql/sift/internal/filter"
	"github.com/siftql/sift/internal/subquery"
	"github.com/siftql/sift/pkg/qerr"
)

// Aggregation computes one scalar over the whole result set and writes
// it directly into the result envelope.
type Aggregation struct {
	Field    string
	To       string
	FuncName string
	Fn       Func
}

// Annotation computes one scalar per row, stored under To so later
// directives (sort, show, filters, aggregate) can reference it.
//
// Sub-filter paths are resolved against the root entity of the query,
// not the aggregated relation's target: counting a country's rivers
// longer than 2000 is expressed as rivers.length=>2000, never
// length=>2000.
//
// Early decides whether the annotation is applied before or after the
// main filter stage; only early annotations are observable by main
// filters.
type Annotation struct {
	Field    string
	To       string
	FuncName string
	Fn       Func
	Filters  []*filter.Predicate
	Early    bool
}

// Compiler turns directive values into aggregations and annotations.
type Compiler struct {
	Resolver *fieldpath.Resolver
	Root     string
	Funcs    Registry
	Table    *filter.Table
	FieldSep string
	ValueSep string

	// Case selects case-sensitive string comparison in sub-filters.
	Case bool
}

// CompileAnnotation parses one c:annotate value.
func (c *Compiler) CompileAnnotation(value string) (*Annotation, error) {
	dict, err := subquery.Parse(value, c.FieldSep, c.ValueSep)
	if err != nil {
		return nil, &qerr.InvalidDirectiveError{Directive: "c:annotate", Reason: err.Error()}
	}

	field, fnName, fn, to, err := c.common("c:annotate", dict)
	if err != nil {
		return nil, err
	}

	var filters []*filter.Predicate
	for _, f := range dict.GetList("filters") {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) < 2 {
			return nil, &qerr.InvalidDirectiveError{
				Directive: "c:annotate",
				Reason:    fmt.Sprintf("filters must contain an equal '=', received %q", kv[0]),
			}
		}
		if _, err := c.Resolver.Resolve(kv[0], c.Root); err != nil {
			return nil, err
		}
		pred, err := filter.Compile(kv[0], kv[1], c.Case, c.Table)
		if err != nil {
			return nil, err
		}
		filters = append(filters, pred)
	}

	early := dict.Get("early", "0")
	if early != "0" && early != "1" {
		return nil, &qerr.InvalidDirectiveError{
			Directive: "c:annotate",
			Reason:    "'early' argument must be '0' or '1'",
		}
	}

	return &Annotation{
		Field:    field,
		To:       to,
		FuncName: fnName,
		Fn:       fn,
		Filters:  filters,
		Early:    early == "1",
	}, nil
}

// CompileAggregation parses one c:aggregate value.
func (c *Compiler) CompileAggregation(value string) (*Aggregation, error) {
	dict, err := subquery.Parse(value, c.FieldSep, c.ValueSep)
	if err != nil {
		return nil, &qerr.InvalidDirectiveError{Directive: "c:aggregate", Reason: err.Error()}
	}

	field, fnName, fn, to, err := c.common("c:aggregate", dict)
	if err != nil {
		return nil, err
	}
	return &Aggregation{Field: field, To: to, FuncName: fnName, Fn: fn}, nil
}

// common validates the field / func / to keys shared by both grammars.
func (c *Compiler) common(directive string, dict *subquery.Dict) (field, fnName string, fn Func, to string, err error) {
	if !dict.Has("field") {
		return "", "", nil, "", &qerr.InvalidDirectiveError{Directive: directive, Reason: "'field' argument is missing"}
	}
	field = dict.Get("field", "")
	if _, err := c.Resolver.Resolve(field, c.Root); err != nil {
		return "", "", nil, "", err
	}

	if !dict.Has("func") {
		return "", "", nil, "", &qerr.InvalidDirectiveError{Directive: directive, Reason: "'func' argument is missing"}
	}
	fnName = dict.Get("func", "")
	fn, ok := c.Funcs[fnName]
	if !ok {
		return "", "", nil, "", &qerr.InvalidDirectiveError{
			Directive: directive,
			Reason:    fmt.Sprintf("unknown function %q, valid functions are %v", fnName, c.Funcs.Names()),
		}
	}

	if !dict.Has("to") {
		return "", "", nil, "", &qerr.InvalidDirectiveError{Directive: directive, Reason: "'to' argument is missing"}
	}
	to = dict.Get("to", "")
	if !isIdentifier(to) {
		return "", "", nil, "", &qerr.InvalidDirectiveError{
			Directive: directive,
			Reason:    fmt.Sprintf("'to' value %q is not a valid identifier", to),
		}
	}
	// The output name must not collide with a schema attribute or a
	// previously declared computed attribute; resolution succeeding
	// means it does.
	if _, resolveErr := c.Resolver.Resolve(to, c.Root); resolveErr == nil {
		return "", "", nil, "", &qerr.InvalidDirectiveError{
			Directive: directive,
			Reason:    fmt.Sprintf("'to' value %q is already used by an attribute", to),
		}
	} else {
		var unknown *qerr.UnknownAttributeError
		if !errors.As(resolveErr, &unknown) {
			return "", "", nil, "", resolveErr
		}
	}

	return field, fnName, fn, to, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
