// Package fieldpath resolves dot-separated attribute paths against the
// schema, enforcing visibility and a maximum traversal depth.
package fieldpath

import (
	"strings"

	"github.com/siftql/sift/internal/censor"
	"github.com/siftql/sift/pkg/qerr"
	"github.com/siftql/sift/pkg/schema"
)

// Resolver resolves attribute paths for one query evaluation. Arbitrary
// names are attributes injected by computed-attribute declarations; they
// resolve as non-relation leaves on any entity.
type Resolver struct {
	Intro     schema.Introspector
	Censor    *censor.Censor
	Arbitrary map[string]bool
	Sep       string
	MaxDepth  int
}

// Resolved is the terminal (entity, attribute) pair of a path. It never
// refers to a censored or nonexistent attribute.
type Resolved struct {
	Entity    string
	Attribute string
}

// Resolve walks path from the root entity one segment at a time and
// returns the terminal entity and attribute. It is a pure function of
// its inputs.
func (r *Resolver) Resolve(path, root string) (Resolved, error) {
	segments := strings.Split(path, r.Sep)
	if len(segments) >= r.MaxDepth {
		return Resolved{}, &qerr.PathDepthExceededError{Path: path, MaxDepth: r.MaxDepth}
	}
	return r.resolve(segments, root)
}

func (r *Resolver) resolve(segments []string, entity string) (Resolved, error) {
	head, rest := segments[0], segments[1:]

	if r.Arbitrary[head] {
		if len(rest) > 0 {
			return Resolved{}, &qerr.NotARelationError{
				Entity:    entity,
				Attribute: head,
				Relations: r.Censor.VisibleRelations(entity),
			}
		}
		return Resolved{Entity: entity, Attribute: head}, nil
	}

	// A censored attribute and a missing one are indistinguishable.
	if !r.Intro.HasAttribute(entity, head) || r.Censor.IsPrivate(entity, head) {
		return Resolved{}, &qerr.UnknownAttributeError{
			Entity:          entity,
			Attribute:       head,
			ValidAttributes: r.Censor.VisibleAttributes(entity),
		}
	}

	if len(rest) == 0 {
		return Resolved{Entity: entity, Attribute: head}, nil
	}

	if !r.Intro.IsRelation(entity, head) {
		return Resolved{}, &qerr.NotARelationError{
			Entity:    entity,
			Attribute: head,
			Relations: r.Censor.VisibleRelations(entity),
		}
	}
	target, _ := r.Intro.RelationTarget(entity, head)
	return r.resolve(rest, target)
}
